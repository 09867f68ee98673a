package models

import (
	"fmt"
	"time"
)

// CredoItem is one of the fixed daily practices.
type CredoItem struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// CredoItems is the canonical list, in display order.
var CredoItems = []CredoItem{
	{ID: "morning_intent", Label: "Set a morning intention"},
	{ID: "plan_first", Label: "Plan before starting"},
	{ID: "single_task", Label: "One thing at a time"},
	{ID: "active_recall", Label: "Practice active recall"},
	{ID: "spaced_review", Label: "Review on schedule"},
	{ID: "ask_for_help", Label: "Ask when stuck"},
	{ID: "move_body", Label: "Move your body"},
	{ID: "phone_away", Label: "Keep the phone away"},
	{ID: "sleep_on_time", Label: "Sleep on time"},
	{ID: "reflect", Label: "Reflect at day's end"},
	{ID: "thank_someone", Label: "Thank someone"},
}

var credoIndex = func() map[string]int {
	idx := make(map[string]int, len(CredoItems))
	for i, item := range CredoItems {
		idx[item.ID] = i
	}
	return idx
}()

// LookupCredoItem returns the item with the given id.
func LookupCredoItem(id string) (CredoItem, bool) {
	i, ok := credoIndex[id]
	if !ok {
		return CredoItem{}, false
	}
	return CredoItems[i], true
}

// CredoOrder returns the canonical position of an item, or -1 if unknown.
func CredoOrder(id string) int {
	if i, ok := credoIndex[id]; ok {
		return i
	}
	return -1
}

// CredoLog is one practice record for a (user, item, day).
type CredoLog struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Item      string    `json:"item"`
	Day       string    `json:"date"` // YYYY-MM-DD format
	Done      bool      `json:"done"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"createdAt"`
}

func (l *CredoLog) Validate() error {
	if _, ok := LookupCredoItem(l.Item); !ok {
		return fmt.Errorf("unknown credo item %q", l.Item)
	}
	if _, err := time.Parse("2006-01-02", l.Day); err != nil {
		return fmt.Errorf("invalid date format (expected YYYY-MM-DD): %w", err)
	}
	return nil
}
