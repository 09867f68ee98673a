package models

import "time"

// WeeklyReport is the cached AI summary for one (user, week start).
type WeeklyReport struct {
	UserID           string    `json:"-"`
	WeekStart        string    `json:"weekStart"` // YYYY-MM-DD, always a Monday
	ConditionSummary string    `json:"conditionSummary"`
	ActivitySummary  string    `json:"activitySummary"`
	Analysis         string    `json:"analysis"`
	NextFocus        []string  `json:"nextFocus"`
	SupporterText    string    `json:"supporterText"`
	SummaryJSON      string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
