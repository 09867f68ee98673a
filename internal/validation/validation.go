package validation

import (
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
)

// ConflictType represents the type of integrity problem
type ConflictType string

const (
	ConflictOrphanTask      ConflictType = "orphan_task"
	ConflictCrossOwner      ConflictType = "cross_owner_subtask"
	ConflictTaskCycle       ConflictType = "task_cycle"
	ConflictStaleTimer      ConflictType = "stale_timer"
	ConflictFutureTimer     ConflictType = "future_timer"
	ConflictInvalidStatus   ConflictType = "invalid_status"
	ConflictNegativeWork    ConflictType = "negative_worked_seconds"
	ConflictInvalidDateTime ConflictType = "invalid_datetime"
	ConflictUnknownCredo    ConflictType = "unknown_credo_item"
	ConflictInvalidCredoDay ConflictType = "invalid_credo_day"
)

// Conflict represents one detected problem
type Conflict struct {
	Type        ConflictType
	Description string
	// Fixable conflicts can be repaired by AutoFix without losing user data.
	Fixable bool
	TaskIDs []string
}

// ValidationResult contains all detected conflicts
type ValidationResult struct {
	Conflicts []Conflict
}

// FixAction represents an action taken during auto-fix
type FixAction struct {
	Action         string
	SourceConflict Conflict
}

// HasConflicts returns true if there are any conflicts
func (vr *ValidationResult) HasConflicts() bool {
	return len(vr.Conflicts) > 0
}

// Count returns how many conflicts have the given type.
func (vr *ValidationResult) Count(t ConflictType) int {
	n := 0
	for _, c := range vr.Conflicts {
		if c.Type == t {
			n++
		}
	}
	return n
}

// FormatReport returns a human-readable report of all conflicts
func (vr *ValidationResult) FormatReport() string {
	if !vr.HasConflicts() {
		return "No conflicts detected."
	}

	report := "Conflicts detected:\n"
	for _, conflict := range vr.Conflicts {
		report += fmt.Sprintf("- %s\n", conflict.Description)
	}
	return report
}

// Validator checks persisted rows for states the application never writes.
type Validator struct {
	now time.Time
}

// New creates a Validator that judges timestamps against now.
func New(now time.Time) *Validator {
	return &Validator{now: now.UTC()}
}

// ValidateTasks checks raw task rows.
func (v *Validator) ValidateTasks(rows []storage.TaskRow) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}

	ids := make(map[string]bool, len(rows))
	parents := make(map[string]string, len(rows))
	for _, r := range rows {
		ids[r.ID] = true
		if r.ParentID != nil {
			parents[r.ID] = *r.ParentID
		}
	}

	for _, r := range rows {
		label := fmt.Sprintf("Task %q (%s)", r.Title, r.ID)

		if _, err := models.ParseTaskStatus(r.Status); err != nil {
			result.add(ConflictInvalidStatus, false, r.ID, "%s has invalid status %q", label, r.Status)
		}
		if r.WorkedSeconds < 0 {
			result.add(ConflictNegativeWork, false, r.ID, "%s has negative worked seconds (%d)", label, r.WorkedSeconds)
		}
		if _, err := time.Parse(constants.TimestampFormat, r.CreatedAt); err != nil {
			result.add(ConflictInvalidDateTime, false, r.ID, "%s has invalid created_at: %s", label, r.CreatedAt)
		}
		if r.DueAt != nil {
			if _, err := time.Parse(constants.TimestampFormat, *r.DueAt); err != nil {
				result.add(ConflictInvalidDateTime, false, r.ID, "%s has invalid due_at: %s", label, *r.DueAt)
			}
		}

		if r.LastStartedAt != nil {
			started, err := time.Parse(constants.TimestampFormat, *r.LastStartedAt)
			switch {
			case err != nil:
				result.add(ConflictInvalidDateTime, false, r.ID, "%s has invalid last_started_at: %s", label, *r.LastStartedAt)
			case r.Status != string(models.StatusInProgress):
				result.add(ConflictStaleTimer, true, r.ID, "%s is %s but still has a timer from %s", label, r.Status, *r.LastStartedAt)
			case started.After(v.now):
				result.add(ConflictFutureTimer, false, r.ID, "%s has a timer starting in the future (%s)", label, *r.LastStartedAt)
			}
		}

		if r.ParentID == nil {
			continue
		}
		switch {
		case !ids[*r.ParentID]:
			result.add(ConflictOrphanTask, false, r.ID, "%s points at missing parent %s", label, *r.ParentID)
		case r.ParentUserID != nil && *r.ParentUserID != r.UserID:
			result.add(ConflictCrossOwner, false, r.ID, "%s belongs to a different user than its parent %s", label, *r.ParentID)
		}
	}

	for _, cycle := range findCycles(parents) {
		result.Conflicts = append(result.Conflicts, Conflict{
			Type:        ConflictTaskCycle,
			Description: fmt.Sprintf("Tasks form a parent cycle: %v", cycle),
			TaskIDs:     cycle,
		})
	}
	return result
}

// ValidateCredo checks one user's credo logs.
func (v *Validator) ValidateCredo(logs []models.CredoLog) ValidationResult {
	result := ValidationResult{Conflicts: []Conflict{}}
	for _, l := range logs {
		if _, ok := models.LookupCredoItem(l.Item); !ok {
			result.add(ConflictUnknownCredo, false, "", "Credo log %s on %s uses unknown item %q", l.ID, l.Day, l.Item)
		}
		if _, err := time.Parse(constants.DateFormat, l.Day); err != nil {
			result.add(ConflictInvalidCredoDay, false, "", "Credo log %s has invalid day %q", l.ID, l.Day)
		}
	}
	return result
}

// Merge appends other's conflicts.
func (vr *ValidationResult) Merge(other ValidationResult) {
	vr.Conflicts = append(vr.Conflicts, other.Conflicts...)
}

func (vr *ValidationResult) add(t ConflictType, fixable bool, taskID, format string, args ...any) {
	c := Conflict{Type: t, Description: fmt.Sprintf(format, args...), Fixable: fixable}
	if taskID != "" {
		c.TaskIDs = []string{taskID}
	}
	vr.Conflicts = append(vr.Conflicts, c)
}

// findCycles returns each parent cycle once, as sorted member ids.
func findCycles(parents map[string]string) [][]string {
	ids := make([]string, 0, len(parents))
	for id := range parents {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	inCycle := make(map[string]bool)
	var cycles [][]string
	for _, start := range ids {
		if inCycle[start] {
			continue
		}
		onPath := map[string]bool{}
		cur := start
		for cur != "" && !onPath[cur] {
			onPath[cur] = true
			cur = parents[cur]
		}
		if cur == "" || inCycle[cur] {
			continue
		}
		// cur is the first repeated node; collect the loop from there.
		var members []string
		for id := cur; ; {
			members = append(members, id)
			inCycle[id] = true
			id = parents[id]
			if id == cur {
				break
			}
		}
		sort.Strings(members)
		cycles = append(cycles, members)
	}
	return cycles
}

// AutoFixStaleTimers clears timestamps left on tasks that are no longer in
// progress. Other conflict types are reported only.
func AutoFixStaleTimers(conflicts []Conflict, clearFunc func(id string) error) []FixAction {
	actions := []FixAction{}
	for _, conflict := range conflicts {
		if conflict.Type != ConflictStaleTimer || !conflict.Fixable {
			continue
		}
		for _, id := range conflict.TaskIDs {
			if err := clearFunc(id); err != nil {
				actions = append(actions, FixAction{
					Action:         fmt.Sprintf("Failed to clear stale timer on task %s: %v", id, err),
					SourceConflict: conflict,
				})
				continue
			}
			actions = append(actions, FixAction{
				Action:         fmt.Sprintf("Cleared stale timer on task %s", id),
				SourceConflict: conflict,
			})
		}
	}
	return actions
}
