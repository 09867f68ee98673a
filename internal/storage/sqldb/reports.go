package sqldb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/studylit/internal/models"
)

// SaveWeeklyReport upserts on (user, week start); the first created_at is kept.
func (s *Store) SaveWeeklyReport(ctx context.Context, r models.WeeklyReport) error {
	focus := r.NextFocus
	if focus == nil {
		focus = []string{}
	}
	focusJSON, err := json.Marshal(focus)
	if err != nil {
		return fmt.Errorf("failed to encode focus items: %w", err)
	}
	summary := r.SummaryJSON
	if summary == "" {
		summary = "{}"
	}

	_, err = s.db.ExecContext(ctx, s.q(`
		INSERT INTO weekly_reports (
			user_id, week_start, condition_summary, activity_summary, analysis,
			next_focus, supporter_text, summary_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, week_start) DO UPDATE SET
			condition_summary = excluded.condition_summary,
			activity_summary = excluded.activity_summary,
			analysis = excluded.analysis,
			next_focus = excluded.next_focus,
			supporter_text = excluded.supporter_text,
			summary_json = excluded.summary_json,
			updated_at = excluded.updated_at`),
		r.UserID, r.WeekStart, r.ConditionSummary, r.ActivitySummary, r.Analysis,
		string(focusJSON), r.SupporterText, summary, formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save weekly report: %w", err)
	}
	return nil
}

func (s *Store) GetWeeklyReport(ctx context.Context, userID, weekStart string) (models.WeeklyReport, error) {
	var r models.WeeklyReport
	var focusJSON, createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, s.q(`
		SELECT user_id, week_start, condition_summary, activity_summary, analysis,
		       next_focus, supporter_text, summary_json, created_at, updated_at
		FROM weekly_reports WHERE user_id = ? AND week_start = ?`), userID, weekStart).Scan(
		&r.UserID, &r.WeekStart, &r.ConditionSummary, &r.ActivitySummary, &r.Analysis,
		&focusJSON, &r.SupporterText, &r.SummaryJSON, &createdAt, &updatedAt,
	)
	if err != nil {
		return models.WeeklyReport{}, notFound(err)
	}

	if err := json.Unmarshal([]byte(focusJSON), &r.NextFocus); err != nil {
		return models.WeeklyReport{}, fmt.Errorf("invalid stored focus items: %w", err)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.WeeklyReport{}, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.WeeklyReport{}, err
	}
	return r, nil
}
