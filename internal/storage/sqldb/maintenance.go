package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
)

func (s *Store) GetTaskRows(ctx context.Context) ([]storage.TaskRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.parent_id, p.user_id, t.title, t.status,
		       t.worked_seconds, t.due_at, t.last_started_at, t.created_at
		FROM tasks t LEFT JOIN tasks p ON p.id = t.parent_id
		ORDER BY t.user_id, t.created_at, t.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to read task rows: %w", err)
	}
	defer rows.Close()

	var out []storage.TaskRow
	for rows.Next() {
		var r storage.TaskRow
		var parentID, parentUserID, dueAt, lastStartedAt sql.NullString
		if err := rows.Scan(&r.ID, &r.UserID, &parentID, &parentUserID, &r.Title, &r.Status,
			&r.WorkedSeconds, &dueAt, &lastStartedAt, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.ParentID = nullToPtr(parentID)
		r.ParentUserID = nullToPtr(parentUserID)
		r.DueAt = nullToPtr(dueAt)
		r.LastStartedAt = nullToPtr(lastStartedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ClearTaskTimer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE tasks SET last_started_at = NULL
		WHERE id = ? AND status <> ? AND last_started_at IS NOT NULL`),
		id, string(models.StatusInProgress))
	if err != nil {
		return fmt.Errorf("failed to clear task timer: %w", err)
	}
	return requireAffected(res)
}

func nullToPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}
