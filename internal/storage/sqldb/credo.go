package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studylit/internal/models"
)

func (s *Store) GetCredoLogs(ctx context.Context, userID, startDay, endDay string) ([]models.CredoLog, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, user_id, item, day, done, note, created_at
		FROM credo_logs
		WHERE user_id = ? AND day >= ? AND day <= ?
		ORDER BY day, item`), userID, startDay, endDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.CredoLog
	for rows.Next() {
		var l models.CredoLog
		var createdAt string
		if err := rows.Scan(&l.ID, &l.UserID, &l.Item, &l.Day, &l.Done, &l.Note, &createdAt); err != nil {
			return nil, err
		}
		if l.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (s *Store) ReplaceCredoDay(ctx context.Context, userID, day string, logs []models.CredoLog, now time.Time) error {
	seen := make(map[string]bool, len(logs))
	for i := range logs {
		logs[i].UserID = userID
		logs[i].Day = day
		if logs[i].CreatedAt.IsZero() {
			logs[i].CreatedAt = now
		}
		if err := logs[i].Validate(); err != nil {
			return err
		}
		if seen[logs[i].Item] {
			return fmt.Errorf("credo item %q listed twice for %s", logs[i].Item, day)
		}
		seen[logs[i].Item] = true
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM credo_logs WHERE user_id = ? AND day = ?`), userID, day); err != nil {
			return fmt.Errorf("failed to clear credo logs: %w", err)
		}
		for _, l := range logs {
			if l.ID == "" {
				l.ID = uuid.New().String()
			}
			_, err := tx.ExecContext(ctx, s.q(`
				INSERT INTO credo_logs (id, user_id, item, day, done, note, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`),
				l.ID, userID, l.Item, day, l.Done, l.Note, formatTime(l.CreatedAt))
			if err != nil {
				return fmt.Errorf("failed to insert credo log: %w", err)
			}
		}
		return nil
	})
}
