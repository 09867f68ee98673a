package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/julianstephens/studylit/internal/models"
)

func (s *Store) insertChatMessage(ctx context.Context, tx *sql.Tx, userID string, m models.ChatMessage) error {
	_, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO chat_messages (id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		m.ID, userID, string(m.Role), m.Content, formatTime(m.CreatedAt))
	return err
}

func (s *Store) AppendChatPair(ctx context.Context, userID string, question, reply models.ChatMessage, retention int) error {
	if question.Role != models.RoleUser || reply.Role != models.RoleAssistant {
		return fmt.Errorf("chat pair must be a user message followed by an assistant reply")
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.insertChatMessage(ctx, tx, userID, question); err != nil {
			return fmt.Errorf("failed to store chat message: %w", err)
		}
		if err := s.insertChatMessage(ctx, tx, userID, reply); err != nil {
			return fmt.Errorf("failed to store chat reply: %w", err)
		}
		if retention <= 0 {
			return nil
		}
		_, err := tx.ExecContext(ctx, s.q(`
			DELETE FROM chat_messages
			WHERE user_id = ? AND seq NOT IN (
				SELECT seq FROM chat_messages WHERE user_id = ? ORDER BY seq DESC LIMIT ?
			)`), userID, userID, retention)
		if err != nil {
			return fmt.Errorf("failed to trim chat history: %w", err)
		}
		return nil
	})
}

func (s *Store) GetChatHistory(ctx context.Context, userID string, limit int) ([]models.ChatMessage, error) {
	query := `SELECT seq, id, user_id, role, content, created_at FROM chat_messages WHERE user_id = ? ORDER BY seq`
	args := []any{userID}
	if limit > 0 {
		query = `SELECT seq, id, user_id, role, content, created_at FROM (
			SELECT seq, id, user_id, role, content, created_at
			FROM chat_messages WHERE user_id = ? ORDER BY seq DESC LIMIT ?
		) AS recent ORDER BY seq`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		var role, createdAt string
		if err := rows.Scan(&m.Seq, &m.ID, &m.UserID, &role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.Role = models.ChatRole(role)
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *Store) DeleteChatHistory(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, s.q(`DELETE FROM chat_messages WHERE user_id = ?`), userID)
	return err
}
