package sqldb

import (
	"context"
	"fmt"

	"github.com/julianstephens/studylit/internal/models"
)

const noteColumns = `id, user_id, title, body, canvas, created_at, updated_at`

func scanNote(row scanner) (models.Note, error) {
	var n models.Note
	var createdAt, updatedAt string
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Canvas, &createdAt, &updatedAt); err != nil {
		return models.Note{}, notFound(err)
	}
	var err error
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Note{}, err
	}
	if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Note{}, err
	}
	return n, nil
}

func (s *Store) AddNote(ctx context.Context, note models.Note) error {
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO notes (`+noteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		note.ID, note.UserID, note.Title, note.Body, note.Canvas,
		formatTime(note.CreatedAt), formatTime(note.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to add note: %w", err)
	}
	return nil
}

func (s *Store) GetNote(ctx context.Context, userID, id string) (models.Note, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+noteColumns+` FROM notes WHERE id = ? AND user_id = ?`), id, userID)
	return scanNote(row)
}

func (s *Store) GetAllNotes(ctx context.Context, userID string) ([]models.Note, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+noteColumns+` FROM notes WHERE user_id = ? ORDER BY updated_at DESC, id`), userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *Store) UpdateNote(ctx context.Context, note models.Note) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE notes SET title = ?, body = ?, canvas = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`),
		note.Title, note.Body, note.Canvas, formatTime(note.UpdatedAt), note.ID, note.UserID)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) DeleteNote(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM notes WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return requireAffected(res)
}
