package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/storage"
	"github.com/julianstephens/studylit/internal/tasks"
)

const taskColumns = `id, user_id, parent_id, title, description, due_at, status,
	worked_seconds, last_started_at, source, created_at, updated_at`

func scanTask(row scanner) (models.Task, error) {
	var t models.Task
	var parentID, dueAt, lastStartedAt sql.NullString
	var status, source, createdAt, updatedAt string

	err := row.Scan(
		&t.ID, &t.UserID, &parentID, &t.Title, &t.Description, &dueAt, &status,
		&t.WorkedSeconds, &lastStartedAt, &source, &createdAt, &updatedAt,
	)
	if err != nil {
		return models.Task{}, notFound(err)
	}

	if parentID.Valid {
		t.ParentID = &parentID.String
	}
	if t.Due, err = parseNullTime(dueAt); err != nil {
		return models.Task{}, err
	}
	started, err := parseNullTime(lastStartedAt)
	if err != nil {
		return models.Task{}, err
	}
	if t.State, err = models.StateFromColumns(models.TaskStatus(status), started); err != nil {
		return models.Task{}, fmt.Errorf("task %s: %w", t.ID, err)
	}
	t.Source = models.TaskSource(source)
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func collectTasks(rows *sql.Rows) ([]models.Task, error) {
	defer rows.Close()
	var list []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (s *Store) AddTask(ctx context.Context, task models.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}

	if task.HasParent() {
		// A subtask always belongs to its parent's owner.
		var owner string
		err := s.db.QueryRowContext(ctx, s.q(`SELECT user_id FROM tasks WHERE id = ?`), *task.ParentID).Scan(&owner)
		if err != nil {
			return fmt.Errorf("parent task: %w", notFound(err))
		}
		if owner != task.UserID {
			return fmt.Errorf("parent task: %w", storage.ErrNotFound)
		}
	}

	status, started := models.StateColumns(task.State)
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO tasks (`+taskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		task.ID, task.UserID, nullString(task.ParentID), task.Title, task.Description,
		nullTime(task.Due), string(status), task.WorkedSeconds, nullTime(started),
		string(task.Source), formatTime(task.CreatedAt), formatTime(task.UpdatedAt),
	)
	if s.uniqueViolation(err) {
		return fmt.Errorf("%w: task %s already exists", storage.ErrConflict, task.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}
	return nil
}

func (s *Store) getTask(ctx context.Context, q queryer, userID, id string, lock bool) (models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ? AND user_id = ?`
	if lock {
		query += s.dialect.RowLock
	}
	return scanTask(q.QueryRowContext(ctx, s.q(query), id, userID))
}

func (s *Store) GetTask(ctx context.Context, userID, id string) (models.Task, error) {
	return s.getTask(ctx, s.db, userID, id, false)
}

func (s *Store) GetTasksInRange(ctx context.Context, userID string, from, until time.Time) ([]models.Task, error) {
	lo, hi := formatTime(from), formatTime(until)
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ?
		  AND ((due_at >= ? AND due_at < ?) OR (created_at >= ? AND created_at < ?))
		ORDER BY created_at, id`),
		userID, lo, hi, lo, hi)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (s *Store) GetAllTasks(ctx context.Context, userID string) ([]models.Task, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY created_at, id`), userID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (s *Store) childTasks(ctx context.Context, q queryer, userID, parentID string) ([]models.Task, error) {
	rows, err := q.QueryContext(ctx, s.q(`
		SELECT `+taskColumns+` FROM tasks
		WHERE user_id = ? AND parent_id = ?
		ORDER BY created_at, id`), userID, parentID)
	if err != nil {
		return nil, err
	}
	return collectTasks(rows)
}

func (s *Store) GetChildTasks(ctx context.Context, userID, parentID string) ([]models.Task, error) {
	return s.childTasks(ctx, s.db, userID, parentID)
}

func (s *Store) updateTask(ctx context.Context, q queryer, task models.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	status, started := models.StateColumns(task.State)
	res, err := q.ExecContext(ctx, s.q(`
		UPDATE tasks
		SET title = ?, description = ?, due_at = ?, status = ?, worked_seconds = ?,
		    last_started_at = ?, source = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`),
		task.Title, task.Description, nullTime(task.Due), string(status), task.WorkedSeconds,
		nullTime(started), string(task.Source), formatTime(task.UpdatedAt),
		task.ID, task.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireAffected(res)
}

// UpdateTask writes a task's editable fields. The parent reference is fixed
// at creation.
func (s *Store) UpdateTask(ctx context.Context, task models.Task) error {
	return s.updateTask(ctx, s.db, task)
}

func (s *Store) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM tasks WHERE id = ? AND user_id = ?
			UNION
			SELECT t.id FROM tasks t JOIN subtree ON t.parent_id = subtree.id
		)
		DELETE FROM tasks WHERE id IN (SELECT id FROM subtree)`), id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireAffected(res)
}

func (s *Store) ChangeTaskStatus(ctx context.Context, userID, id string, status models.TaskStatus, now time.Time) (storage.StatusChange, error) {
	var change storage.StatusChange

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.getTask(ctx, tx, userID, id, false)
		if err != nil {
			return err
		}

		// Lock the parent before the child so sibling changes serialize on it.
		var parent *models.Task
		if current.HasParent() {
			p, err := s.getTask(ctx, tx, userID, *current.ParentID, true)
			switch {
			case err == nil:
				parent = &p
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}
		}
		if current, err = s.getTask(ctx, tx, userID, id, true); err != nil {
			return err
		}

		updated, err := tasks.Transition(current, status, now)
		if err != nil {
			return err
		}
		if err := s.updateTask(ctx, tx, updated); err != nil {
			return err
		}
		change.Task = updated

		if parent == nil {
			return nil
		}
		siblings, err := s.childTasks(ctx, tx, userID, parent.ID)
		if err != nil {
			return err
		}
		next, ok := tasks.Cascade(siblings, updated)
		if !ok {
			return nil
		}
		cascaded := tasks.ApplyCascade(*parent, next, now)
		if err := s.updateTask(ctx, tx, cascaded); err != nil {
			return fmt.Errorf("failed to cascade to parent: %w", err)
		}
		change.Parent = &cascaded
		return nil
	})
	if err != nil {
		return storage.StatusChange{}, err
	}
	return change, nil
}
