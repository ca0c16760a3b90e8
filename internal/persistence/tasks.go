package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aristath/tempo/internal/task"
)

// SaveTask saves or updates a task and its dependency edges.
// Uses ON CONFLICT to make saves idempotent.
func (s *SQLiteStore) SaveTask(ctx context.Context, t *task.Task) error {
	return withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO tasks (id, name, duration, importance, urgency, category,
				async_wait, deadline, deadline_hard, completed, locked, locked_start,
				complexity, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				duration = excluded.duration,
				importance = excluded.importance,
				urgency = excluded.urgency,
				category = excluded.category,
				async_wait = excluded.async_wait,
				deadline = excluded.deadline,
				deadline_hard = excluded.deadline_hard,
				completed = excluded.completed,
				locked = excluded.locked,
				locked_start = excluded.locked_start,
				complexity = excluded.complexity,
				updated_at = CURRENT_TIMESTAMP
		`, t.ID, t.Name, t.Duration, t.Importance, t.Urgency, t.Category,
			t.AsyncWait, nullableTime(t.Deadline), t.DeadlineKind == task.DeadlineHard,
			t.Completed, t.Locked, nullableTime(t.LockedStart), t.Complexity)
		if err != nil {
			return fmt.Errorf("failed to upsert task: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM task_dependencies WHERE task_id = ?`, t.ID); err != nil {
			return fmt.Errorf("failed to delete old dependencies: %w", err)
		}
		for _, depID := range t.Dependencies {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO task_dependencies (task_id, depends_on_id) VALUES (?, ?)`,
				t.ID, depID); err != nil {
				return fmt.Errorf("failed to insert dependency %q: %w", depID, err)
			}
		}

		return tx.Commit()
	})
}

// GetTask returns a task by ID, including its dependency edges.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, duration, importance, urgency, category, async_wait,
			deadline, deadline_hard, completed, locked, locked_start, complexity
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	deps, err := s.taskDependencies(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Dependencies = deps
	return t, nil
}

// ListTasks returns all tasks with their dependency edges.
func (s *SQLiteStore) ListTasks(ctx context.Context) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, duration, importance, urgency, category, async_wait,
			deadline, deadline_hard, completed, locked, locked_start, complexity
		FROM tasks ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range tasks {
		deps, err := s.taskDependencies(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.Dependencies = deps
	}
	return tasks, nil
}

// DeleteTask removes a task and its dependency edges.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	return withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) taskDependencies(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT depends_on_id FROM task_dependencies WHERE task_id = ? ORDER BY depends_on_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	var deps []string
	for rows.Next() {
		var depID string
		if err := rows.Scan(&depID); err != nil {
			return nil, err
		}
		deps = append(deps, depID)
	}
	return deps, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*task.Task, error) {
	var t task.Task
	var deadline, lockedStart sql.NullTime
	var hard bool

	err := row.Scan(&t.ID, &t.Name, &t.Duration, &t.Importance, &t.Urgency,
		&t.Category, &t.AsyncWait, &deadline, &hard, &t.Completed,
		&t.Locked, &lockedStart, &t.Complexity)
	if err != nil {
		return nil, err
	}

	if deadline.Valid {
		d := deadline.Time
		t.Deadline = &d
		if hard {
			t.DeadlineKind = task.DeadlineHard
		}
	}
	if lockedStart.Valid {
		ls := lockedStart.Time
		t.LockedStart = &ls
	}
	return &t, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
