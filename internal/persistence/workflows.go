package persistence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/aristath/tempo/internal/task"
)

// SaveWorkflow saves or updates a workflow together with all of its steps
// and step dependency edges. Steps are replaced wholesale; a workflow's
// step set is small and always written as a unit.
func (s *SQLiteStore) SaveWorkflow(ctx context.Context, w *task.Workflow) error {
	return withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO workflows (id, name, importance, urgency, deadline, deadline_hard, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				importance = excluded.importance,
				urgency = excluded.urgency,
				deadline = excluded.deadline,
				deadline_hard = excluded.deadline_hard,
				status = excluded.status,
				updated_at = CURRENT_TIMESTAMP
		`, w.ID, w.Name, w.Importance, w.Urgency, nullableTime(w.Deadline),
			w.DeadlineKind == task.DeadlineHard, string(w.Status))
		if err != nil {
			return fmt.Errorf("failed to upsert workflow: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE workflow_id = ?`, w.ID); err != nil {
			return fmt.Errorf("failed to delete old steps: %w", err)
		}

		for _, st := range w.Steps {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO steps (id, workflow_id, name, duration, category, async_wait, status, percent, step_index)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, st.ID, w.ID, st.Name, st.Duration, st.Category, st.AsyncWait,
				string(st.Status), st.Percent, st.Index)
			if err != nil {
				return fmt.Errorf("failed to insert step %q: %w", st.ID, err)
			}
			for _, depID := range st.DependsOn {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO step_dependencies (step_id, depends_on_id) VALUES (?, ?)`,
					st.ID, depID); err != nil {
					return fmt.Errorf("failed to insert step dependency %q: %w", depID, err)
				}
			}
		}

		return tx.Commit()
	})
}

// GetWorkflow returns a workflow by ID with its steps in declared order.
func (s *SQLiteStore) GetWorkflow(ctx context.Context, id string) (*task.Workflow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, importance, urgency, deadline, deadline_hard, status
		FROM workflows WHERE id = ?
	`, id)

	w, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workflow %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if err := s.loadSteps(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// ListWorkflows returns all workflows with their steps.
func (s *SQLiteStore) ListWorkflows(ctx context.Context) ([]*task.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, importance, urgency, deadline, deadline_hard, status
		FROM workflows ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var workflows []*task.Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		workflows = append(workflows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, w := range workflows {
		if err := s.loadSteps(ctx, w); err != nil {
			return nil, err
		}
	}
	return workflows, nil
}

// DeleteWorkflow removes a workflow; steps cascade.
func (s *SQLiteStore) DeleteWorkflow(ctx context.Context, id string) error {
	return withRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete workflow: %w", err)
		}
		return nil
	})
}

func (s *SQLiteStore) loadSteps(ctx context.Context, w *task.Workflow) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, duration, category, async_wait, status, percent, step_index
		FROM steps WHERE workflow_id = ? ORDER BY step_index, id
	`, w.ID)
	if err != nil {
		return fmt.Errorf("failed to query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st task.Step
		var status string
		if err := rows.Scan(&st.ID, &st.Name, &st.Duration, &st.Category,
			&st.AsyncWait, &status, &st.Percent, &st.Index); err != nil {
			return err
		}
		st.Status = task.Status(status)
		st.WorkflowID = w.ID
		w.Steps = append(w.Steps, &st)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, st := range w.Steps {
		deps, err := s.stepDependencies(ctx, st.ID)
		if err != nil {
			return err
		}
		st.DependsOn = deps
	}
	return nil
}

func (s *SQLiteStore) stepDependencies(ctx context.Context, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT depends_on_id FROM step_dependencies WHERE step_id = ? ORDER BY depends_on_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query step dependencies: %w", err)
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

func scanWorkflow(row rowScanner) (*task.Workflow, error) {
	var w task.Workflow
	var deadline sql.NullTime
	var hard bool
	var status string

	err := row.Scan(&w.ID, &w.Name, &w.Importance, &w.Urgency, &deadline, &hard, &status)
	if err != nil {
		return nil, err
	}

	if deadline.Valid {
		d := deadline.Time
		w.Deadline = &d
		if hard {
			w.DeadlineKind = task.DeadlineHard
		}
	}
	w.Status = task.Status(status)
	return &w, nil
}
