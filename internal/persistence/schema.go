package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		duration INTEGER NOT NULL,
		importance INTEGER NOT NULL,
		urgency INTEGER NOT NULL,
		category TEXT NOT NULL,
		async_wait INTEGER NOT NULL DEFAULT 0,
		deadline DATETIME,
		deadline_hard INTEGER NOT NULL DEFAULT 0,
		completed INTEGER NOT NULL DEFAULT 0,
		locked INTEGER NOT NULL DEFAULT 0,
		locked_start DATETIME,
		complexity INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		task_id TEXT NOT NULL,
		depends_on_id TEXT NOT NULL,
		PRIMARY KEY (task_id, depends_on_id),
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_task_dependencies_task_id ON task_dependencies(task_id);

	CREATE TABLE IF NOT EXISTS workflows (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		importance INTEGER NOT NULL,
		urgency INTEGER NOT NULL,
		deadline DATETIME,
		deadline_hard INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS steps (
		id TEXT PRIMARY KEY,
		workflow_id TEXT NOT NULL,
		name TEXT NOT NULL,
		duration INTEGER NOT NULL,
		category TEXT NOT NULL,
		async_wait INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'pending',
		percent INTEGER NOT NULL DEFAULT 0,
		step_index INTEGER NOT NULL,
		FOREIGN KEY (workflow_id) REFERENCES workflows(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_steps_workflow_id ON steps(workflow_id);

	CREATE TABLE IF NOT EXISTS step_dependencies (
		step_id TEXT NOT NULL,
		depends_on_id TEXT NOT NULL,
		PRIMARY KEY (step_id, depends_on_id),
		FOREIGN KEY (step_id) REFERENCES steps(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS work_patterns (
		date TEXT PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS pattern_blocks (
		id TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		kind INTEGER NOT NULL,
		category TEXT,
		allocations TEXT,
		PRIMARY KEY (date, id),
		FOREIGN KEY (date) REFERENCES work_patterns(date) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS pattern_meetings (
		date TEXT NOT NULL,
		name TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		FOREIGN KEY (date) REFERENCES work_patterns(date) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS pattern_accumulated (
		date TEXT NOT NULL,
		category TEXT NOT NULL,
		minutes INTEGER NOT NULL,
		PRIMARY KEY (date, category),
		FOREIGN KEY (date) REFERENCES work_patterns(date) ON DELETE CASCADE
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
