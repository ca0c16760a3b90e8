package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/aristath/tempo/internal/capacity"
)

// SaveWorkPattern saves or replaces one date's declared capacity: blocks,
// meetings, and accumulated consumption.
func (s *SQLiteStore) SaveWorkPattern(ctx context.Context, p *capacity.WorkPattern) error {
	if err := p.Validate(); err != nil {
		return err
	}

	return withRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO work_patterns (date) VALUES (?) ON CONFLICT(date) DO NOTHING`, p.Date); err != nil {
			return fmt.Errorf("failed to upsert pattern: %w", err)
		}

		// Replace the date's child rows wholesale.
		for _, table := range []string{"pattern_blocks", "pattern_meetings", "pattern_accumulated"} {
			if _, err := tx.ExecContext(ctx,
				fmt.Sprintf(`DELETE FROM %s WHERE date = ?`, table), p.Date); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		for _, b := range p.Blocks {
			var allocations []byte
			if b.Allocations != nil {
				allocations, err = json.Marshal(b.Allocations)
				if err != nil {
					return fmt.Errorf("failed to marshal allocations: %w", err)
				}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO pattern_blocks (id, date, start_time, end_time, kind, category, allocations)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, b.ID, p.Date, b.Start, b.End, int(b.Kind), b.Category, allocations); err != nil {
				return fmt.Errorf("failed to insert block %q: %w", b.ID, err)
			}
		}

		for _, m := range p.Meetings {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO pattern_meetings (date, name, start_time, end_time) VALUES (?, ?, ?, ?)
			`, p.Date, m.Name, m.Start, m.End); err != nil {
				return fmt.Errorf("failed to insert meeting %q: %w", m.Name, err)
			}
		}

		for category, minutes := range p.Accumulated {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO pattern_accumulated (date, category, minutes) VALUES (?, ?, ?)
			`, p.Date, category, minutes); err != nil {
				return fmt.Errorf("failed to insert accumulated %q: %w", category, err)
			}
		}

		return tx.Commit()
	})
}

// GetWorkPattern returns the pattern for a date, or nil if none is
// declared. A nil pattern means zero capacity for that date.
func (s *SQLiteStore) GetWorkPattern(ctx context.Context, date string) (*capacity.WorkPattern, error) {
	var found string
	err := s.db.QueryRowContext(ctx,
		`SELECT date FROM work_patterns WHERE date = ?`, date).Scan(&found)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}

	return s.loadPattern(ctx, date)
}

// ListWorkPatterns returns all declared patterns ordered by date.
func (s *SQLiteStore) ListWorkPatterns(ctx context.Context) ([]*capacity.WorkPattern, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date FROM work_patterns ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, err
		}
		dates = append(dates, date)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	patterns := make([]*capacity.WorkPattern, 0, len(dates))
	for _, date := range dates {
		p, err := s.loadPattern(ctx, date)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func (s *SQLiteStore) loadPattern(ctx context.Context, date string) (*capacity.WorkPattern, error) {
	p := &capacity.WorkPattern{Date: date, Accumulated: make(map[string]int)}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, start_time, end_time, kind, category, allocations
		FROM pattern_blocks WHERE date = ? ORDER BY start_time, id
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b capacity.Block
		var kind int
		var category sql.NullString
		var allocations []byte
		if err := rows.Scan(&b.ID, &b.Start, &b.End, &kind, &category, &allocations); err != nil {
			return nil, err
		}
		b.Kind = capacity.BlockKind(kind)
		b.Category = category.String
		if len(allocations) > 0 {
			if err := json.Unmarshal(allocations, &b.Allocations); err != nil {
				return nil, fmt.Errorf("failed to unmarshal allocations for block %q: %w", b.ID, err)
			}
		}
		p.Blocks = append(p.Blocks, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	mrows, err := s.db.QueryContext(ctx,
		`SELECT name, start_time, end_time FROM pattern_meetings WHERE date = ? ORDER BY start_time, name`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	defer mrows.Close()
	for mrows.Next() {
		var m capacity.Meeting
		if err := mrows.Scan(&m.Name, &m.Start, &m.End); err != nil {
			return nil, err
		}
		p.Meetings = append(p.Meetings, m)
	}
	if err := mrows.Err(); err != nil {
		return nil, err
	}

	arows, err := s.db.QueryContext(ctx,
		`SELECT category, minutes FROM pattern_accumulated WHERE date = ?`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query accumulated: %w", err)
	}
	defer arows.Close()
	for arows.Next() {
		var category string
		var minutes int
		if err := arows.Scan(&category, &minutes); err != nil {
			return nil, err
		}
		p.Accumulated[category] = minutes
	}
	return p, arows.Err()
}
