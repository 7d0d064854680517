package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// GetParticipationStats aggregates selection counts and latest decision time per (username, role)
func (d *DB) GetParticipationStats(ctx context.Context) ([]db.ParticipationStat, error) {
	rows, err := d.sqlDB.QueryContext(ctx, `
		SELECT username, kind, COUNT(*), MAX(decided_at)
		FROM selections
		GROUP BY username, kind
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query participation stats: %w", err)
	}
	defer rows.Close()

	var stats []db.ParticipationStat
	for rows.Next() {
		var s db.ParticipationStat
		var last sql.NullInt64
		if err := rows.Scan(&s.Username, &s.Role, &s.Times, &last); err != nil {
			return nil, fmt.Errorf("failed to scan participation stat: %w", err)
		}
		s.LastConfirmedAt = fromNullMillis(last)
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participation stats: %w", err)
	}

	return stats, nil
}

func querySelections(ctx context.Context, q queryer, query string, args ...any) ([]db.Selection, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query selections: %w", err)
	}
	defer rows.Close()

	var selections []db.Selection
	for rows.Next() {
		var s db.Selection
		var decidedAt int64
		if err := rows.Scan(&s.EventID, &s.Username, &s.Role, &decidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		s.DecidedAt = fromMillis(decidedAt)
		selections = append(selections, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating selections: %w", err)
	}

	return selections, nil
}

const eventSelectionsQuery = `
	SELECT event_id, username, kind, decided_at
	FROM selections
	WHERE event_id = ?
	ORDER BY decided_at, username
`

// GetSelections retrieves the selections of an event ordered by decision time
func (d *DB) GetSelections(ctx context.Context, eventID int64) ([]db.Selection, error) {
	return querySelections(ctx, d.sqlDB, eventSelectionsQuery, eventID)
}

// GetSelectionsOnDate retrieves the selections of every event on a date
func (d *DB) GetSelectionsOnDate(ctx context.Context, date string) ([]db.Selection, error) {
	return querySelections(ctx, d.sqlDB, `
		SELECT s.event_id, s.username, s.kind, s.decided_at
		FROM selections s
		JOIN events e ON e.id = s.event_id
		WHERE e.date = ?
		ORDER BY s.event_id, s.decided_at, s.username
	`, date)
}

// GetSelectionHistory retrieves a person's selections with event details, newest event first
func (d *DB) GetSelectionHistory(ctx context.Context, username string) ([]db.SelectionHistoryEntry, error) {
	rows, err := d.sqlDB.QueryContext(ctx, `
		SELECT s.event_id, s.username, s.kind, s.decided_at, COALESCE(e.date, ''), COALESCE(e.label, '')
		FROM selections s
		LEFT JOIN events e ON e.id = s.event_id
		WHERE s.username = ?
		ORDER BY e.date IS NULL, e.date DESC, s.decided_at DESC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query selection history: %w", err)
	}
	defer rows.Close()

	var history []db.SelectionHistoryEntry
	for rows.Next() {
		var h db.SelectionHistoryEntry
		var decidedAt int64
		if err := rows.Scan(&h.EventID, &h.Username, &h.Role, &decidedAt, &h.EventDate, &h.EventLabel); err != nil {
			return nil, fmt.Errorf("failed to scan selection history: %w", err)
		}
		h.DecidedAt = fromMillis(decidedAt)
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating selection history: %w", err)
	}

	return history, nil
}

// ReplaceSelections deletes every selection of the event and inserts the given set in one
// transaction. The previous selections are returned.
func (d *DB) ReplaceSelections(ctx context.Context, eventID int64, selections []db.Selection) ([]db.Selection, error) {
	var previous []db.Selection

	err := d.withEventLock(ctx, eventID, func(tx *sql.Tx) error {
		var err error
		previous, err = querySelections(ctx, tx, eventSelectionsQuery, eventID)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM selections WHERE event_id = ?`, eventID); err != nil {
			return fmt.Errorf("failed to delete selections: %w", err)
		}

		for _, s := range selections {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO selections (event_id, username, kind, decided_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT (event_id, username, kind) DO NOTHING
			`, eventID, s.Username, string(s.Role), toMillis(s.DecidedAt))
			if err != nil {
				return fmt.Errorf("failed to insert selection: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return previous, nil
}

// DeleteSelections removes every selection of an event
func (d *DB) DeleteSelections(ctx context.Context, eventID int64) (int, error) {
	var removed int64
	err := d.withEventLock(ctx, eventID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM selections WHERE event_id = ?`, eventID)
		if err != nil {
			return fmt.Errorf("failed to delete selections: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return int(removed), err
}

// DeleteSelection removes a single selection
func (d *DB) DeleteSelection(ctx context.Context, eventID int64, username string, role model.Role) (bool, error) {
	var removed int64
	err := d.withEventLock(ctx, eventID, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM selections WHERE event_id = ? AND username = ? AND kind = ?
		`, eventID, username, string(role))
		if err != nil {
			return fmt.Errorf("failed to delete selection: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	return removed > 0, err
}

// roomForSelection checks, inside the write transaction, that the role is below capacity
// and the person holds no selection for the event
func roomForSelection(ctx context.Context, tx *sql.Tx, eventID int64, username string, role model.Role, capacity int) (bool, error) {
	var roleCount, personCount int
	err := tx.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = ?2 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN username = ?3 THEN 1 ELSE 0 END), 0)
		FROM selections
		WHERE event_id = ?1
	`, eventID, string(role), username).Scan(&roleCount, &personCount)
	if err != nil {
		return false, fmt.Errorf("failed to count selections: %w", err)
	}
	return roleCount < capacity && personCount == 0, nil
}

// InsertSelectionWithinCapacity inserts a selection if the role still has room
func (d *DB) InsertSelectionWithinCapacity(ctx context.Context, selection db.Selection, capacity int) (bool, error) {
	var inserted bool
	err := d.withEventLock(ctx, selection.EventID, func(tx *sql.Tx) error {
		ok, err := roomForSelection(ctx, tx, selection.EventID, selection.Username, selection.Role, capacity)
		if err != nil || !ok {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO selections (event_id, username, kind, decided_at)
			VALUES (?, ?, ?, ?)
		`, selection.EventID, selection.Username, string(selection.Role), toMillis(selection.DecidedAt))
		if err != nil {
			return fmt.Errorf("failed to insert selection: %w", err)
		}
		inserted = true
		return nil
	})
	return inserted, err
}

// ReassignDriverAsAttendant confirms a driver applicant as attendant and rewrites their application
func (d *DB) ReassignDriverAsAttendant(ctx context.Context, eventID int64, username string, capacity int, decidedAt time.Time) (bool, error) {
	var reassigned bool
	err := d.withEventLock(ctx, eventID, func(tx *sql.Tx) error {
		ok, err := roomForSelection(ctx, tx, eventID, username, model.RoleAttendant, capacity)
		if err != nil || !ok {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE applications SET kind = ?
			WHERE event_id = ? AND username = ? AND kind = ?
		`, string(model.RoleAttendant), eventID, username, string(model.RoleDriver))
		if err != nil {
			return fmt.Errorf("failed to rewrite application: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO selections (event_id, username, kind, decided_at)
			VALUES (?, ?, ?, ?)
		`, eventID, username, string(model.RoleAttendant), toMillis(decidedAt))
		if err != nil {
			return fmt.Errorf("failed to insert selection: %w", err)
		}
		reassigned = true
		return nil
	})
	return reassigned, err
}
