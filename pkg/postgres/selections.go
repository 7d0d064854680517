package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// GetParticipationStats aggregates selection counts and latest decision time per (username, role)
func (d *DB) GetParticipationStats(ctx context.Context) ([]db.ParticipationStat, error) {
	rows, err := d.pool.Query(ctx, `
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
		if err := rows.Scan(&s.Username, &s.Role, &s.Times, &s.LastConfirmedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participation stat: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participation stats: %w", err)
	}

	return stats, nil
}

func collectSelections(rows pgx.Rows) ([]db.Selection, error) {
	defer rows.Close()

	var selections []db.Selection
	for rows.Next() {
		var s db.Selection
		if err := rows.Scan(&s.EventID, &s.Username, &s.Role, &s.DecidedAt); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		selections = append(selections, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating selections: %w", err)
	}

	return selections, nil
}

// GetSelections retrieves the selections of an event ordered by decision time
func (d *DB) GetSelections(ctx context.Context, eventID int64) ([]db.Selection, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT event_id, username, kind, decided_at
		FROM selections
		WHERE event_id = $1
		ORDER BY decided_at, username
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query selections: %w", err)
	}
	return collectSelections(rows)
}

// GetSelectionsOnDate retrieves the selections of every event on a date
func (d *DB) GetSelectionsOnDate(ctx context.Context, date string) ([]db.Selection, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT s.event_id, s.username, s.kind, s.decided_at
		FROM selections s
		JOIN events e ON e.id = s.event_id
		WHERE e.date = $1::date
		ORDER BY s.event_id, s.decided_at, s.username
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query selections on %s: %w", date, err)
	}
	return collectSelections(rows)
}

// GetSelectionHistory retrieves a person's selections with event details, newest event first
func (d *DB) GetSelectionHistory(ctx context.Context, username string) ([]db.SelectionHistoryEntry, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT s.event_id, s.username, s.kind, s.decided_at,
		       COALESCE(to_char(e.date, 'YYYY-MM-DD'), ''), COALESCE(e.label, '')
		FROM selections s
		LEFT JOIN events e ON e.id = s.event_id
		WHERE s.username = $1
		ORDER BY e.date DESC NULLS LAST, s.decided_at DESC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query selection history: %w", err)
	}
	defer rows.Close()

	var history []db.SelectionHistoryEntry
	for rows.Next() {
		var h db.SelectionHistoryEntry
		if err := rows.Scan(&h.EventID, &h.Username, &h.Role, &h.DecidedAt, &h.EventDate, &h.EventLabel); err != nil {
			return nil, fmt.Errorf("failed to scan selection history: %w", err)
		}
		history = append(history, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating selection history: %w", err)
	}

	return history, nil
}

// ReplaceSelections deletes every selection of the event and inserts the given set,
// all under the event lock. The previous selections are returned.
func (d *DB) ReplaceSelections(ctx context.Context, eventID int64, selections []db.Selection) ([]db.Selection, error) {
	var previous []db.Selection

	err := d.withEventLock(ctx, eventID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT event_id, username, kind, decided_at
			FROM selections
			WHERE event_id = $1
			ORDER BY decided_at, username
		`, eventID)
		if err != nil {
			return fmt.Errorf("failed to query previous selections: %w", err)
		}
		previous, err = collectSelections(rows)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM selections WHERE event_id = $1`, eventID); err != nil {
			return fmt.Errorf("failed to delete selections: %w", err)
		}

		for _, s := range selections {
			_, err := tx.Exec(ctx, `
				INSERT INTO selections (event_id, username, kind, decided_at)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (event_id, username, kind) DO NOTHING
			`, eventID, s.Username, s.Role, s.DecidedAt)
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
	var removed int
	err := d.withEventLock(ctx, eventID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM selections WHERE event_id = $1`, eventID)
		if err != nil {
			return fmt.Errorf("failed to delete selections: %w", err)
		}
		removed = int(tag.RowsAffected())
		return nil
	})
	return removed, err
}

// DeleteSelection removes a single selection
func (d *DB) DeleteSelection(ctx context.Context, eventID int64, username string, role model.Role) (bool, error) {
	var deleted bool
	err := d.withEventLock(ctx, eventID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			DELETE FROM selections WHERE event_id = $1 AND username = $2 AND kind = $3
		`, eventID, username, role)
		if err != nil {
			return fmt.Errorf("failed to delete selection: %w", err)
		}
		deleted = tag.RowsAffected() > 0
		return nil
	})
	return deleted, err
}

// roomForSelection checks, inside an event lock, that the role is below capacity and the
// person holds no selection for the event
func roomForSelection(ctx context.Context, tx pgx.Tx, eventID int64, username string, role model.Role, capacity int) (bool, error) {
	var roleCount int
	var alreadySelected bool
	err := tx.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE kind = $3),
			COALESCE(BOOL_OR(username = $2), false)
		FROM selections
		WHERE event_id = $1
	`, eventID, username, role).Scan(&roleCount, &alreadySelected)
	if err != nil {
		return false, fmt.Errorf("failed to count selections: %w", err)
	}
	return roleCount < capacity && !alreadySelected, nil
}

// InsertSelectionWithinCapacity inserts a selection if the role still has room
func (d *DB) InsertSelectionWithinCapacity(ctx context.Context, selection db.Selection, capacity int) (bool, error) {
	var inserted bool
	err := d.withEventLock(ctx, selection.EventID, func(tx pgx.Tx) error {
		ok, err := roomForSelection(ctx, tx, selection.EventID, selection.Username, selection.Role, capacity)
		if err != nil || !ok {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO selections (event_id, username, kind, decided_at)
			VALUES ($1, $2, $3, $4)
		`, selection.EventID, selection.Username, selection.Role, selection.DecidedAt)
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
	err := d.withEventLock(ctx, eventID, func(tx pgx.Tx) error {
		ok, err := roomForSelection(ctx, tx, eventID, username, model.RoleAttendant, capacity)
		if err != nil || !ok {
			return err
		}

		tag, err := tx.Exec(ctx, `
			UPDATE applications SET kind = $3
			WHERE event_id = $1 AND username = $2 AND kind = $4
		`, eventID, username, model.RoleAttendant, model.RoleDriver)
		if err != nil {
			return fmt.Errorf("failed to rewrite application: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO selections (event_id, username, kind, decided_at)
			VALUES ($1, $2, $3, $4)
		`, eventID, username, model.RoleAttendant, decidedAt)
		if err != nil {
			return fmt.Errorf("failed to insert selection: %w", err)
		}
		reassigned = true
		return nil
	})
	return reassigned, err
}
