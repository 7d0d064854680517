package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

var _ db.Database = (*DB)(nil)

const eventColumns = `id, date, label, icon, start_time, end_time, capacity_driver, capacity_attendant`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (db.Event, error) {
	var e db.Event
	err := row.Scan(&e.ID, &e.Date, &e.Label, &e.Icon, &e.StartTime, &e.EndTime, &e.CapacityDriver, &e.CapacityAttendant)
	return e, err
}

// GetEvent retrieves a single event by ID
func (d *DB) GetEvent(ctx context.Context, id int64) (*db.Event, error) {
	row := d.sqlDB.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", model.ErrEventNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

// ListEvents retrieves events dated within [from, to], ordered by date.
// An empty bound is treated as open.
func (d *DB) ListEvents(ctx context.Context, from, to string) ([]db.Event, error) {
	rows, err := d.sqlDB.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE (?1 = '' OR date >= ?1)
		  AND (?2 = '' OR date <= ?2)
		ORDER BY date, id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []db.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// InsertEvent inserts a new event and sets its generated ID
func (d *DB) InsertEvent(ctx context.Context, event *db.Event) error {
	res, err := d.sqlDB.ExecContext(ctx, `
		INSERT INTO events (date, label, icon, start_time, end_time, capacity_driver, capacity_attendant)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, event.Date, event.Label, event.Icon, event.StartTime, event.EndTime, event.CapacityDriver, event.CapacityAttendant)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read event id: %w", err)
	}
	event.ID = id
	return nil
}

// UpdateEventCapacity replaces both role capacities of an event. Nil clears a capacity.
func (d *DB) UpdateEventCapacity(ctx context.Context, id int64, capacityDriver, capacityAttendant *int) error {
	res, err := d.sqlDB.ExecContext(ctx, `
		UPDATE events SET capacity_driver = ?, capacity_attendant = ? WHERE id = ?
	`, capacityDriver, capacityAttendant, id)
	if err != nil {
		return fmt.Errorf("failed to update event capacity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: id=%d", model.ErrEventNotFound, id)
	}
	return nil
}

// DeleteEvent deletes an event together with its applications.
// Selections are kept as participation history.
func (d *DB) DeleteEvent(ctx context.Context, id int64) error {
	return d.withEventLock(ctx, id, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM applications WHERE event_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete applications: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		return nil
	})
}
