package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

var _ db.Database = (*DB)(nil)

const eventColumns = `id, date, label, icon, start_time, end_time, capacity_driver, capacity_attendant`

func scanEvent(row pgx.Row) (db.Event, error) {
	var e db.Event
	var date time.Time
	if err := row.Scan(&e.ID, &date, &e.Label, &e.Icon, &e.StartTime, &e.EndTime, &e.CapacityDriver, &e.CapacityAttendant); err != nil {
		return db.Event{}, err
	}
	e.Date = date.Format(db.DateLayout)
	return e, nil
}

// GetEvent retrieves a single event by ID
func (d *DB) GetEvent(ctx context.Context, id int64) (*db.Event, error) {
	row := d.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id=%d", model.ErrEventNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &e, nil
}

// dateBound parses an optional YYYY-MM-DD bound. Empty yields nil, which the
// queries treat as an open end.
func dateBound(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(db.DateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid date bound %q: %w", value, err)
	}
	return &t, nil
}

// ListEvents retrieves events dated within [from, to], ordered by date.
// An empty bound is treated as open.
func (d *DB) ListEvents(ctx context.Context, from, to string) ([]db.Event, error) {
	fromDate, err := dateBound(from)
	if err != nil {
		return nil, err
	}
	toDate, err := dateBound(to)
	if err != nil {
		return nil, err
	}

	rows, err := d.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE ($1::date IS NULL OR date >= $1::date)
		  AND ($2::date IS NULL OR date <= $2::date)
		ORDER BY date, id
	`, fromDate, toDate)
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
	err := d.pool.QueryRow(ctx, `
		INSERT INTO events (date, label, icon, start_time, end_time, capacity_driver, capacity_attendant)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, event.Date, event.Label, event.Icon, event.StartTime, event.EndTime, event.CapacityDriver, event.CapacityAttendant).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// UpdateEventCapacity replaces both role capacities of an event. Nil clears a capacity.
func (d *DB) UpdateEventCapacity(ctx context.Context, id int64, capacityDriver, capacityAttendant *int) error {
	tag, err := d.pool.Exec(ctx, `
		UPDATE events SET capacity_driver = $2, capacity_attendant = $3 WHERE id = $1
	`, id, capacityDriver, capacityAttendant)
	if err != nil {
		return fmt.Errorf("failed to update event capacity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id=%d", model.ErrEventNotFound, id)
	}
	return nil
}

// DeleteEvent deletes an event together with its applications.
// Selections are kept as participation history.
func (d *DB) DeleteEvent(ctx context.Context, id int64) error {
	return d.withEventLock(ctx, id, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM applications WHERE event_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete applications: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete event: %w", err)
		}
		return nil
	})
}
