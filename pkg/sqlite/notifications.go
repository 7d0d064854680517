package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jakechorley/ride-rota/pkg/db"
)

// InsertNotification stores a notification
func (d *DB) InsertNotification(ctx context.Context, n *db.Notification) error {
	var eventID sql.NullInt64
	if n.EventID != nil {
		eventID = sql.NullInt64{Int64: *n.EventID, Valid: true}
	}

	_, err := d.sqlDB.ExecContext(ctx, `
		INSERT INTO notifications (id, username, event_id, kind, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, n.ID, n.Username, eventID, n.Kind, n.Message, toMillis(n.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("notification %s already exists: %w", n.ID, err)
		}
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// HasNotification reports whether a notification of the kind exists for the user and event
func (d *DB) HasNotification(ctx context.Context, username string, eventID int64, kind string) (bool, error) {
	var exists bool
	err := d.sqlDB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications WHERE username = ? AND event_id = ? AND kind = ?
		)
	`, username, eventID, kind).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification: %w", err)
	}
	return exists, nil
}

// GetNotifications retrieves a user's notifications, newest first
func (d *DB) GetNotifications(ctx context.Context, username string) ([]db.Notification, error) {
	rows, err := d.sqlDB.QueryContext(ctx, `
		SELECT id, username, event_id, kind, message, created_at, read_at
		FROM notifications
		WHERE username = ?
		ORDER BY created_at DESC, id
	`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []db.Notification
	for rows.Next() {
		var n db.Notification
		var eventID, readAt sql.NullInt64
		var createdAt int64
		if err := rows.Scan(&n.ID, &n.Username, &eventID, &n.Kind, &n.Message, &createdAt, &readAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if eventID.Valid {
			id := eventID.Int64
			n.EventID = &id
		}
		n.CreatedAt = fromMillis(createdAt)
		n.ReadAt = fromNullMillis(readAt)
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkNotificationRead sets the read time of a notification
func (d *DB) MarkNotificationRead(ctx context.Context, id string, readAt time.Time) error {
	_, err := d.sqlDB.ExecContext(ctx, `UPDATE notifications SET read_at = ? WHERE id = ?`, toMillis(readAt), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
