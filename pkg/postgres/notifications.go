package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/ride-rota/pkg/db"
)

// InsertNotification stores a notification
func (d *DB) InsertNotification(ctx context.Context, n *db.Notification) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO notifications (id, username, event_id, kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID, n.Username, n.EventID, n.Kind, n.Message, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// HasNotification reports whether a notification of the kind exists for the user and event
func (d *DB) HasNotification(ctx context.Context, username string, eventID int64, kind string) (bool, error) {
	var exists bool
	err := d.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notifications WHERE username = $1 AND event_id = $2 AND kind = $3
		)
	`, username, eventID, kind).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification: %w", err)
	}
	return exists, nil
}

// GetNotifications retrieves a user's notifications, newest first
func (d *DB) GetNotifications(ctx context.Context, username string) ([]db.Notification, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id::text, username, event_id, kind, message, created_at, read_at
		FROM notifications
		WHERE username = $1
		ORDER BY created_at DESC
	`, username)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []db.Notification
	for rows.Next() {
		var n db.Notification
		if err := rows.Scan(&n.ID, &n.Username, &n.EventID, &n.Kind, &n.Message, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// MarkNotificationRead sets the read time of a notification
func (d *DB) MarkNotificationRead(ctx context.Context, id string, readAt time.Time) error {
	_, err := d.pool.Exec(ctx, `UPDATE notifications SET read_at = $2 WHERE id = $1`, id, readAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
