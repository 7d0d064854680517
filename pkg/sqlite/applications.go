package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// GetApplications retrieves the applications of an event ordered by creation time
func (d *DB) GetApplications(ctx context.Context, eventID int64) ([]db.Application, error) {
	rows, err := d.sqlDB.QueryContext(ctx, `
		SELECT id, event_id, username, kind, created_at
		FROM applications
		WHERE event_id = ?
		ORDER BY created_at, id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var applications []db.Application
	for rows.Next() {
		var a db.Application
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.EventID, &a.Username, &a.Role, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		a.CreatedAt = fromMillis(createdAt)
		applications = append(applications, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return applications, nil
}

// InsertApplication records an application, enforcing one role per person per event
func (d *DB) InsertApplication(ctx context.Context, eventID int64, username string, role model.Role) (bool, error) {
	res, err := d.sqlDB.ExecContext(ctx, `
		INSERT INTO applications (event_id, username, kind, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (event_id, username) DO NOTHING
	`, eventID, username, string(role), toMillis(time.Now()))
	if err != nil {
		return false, fmt.Errorf("failed to insert application: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}

	var existing model.Role
	err = d.sqlDB.QueryRowContext(ctx, `
		SELECT kind FROM applications WHERE event_id = ? AND username = ?
	`, eventID, username).Scan(&existing)
	if err != nil {
		return false, fmt.Errorf("failed to read existing application: %w", err)
	}
	if existing != role {
		return false, fmt.Errorf("%w: %s already applied as %s", model.ErrRoleConflict, username, existing)
	}
	return false, nil
}

// DeleteApplication removes an application, returning false if it did not exist
func (d *DB) DeleteApplication(ctx context.Context, eventID int64, username string, role model.Role) (bool, error) {
	res, err := d.sqlDB.ExecContext(ctx, `
		DELETE FROM applications WHERE event_id = ? AND username = ? AND kind = ?
	`, eventID, username, string(role))
	if err != nil {
		return false, fmt.Errorf("failed to delete application: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
