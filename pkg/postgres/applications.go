package postgres

import (
	"context"
	"fmt"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// GetApplications retrieves the applications of an event ordered by creation time
func (d *DB) GetApplications(ctx context.Context, eventID int64) ([]db.Application, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, event_id, username, kind, created_at
		FROM applications
		WHERE event_id = $1
		ORDER BY created_at, id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var applications []db.Application
	for rows.Next() {
		var a db.Application
		if err := rows.Scan(&a.ID, &a.EventID, &a.Username, &a.Role, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		applications = append(applications, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating applications: %w", err)
	}

	return applications, nil
}

// InsertApplication records an application, enforcing one role per person per event.
// The (event_id, username) unique constraint makes the check race-free.
func (d *DB) InsertApplication(ctx context.Context, eventID int64, username string, role model.Role) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		INSERT INTO applications (event_id, username, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, username) DO NOTHING
	`, eventID, username, role)
	if err != nil {
		return false, fmt.Errorf("failed to insert application: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var existing model.Role
	err = d.pool.QueryRow(ctx, `
		SELECT kind FROM applications WHERE event_id = $1 AND username = $2
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
	tag, err := d.pool.Exec(ctx, `
		DELETE FROM applications WHERE event_id = $1 AND username = $2 AND kind = $3
	`, eventID, username, role)
	if err != nil {
		return false, fmt.Errorf("failed to delete application: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
