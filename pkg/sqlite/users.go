package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// GetUsers retrieves all users ordered by username
func (d *DB) GetUsers(ctx context.Context) ([]db.User, error) {
	rows, err := d.sqlDB.QueryContext(ctx, `
		SELECT username, role, familiar, COALESCE(email, '')
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []db.User
	for rows.Next() {
		var u db.User
		if err := rows.Scan(&u.Username, &u.Role, &u.Familiar, &u.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// GetUser retrieves a single user
func (d *DB) GetUser(ctx context.Context, username string) (*db.User, error) {
	var u db.User
	err := d.sqlDB.QueryRowContext(ctx, `
		SELECT username, role, familiar, COALESCE(email, '')
		FROM users
		WHERE username = ?
	`, username).Scan(&u.Username, &u.Role, &u.Familiar, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrUserNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// UpsertUser inserts a user or updates the existing record with the same username
func (d *DB) UpsertUser(ctx context.Context, user *db.User) error {
	var email sql.NullString
	if user.Email != "" {
		email = sql.NullString{String: user.Email, Valid: true}
	}

	_, err := d.sqlDB.ExecContext(ctx, `
		INSERT INTO users (username, role, familiar, email)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO UPDATE
		SET role = excluded.role, familiar = excluded.familiar, email = excluded.email
	`, user.Username, string(user.Role), string(user.Familiar), email)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// SetFamiliarity updates a user's familiarity
func (d *DB) SetFamiliarity(ctx context.Context, username string, familiar model.Familiarity) error {
	res, err := d.sqlDB.ExecContext(ctx, `UPDATE users SET familiar = ? WHERE username = ?`, string(familiar), username)
	if err != nil {
		return fmt.Errorf("failed to set familiarity: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", model.ErrUserNotFound, username)
	}
	return nil
}

// DeleteUser removes a user and their applications in one transaction
func (d *DB) DeleteUser(ctx context.Context, username string) (int, error) {
	var removed int64
	err := d.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", model.ErrUserNotFound, username)
		}

		res, err = tx.ExecContext(ctx, `DELETE FROM applications WHERE username = ?`, username)
		if err != nil {
			return fmt.Errorf("failed to delete applications: %w", err)
		}
		removed, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(removed), nil
}
