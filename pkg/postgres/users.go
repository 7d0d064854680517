package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// GetUsers retrieves all users ordered by username
func (d *DB) GetUsers(ctx context.Context) ([]db.User, error) {
	rows, err := d.pool.Query(ctx, `
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
	err := d.pool.QueryRow(ctx, `
		SELECT username, role, familiar, COALESCE(email, '')
		FROM users
		WHERE username = $1
	`, username).Scan(&u.Username, &u.Role, &u.Familiar, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", model.ErrUserNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// UpsertUser inserts a user or updates the existing record with the same username
func (d *DB) UpsertUser(ctx context.Context, user *db.User) error {
	var email *string
	if user.Email != "" {
		email = &user.Email
	}

	_, err := d.pool.Exec(ctx, `
		INSERT INTO users (username, role, familiar, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO UPDATE
		SET role = EXCLUDED.role, familiar = EXCLUDED.familiar, email = EXCLUDED.email
	`, user.Username, user.Role, user.Familiar, email)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// SetFamiliarity updates a user's familiarity
func (d *DB) SetFamiliarity(ctx context.Context, username string, familiar model.Familiarity) error {
	tag, err := d.pool.Exec(ctx, `UPDATE users SET familiar = $2 WHERE username = $1`, username, familiar)
	if err != nil {
		return fmt.Errorf("failed to set familiarity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", model.ErrUserNotFound, username)
	}
	return nil
}

// DeleteUser removes a user and their applications in one transaction
func (d *DB) DeleteUser(ctx context.Context, username string) (int, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM users WHERE username = $1`, username)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, fmt.Errorf("%w: %s", model.ErrUserNotFound, username)
	}

	tag, err = tx.Exec(ctx, `DELETE FROM applications WHERE username = $1`, username)
	if err != nil {
		return 0, fmt.Errorf("failed to delete applications: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
