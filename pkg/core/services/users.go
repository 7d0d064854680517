package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// AddUser creates a user or updates an existing one with the same username
func AddUser(ctx context.Context, store db.UserStore, logger *zap.Logger, input UserInput) (*db.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Familiar = strings.ToLower(strings.TrimSpace(input.Familiar))
	if input.Familiar == "" {
		input.Familiar = string(model.FamiliarityUnknown)
	}
	if input.Role == "" {
		input.Role = string(model.UserRoleUser)
	}

	if err := validateInput(input); err != nil {
		return nil, err
	}

	user := &db.User{
		Username: input.Username,
		Role:     model.UserRole(input.Role),
		Familiar: model.Familiarity(input.Familiar),
		Email:    strings.TrimSpace(input.Email),
	}
	if err := store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	logger.Info("Saved user",
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
		zap.String("familiar", string(user.Familiar)))

	return user, nil
}

// SetFamiliar updates a user's familiarity with the local area
func SetFamiliar(ctx context.Context, store db.UserStore, logger *zap.Logger, username, familiar string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", model.ErrValidation)
	}

	f, err := model.ParseFamiliarity(familiar)
	if err != nil {
		return err
	}

	if err := store.SetFamiliarity(ctx, username, f); err != nil {
		return fmt.Errorf("failed to set familiarity: %w", err)
	}

	logger.Info("Updated familiarity", zap.String("username", username), zap.String("familiar", string(f)))
	return nil
}

// DeleteUser removes a user and any applications they still hold.
// Their confirmed selections remain in the ledger, so other people's fairness history
// and the event rosters are unchanged.
func DeleteUser(ctx context.Context, store db.UserStore, logger *zap.Logger, username string) (int, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return 0, fmt.Errorf("%w: username is required", model.ErrValidation)
	}

	removed, err := store.DeleteUser(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user: %w", err)
	}

	logger.Info("Deleted user", zap.String("username", username), zap.Int("applications_removed", removed))
	return removed, nil
}

// ListUsers returns every user
func ListUsers(ctx context.Context, store db.UserStore, logger *zap.Logger) ([]db.User, error) {
	users, err := store.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}

	logger.Debug("Listed users", zap.Int("count", len(users)))
	return users, nil
}
