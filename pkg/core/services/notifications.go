package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

// ListNotifications returns a user's notifications, newest first
func ListNotifications(ctx context.Context, store db.NotificationStore, logger *zap.Logger, username string) ([]db.Notification, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", model.ErrValidation)
	}

	notifications, err := store.GetNotifications(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}

	logger.Debug("Listed notifications", zap.String("username", username), zap.Int("count", len(notifications)))
	return notifications, nil
}

// MarkNotificationRead marks a notification as read
func MarkNotificationRead(ctx context.Context, store db.NotificationStore, logger *zap.Logger, hooks Hooks, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: notification id is required", model.ErrValidation)
	}

	if err := store.MarkNotificationRead(ctx, id, hooks.now()); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	logger.Debug("Marked notification read", zap.String("id", id))
	return nil
}
