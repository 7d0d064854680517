package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

func TestListAndMarkNotifications(t *testing.T) {
	store := newMockStore()
	store.notifications = []db.Notification{
		{ID: "n1", Username: "alice", Kind: "decided_driver", Message: "confirmed"},
		{ID: "n2", Username: "bob", Kind: "decided_attendant", Message: "confirmed"},
	}

	notifications, err := ListNotifications(context.Background(), store, zap.NewNop(), "alice")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Nil(t, notifications[0].ReadAt)

	require.NoError(t, MarkNotificationRead(context.Background(), store, zap.NewNop(), Hooks{Clock: fixedClock}, "n1"))
	require.NotNil(t, store.notifications[0].ReadAt)
	assert.Equal(t, fixedClock(), *store.notifications[0].ReadAt)

	_, err = ListNotifications(context.Background(), store, zap.NewNop(), "")
	assert.ErrorIs(t, err, model.ErrValidation)

	err = MarkNotificationRead(context.Background(), store, zap.NewNop(), Hooks{}, "")
	assert.ErrorIs(t, err, model.ErrValidation)
}
