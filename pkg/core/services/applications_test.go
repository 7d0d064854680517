package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/model"
)

func TestApply_RoleExclusivity(t *testing.T) {
	store := newMockStore()
	eventID := store.addEvent("2025-06-15", nil, nil)

	created, err := Apply(context.Background(), store, zap.NewNop(), eventID, "alice", "driver")
	require.NoError(t, err)
	assert.True(t, created)

	_, err = Apply(context.Background(), store, zap.NewNop(), eventID, "alice", "attendant")
	assert.ErrorIs(t, err, model.ErrRoleConflict)
	assert.Len(t, store.applications, 1)
}

func TestApply_Idempotent(t *testing.T) {
	store := newMockStore()
	eventID := store.addEvent("2025-06-15", nil, nil)

	_, err := Apply(context.Background(), store, zap.NewNop(), eventID, "alice", "driver")
	require.NoError(t, err)
	created, err := Apply(context.Background(), store, zap.NewNop(), eventID, " alice ", "driver")

	require.NoError(t, err)
	assert.False(t, created)
	assert.Len(t, store.applications, 1)
}

func TestApply_Validation(t *testing.T) {
	store := newMockStore()
	eventID := store.addEvent("2025-06-15", nil, nil)

	_, err := Apply(context.Background(), store, zap.NewNop(), eventID, "alice", "Driver")
	assert.ErrorIs(t, err, model.ErrInvalidRole)

	_, err = Apply(context.Background(), store, zap.NewNop(), 12, "alice", "driver")
	assert.ErrorIs(t, err, model.ErrEventNotFound)

	assert.Empty(t, store.applications)
}

func TestWithdraw_KeepsSelection(t *testing.T) {
	store := newMockStore()
	eventID := store.addEvent("2025-06-15", nil, nil)
	store.apply(eventID, "alice", model.RoleDriver, 0)
	store.confirmed(eventID, "alice", model.RoleDriver, baseTime)

	deleted, err := Withdraw(context.Background(), store, zap.NewNop(), eventID, "alice", "driver")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, store.applications)
	assert.Len(t, store.selections, 1)

	deleted, err = Withdraw(context.Background(), store, zap.NewNop(), eventID, "alice", "driver")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestListApplications(t *testing.T) {
	store := newMockStore()
	eventID := store.addEvent("2025-06-15", nil, nil)
	store.apply(eventID, "alice", model.RoleDriver, 0)
	store.apply(eventID, "bob", model.RoleAttendant, 1)

	apps, err := ListApplications(context.Background(), store, zap.NewNop(), eventID)

	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "alice", apps[0].Username)

	_, err = ListApplications(context.Background(), store, zap.NewNop(), 77)
	assert.ErrorIs(t, err, model.ErrEventNotFound)
}

func TestListApplicationsOnDate(t *testing.T) {
	store := newMockStore()
	morning := store.addEvent("2025-06-15", nil, nil)
	afternoon := store.addEvent("2025-06-15", nil, nil)
	other := store.addEvent("2025-06-22", nil, nil)
	store.apply(morning, "alice", model.RoleDriver, 0)
	store.apply(morning, "bob", model.RoleAttendant, 1)
	store.apply(other, "carol", model.RoleDriver, 2)

	grouped, err := ListApplicationsOnDate(context.Background(), store, zap.NewNop(), "2025-06-15")

	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Equal(t, morning, grouped[0].Event.ID)
	assert.Len(t, grouped[0].Applications, 2)
	assert.Equal(t, afternoon, grouped[1].Event.ID)
	assert.NotNil(t, grouped[1].Applications)
	assert.Empty(t, grouped[1].Applications)

	none, err := ListApplicationsOnDate(context.Background(), store, zap.NewNop(), "2025-06-16")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = ListApplicationsOnDate(context.Background(), store, zap.NewNop(), "15 June")
	assert.ErrorIs(t, err, model.ErrValidation)
}
