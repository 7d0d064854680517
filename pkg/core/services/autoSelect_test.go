package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/model"
)

func TestAutoSelect_PrefersFamiliarAttendantForUnfamiliarDriver(t *testing.T) {
	store := newMockStore()
	eventID := store.addEvent("2025-06-15", intPtr(1), intPtr(1))
	store.addUser("dan", model.UserRoleUser, model.FamiliarityUnfamiliar)
	store.addUser("uma", model.UserRoleUser, model.FamiliarityUnfamiliar)
	store.addUser("fay", model.UserRoleUser, model.FamiliarityFamiliar)
	store.apply(eventID, "dan", model.RoleDriver, 0)
	store.apply(eventID, "uma", model.RoleAttendant, 1)
	store.apply(eventID, "fay", model.RoleAttendant, 2)

	proposal, err := AutoSelect(context.Background(), store, zap.NewNop(), Hooks{}, eventID)

	require.NoError(t, err)
	assert.Equal(t, []string{"dan"}, proposal.Driver)
	assert.Equal(t, []string{"fay"}, proposal.Attendant)
	assert.Empty(t, store.selections, "auto-select must not persist anything")
}

func TestAutoSelect_AdmitsUnfamiliarAttendantWhenNoAlternative(t *testing.T) {
	store := newMockStore()
	eventID := store.addEvent("2025-06-15", intPtr(1), intPtr(1))
	store.addUser("dan", model.UserRoleUser, model.FamiliarityUnfamiliar)
	store.addUser("uma", model.UserRoleUser, model.FamiliarityUnfamiliar)
	store.apply(eventID, "dan", model.RoleDriver, 0)
	store.apply(eventID, "uma", model.RoleAttendant, 1)

	proposal, err := AutoSelect(context.Background(), store, zap.NewNop(), Hooks{}, eventID)

	require.NoError(t, err)
	assert.Equal(t, []string{"uma"}, proposal.Attendant)
}

func TestAutoSelect_DefaultCapacityAndRanking(t *testing.T) {
	store := newMockStore()
	past := store.addEvent("2025-05-01", nil, nil)
	eventID := store.addEvent("2025-06-15", nil, intPtr(2))
	store.confirmed(past, "busy", model.RoleDriver, baseTime)
	store.apply(eventID, "busy", model.RoleDriver, 0)
	store.apply(eventID, "fresh", model.RoleDriver, 1)
	store.apply(eventID, "a1", model.RoleAttendant, 0)
	store.apply(eventID, "a2", model.RoleAttendant, 1)
	store.apply(eventID, "a3", model.RoleAttendant, 2)

	proposal, err := AutoSelect(context.Background(), store, zap.NewNop(), Hooks{}, eventID)

	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, proposal.Driver)
	assert.Equal(t, []string{"a1", "a2"}, proposal.Attendant)
}

func TestAutoSelect_ZeroCapacityAndEmptyRoles(t *testing.T) {
	store := newMockStore()
	eventID := store.addEvent("2025-06-15", intPtr(0), nil)
	store.apply(eventID, "dan", model.RoleDriver, 0)

	proposal, err := AutoSelect(context.Background(), store, zap.NewNop(), Hooks{}, eventID)

	require.NoError(t, err)
	assert.NotNil(t, proposal.Driver)
	assert.Empty(t, proposal.Driver)
	assert.NotNil(t, proposal.Attendant)
	assert.Empty(t, proposal.Attendant)
}

func TestAutoSelect_UsersUnavailable(t *testing.T) {
	store := newMockStore()
	eventID := store.addEvent("2025-06-15", nil, nil)
	store.apply(eventID, "dan", model.RoleDriver, 0)
	store.apply(eventID, "uma", model.RoleAttendant, 1)
	store.getUsersErr = errors.New("connection reset")

	proposal, err := AutoSelect(context.Background(), store, zap.NewNop(), Hooks{}, eventID)

	require.NoError(t, err)
	assert.Equal(t, []string{"dan"}, proposal.Driver)
	assert.Equal(t, []string{"uma"}, proposal.Attendant)
}

func TestAutoSelect_EventNotFound(t *testing.T) {
	store := newMockStore()

	_, err := AutoSelect(context.Background(), store, zap.NewNop(), Hooks{}, 42)

	assert.ErrorIs(t, err, model.ErrEventNotFound)
}
