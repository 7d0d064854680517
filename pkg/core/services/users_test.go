package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/model"
)

func TestAddUser_Defaults(t *testing.T) {
	store := newMockStore()

	user, err := AddUser(context.Background(), store, zap.NewNop(), UserInput{Username: " alice "})

	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, model.UserRoleUser, user.Role)
	assert.Equal(t, model.FamiliarityUnknown, user.Familiar)
	assert.Contains(t, store.users, "alice")
}

func TestAddUser_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input UserInput
	}{
		{name: "missing username", input: UserInput{}},
		{name: "bad role", input: UserInput{Username: "a", Role: "owner"}},
		{name: "bad familiarity", input: UserInput{Username: "a", Familiar: "local"}},
		{name: "bad email", input: UserInput{Username: "a", Email: "not-an-email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			_, err := AddUser(context.Background(), store, zap.NewNop(), tt.input)
			assert.ErrorIs(t, err, model.ErrValidation)
			assert.Empty(t, store.users)
		})
	}
}

func TestSetFamiliar(t *testing.T) {
	store := newMockStore()
	store.addUser("alice", model.UserRoleUser, model.FamiliarityUnknown)

	require.NoError(t, SetFamiliar(context.Background(), store, zap.NewNop(), "alice", "Familiar"))
	assert.Equal(t, model.FamiliarityFamiliar, store.users["alice"].Familiar)

	err := SetFamiliar(context.Background(), store, zap.NewNop(), "alice", "sometimes")
	assert.ErrorIs(t, err, model.ErrValidation)

	err = SetFamiliar(context.Background(), store, zap.NewNop(), "nobody", "familiar")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	store := newMockStore()
	store.addUser("bob", model.UserRoleAdmin, model.FamiliarityFamiliar)
	store.addUser("alice", model.UserRoleUser, model.FamiliarityUnknown)

	users, err := ListUsers(context.Background(), store, zap.NewNop())

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
}

func TestDeleteUser_KeepsLedger(t *testing.T) {
	store := newMockStore()
	first := store.addEvent("2025-06-01", nil, nil)
	second := store.addEvent("2025-06-08", nil, nil)
	store.addUser("alice", model.UserRoleUser, model.FamiliarityFamiliar)
	store.addUser("bob", model.UserRoleUser, model.FamiliarityFamiliar)
	store.apply(first, "alice", model.RoleDriver, 0)
	store.apply(second, "alice", model.RoleAttendant, 1)
	store.apply(second, "bob", model.RoleDriver, 2)
	store.confirmed(first, "alice", model.RoleDriver, baseTime)

	removed, err := DeleteUser(context.Background(), store, zap.NewNop(), " alice ")

	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.NotContains(t, store.users, "alice")
	_, stillApplied := store.applicationRole(second, "alice")
	assert.False(t, stillApplied)
	_, bobApplied := store.applicationRole(second, "bob")
	assert.True(t, bobApplied)
	assert.Equal(t, []string{"alice"}, store.selectedAs(first, model.RoleDriver), "selections stay as history")
}

func TestDeleteUser_Errors(t *testing.T) {
	store := newMockStore()

	_, err := DeleteUser(context.Background(), store, zap.NewNop(), "  ")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = DeleteUser(context.Background(), store, zap.NewNop(), "nobody")
	assert.ErrorIs(t, err, model.ErrUserNotFound)
}
