package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/metrics"
	"github.com/jakechorley/ride-rota/pkg/notify"
)

func TestSendReminders(t *testing.T) {
	store := newMockStore()
	// fixedClock is 2025-06-10
	inThree := store.addEvent("2025-06-13", nil, nil)
	tomorrow := store.addEvent("2025-06-11", nil, nil)
	later := store.addEvent("2025-06-20", nil, nil)
	store.confirmed(inThree, "A", model.RoleDriver, baseTime)
	store.confirmed(tomorrow, "B", model.RoleAttendant, baseTime)
	store.confirmed(later, "C", model.RoleDriver, baseTime)

	hooks := Hooks{Notifier: notify.NewStore(store, nil), Clock: fixedClock}

	result, err := SendReminders(context.Background(), store, zap.NewNop(), hooks, []int{3, 1}, time.UTC)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Zero(t, result.Skipped)

	require.Len(t, store.notifications, 2)
	assert.Equal(t, "A", store.notifications[0].Username)
	assert.Equal(t, "reminder_3days", store.notifications[0].Kind)
	assert.Equal(t, "B", store.notifications[1].Username)
	assert.Equal(t, "reminder_1day", store.notifications[1].Kind)
	assert.Contains(t, store.notifications[1].Message, "tomorrow")

	again, err := SendReminders(context.Background(), store, zap.NewNop(), hooks, []int{3, 1}, time.UTC)
	require.NoError(t, err)
	assert.Zero(t, again.Sent)
	assert.Equal(t, 2, again.Skipped)
	assert.Len(t, store.notifications, 2)
}

func TestSendReminders_UsesLocation(t *testing.T) {
	store := newMockStore()
	eventID := store.addEvent("2025-06-12", nil, nil)
	store.confirmed(eventID, "A", model.RoleDriver, baseTime)
	notifier := &recordingNotifier{}

	// 23:30 on the 10th in UTC is already the 11th in UTC+2
	loc := time.FixedZone("UTC+2", 2*60*60)
	clock := func() time.Time { return time.Date(2025, 6, 10, 23, 30, 0, 0, time.UTC) }

	result, err := SendReminders(context.Background(), store, zap.NewNop(), Hooks{Notifier: notifier, Clock: clock}, []int{1}, loc)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Sent)
	assert.Equal(t, []string{"reminder_1day"}, notifier.kindsFor("A"))
}

func TestSendReminders_InvalidLeadDays(t *testing.T) {
	store := newMockStore()

	_, err := SendReminders(context.Background(), store, zap.NewNop(), Hooks{}, []int{0}, time.UTC)

	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestSendReminders_FailedDeliveryIsNotCounted(t *testing.T) {
	store := newMockStore()
	tomorrow := store.addEvent("2025-06-11", nil, nil)
	store.confirmed(tomorrow, "A", model.RoleDriver, baseTime)
	store.confirmed(tomorrow, "B", model.RoleAttendant, baseTime)

	registry := prometheus.NewRegistry()
	hooks := Hooks{
		Notifier: &recordingNotifier{err: errors.New("smtp down")},
		Metrics:  metrics.NewManager(metrics.WithRegistry(registry)),
		Clock:    fixedClock,
	}

	result, err := SendReminders(context.Background(), store, zap.NewNop(), hooks, []int{1}, time.UTC)

	require.NoError(t, err)
	assert.Zero(t, result.Sent)
	assert.Equal(t, 2, result.Failed)
	assert.Empty(t, store.notifications)
	assert.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(`
# HELP ride_rota_reminders_total Total number of reminder notifications created
# TYPE ride_rota_reminders_total counter
ride_rota_reminders_total 0
`), "ride_rota_reminders_total"))

	// Nothing was recorded, so a later run with a working notifier sends both
	hooks.Notifier = notify.NewStore(store, nil)
	retry, err := SendReminders(context.Background(), store, zap.NewNop(), hooks, []int{1}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 2, retry.Sent)
	assert.Zero(t, retry.Failed)
}
