package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilManagerIsNoop(t *testing.T) {
	var m *Manager

	assert.NotPanics(t, func() {
		m.RecordConfirmation()
		m.RecordUnconfirmation()
		m.RecordCancellation("driver")
		m.RecordPromotion("attendant", "fallback")
		m.RecordUnderstaffed("attendant")
		m.RecordDegradedRanking()
		m.RecordNotification("decided_driver", "store")
		m.RecordReminder()
		m.ObserveOperation("confirm", time.Now())
	})
}

func TestManagerCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewManager(WithRegistry(registry), WithNamespace("test"))

	m.RecordConfirmation()
	m.RecordConfirmation()
	m.RecordPromotion("driver", "ranked")
	m.RecordPromotion("attendant", "fallback")
	m.RecordNotification("reminder_1day", "email")
	m.ObserveOperation("auto_select", time.Now())

	assert.Equal(t, float64(2), testutil.ToFloat64(m.confirmations))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.promotions.WithLabelValues("driver", "ranked")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.promotions.WithLabelValues("attendant", "fallback")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.notifications.WithLabelValues("reminder_1day", "email")))

	families, err := registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_confirmations_total")
	assert.Contains(t, names, "test_operation_duration_seconds")
}

func TestNewManager_DuplicateRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewManager(WithRegistry(registry))

	assert.Panics(t, func() {
		NewManager(WithRegistry(registry))
	})
}
