package calendarclient

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/jakechorley/ride-rota/pkg/core/model"
	"github.com/jakechorley/ride-rota/pkg/db"
)

func strPtr(s string) *string { return &s }

func TestEventID(t *testing.T) {
	assert.Equal(t, "rota000042", EventID(42))
	assert.Equal(t, "rota1234567", EventID(1234567))
}

func TestBuildEvent_AllDay(t *testing.T) {
	event := db.Event{ID: 7, Date: "2026-03-02", Label: "Morning run"}

	calEvent, err := buildEvent(event, nil, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "rota000007", calEvent.Id)
	assert.Equal(t, "Morning run", calEvent.Summary)
	assert.Equal(t, "2026-03-02", calEvent.Start.Date)
	assert.Equal(t, "2026-03-03", calEvent.End.Date)
	assert.Equal(t, "Drivers: none\nAttendants: none", calEvent.Description)
}

func TestBuildEvent_Timed(t *testing.T) {
	event := db.Event{ID: 1, Date: "2026-03-02", Label: "Clinic", StartTime: strPtr("09:30"), EndTime: strPtr("11:00")}
	selections := []db.Selection{
		{Username: "alice", Role: model.RoleDriver},
		{Username: "bob", Role: model.RoleAttendant},
		{Username: "carol", Role: model.RoleAttendant},
	}

	calEvent, err := buildEvent(event, selections, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-02T09:30:00Z", calEvent.Start.DateTime)
	assert.Equal(t, "2026-03-02T11:00:00Z", calEvent.End.DateTime)
	assert.Equal(t, "UTC", calEvent.Start.TimeZone)
	assert.Equal(t, "Drivers: alice\nAttendants: bob, carol", calEvent.Description)
}

func TestBuildEvent_DefaultDuration(t *testing.T) {
	event := db.Event{ID: 1, Date: "2026-03-02", Label: "Clinic", StartTime: strPtr("23:30")}

	calEvent, err := buildEvent(event, nil, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-03T00:30:00Z", calEvent.End.DateTime)
}

func TestBuildEvent_InvalidInput(t *testing.T) {
	_, err := buildEvent(db.Event{Date: "02/03/2026"}, nil, time.UTC)
	assert.Error(t, err)

	_, err = buildEvent(db.Event{Date: "2026-03-02", StartTime: strPtr("9am")}, nil, time.UTC)
	assert.Error(t, err)
}

func TestIsStatus(t *testing.T) {
	notFound := fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound})

	assert.True(t, isStatus(notFound, http.StatusNotFound))
	assert.False(t, isStatus(notFound, http.StatusGone))
	assert.False(t, isStatus(errors.New("boom"), http.StatusNotFound))
}
