package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/internal/config"
	"github.com/jakechorley/ride-rota/pkg/core/services"
	"github.com/jakechorley/ride-rota/pkg/metrics"
	"github.com/jakechorley/ride-rota/pkg/notify"
	"github.com/jakechorley/ride-rota/pkg/sqlite"
)

// newTestApp builds a root command wired to a fresh SQLite database
func newTestApp(t *testing.T) (*AppContext, *cobra.Command) {
	t.Helper()
	ctx := context.Background()

	database, err := sqlite.NewDB(ctx, filepath.Join(t.TempDir(), "rota.db"))
	require.NoError(t, err)
	t.Cleanup(database.Close)
	require.NoError(t, database.RunMigrations(ctx))

	registry := prometheus.NewRegistry()
	m := metrics.NewManager(metrics.WithRegistry(registry))
	hour := 9
	app := &AppContext{
		Cfg: &config.Config{
			DatabaseDriver:   "sqlite",
			Timezone:         "UTC",
			ReminderHour:     &hour,
			ReminderLeadDays: []int{3, 1},
			EventTemplates: []config.EventTemplate{
				{RRule: "FREQ=WEEKLY;BYDAY=SU", Label: "Sunday run", StartTime: "10:00"},
			},
		},
		Database: database,
		Hooks:    services.Hooks{Notifier: notify.NewStore(database, m), Metrics: m},
		Metrics:  m,
		Registry: registry,
		Logger:   zap.NewNop(),
		Ctx:      ctx,
	}

	root := &cobra.Command{Use: "cli", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		AddEventCmd(app), ListEventsCmd(app), SetCapacityCmd(app), DeleteEventCmd(app), DefineEventsCmd(app),
		AddUserCmd(app), SetFamiliarCmd(app), DeleteUserCmd(app), ListUsersCmd(app),
		ApplyCmd(app), WithdrawCmd(app), ListApplicationsCmd(app), ApplicationsOnCmd(app),
		RankCmd(app), AutoSelectCmd(app), ConfirmCmd(app), UnconfirmCmd(app), CancelCmd(app),
		ViewSelectionsCmd(app), HistoryCmd(app), NotificationsCmd(app), RemindCmd(app), InteractiveCmd(app),
	)

	return app, root
}

// run executes one command line and returns its output. Flags keep their values
// across Execute calls on the same tree, so they are reset first.
func run(t *testing.T, root *cobra.Command, args ...string) (string, error) {
	t.Helper()
	for _, sub := range root.Commands() {
		resetFlags(sub)
	}
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, root *cobra.Command, args ...string) string {
	t.Helper()
	out, err := run(t, root, args...)
	require.NoError(t, err, "command %v", args)
	return out
}

func TestSelectionFlow(t *testing.T) {
	_, root := newTestApp(t)

	out := mustRun(t, root, "addEvent", "2030-06-16", "Hospital run", "--drivers", "1", "--attendants", "1")
	assert.Contains(t, out, "Event 1 created")

	mustRun(t, root, "addUser", "dan", "--familiar", "unfamiliar")
	mustRun(t, root, "addUser", "uma", "--familiar", "unfamiliar")
	mustRun(t, root, "addUser", "fay", "--familiar", "familiar")
	mustRun(t, root, "addUser", "boss", "--role", "admin")

	mustRun(t, root, "apply", "1", "dan", "driver")
	mustRun(t, root, "apply", "1", "uma", "attendant")
	mustRun(t, root, "apply", "1", "fay", "attendant")

	_, err := run(t, root, "apply", "1", "dan", "attendant")
	assert.Error(t, err, "role exclusivity")

	out = mustRun(t, root, "rank", "1", "attendant", "--json")
	var ranked []struct {
		Username string `json:"username"`
		Rank     int    `json:"rank"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &ranked))
	require.Len(t, ranked, 2)
	assert.ElementsMatch(t, []string{"uma", "fay"}, []string{ranked[0].Username, ranked[1].Username})
	assert.Equal(t, 1, ranked[0].Rank)

	out = mustRun(t, root, "autoSelect", "1", "--json")
	var proposal struct {
		Driver    []string `json:"driver"`
		Attendant []string `json:"attendant"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &proposal))
	assert.Equal(t, []string{"dan"}, proposal.Driver)
	assert.Equal(t, []string{"fay"}, proposal.Attendant)

	out = mustRun(t, root, "autoSelect", "1", "--confirm")
	assert.Contains(t, out, "Drivers:    dan")
	assert.Contains(t, out, "Attendants: fay")

	out = mustRun(t, root, "cancel", "1", "fay", "attendant", "--json")
	var cancel services.CancelResult
	require.NoError(t, json.Unmarshal([]byte(out), &cancel))
	assert.True(t, cancel.OK)
	assert.Equal(t, []string{"uma"}, cancel.Promoted)

	out = mustRun(t, root, "viewSelections", "1", "--json")
	var selections services.EventSelections
	require.NoError(t, json.Unmarshal([]byte(out), &selections))
	assert.Equal(t, []string{"dan"}, selections.Driver)
	assert.Equal(t, []string{"uma"}, selections.Attendant)

	out = mustRun(t, root, "history", "uma")
	assert.Contains(t, out, "2030-06-16")

	out = mustRun(t, root, "notifications", "uma")
	assert.Contains(t, out, "promote_attendant")

	out = mustRun(t, root, "deleteUser", "uma")
	assert.Contains(t, out, "Deleted uma (1 applications removed)")
	out = mustRun(t, root, "history", "uma")
	assert.Contains(t, out, "2030-06-16", "history survives user deletion")

	out = mustRun(t, root, "unconfirm", "1")
	assert.Contains(t, out, "Removed 2 confirmations")
}

func TestApplicationsOnCmd(t *testing.T) {
	_, root := newTestApp(t)

	mustRun(t, root, "addEvent", "2030-06-16", "Hospital run", "--icon", "🚑")
	mustRun(t, root, "addEvent", "2030-06-16", "Shopping run")
	mustRun(t, root, "addEvent", "2030-06-23", "Hospital run")
	mustRun(t, root, "apply", "1", "dan", "driver")
	mustRun(t, root, "apply", "3", "fay", "attendant")

	out := mustRun(t, root, "applicationsOn", "2030-06-16")
	assert.Contains(t, out, "Event 1: 🚑 Hospital run (1 applications)")
	assert.Contains(t, out, "Event 2: Shopping run (0 applications)")
	assert.NotContains(t, out, "fay")

	out = mustRun(t, root, "applicationsOn", "2030-06-16", "--json")
	var grouped []services.EventApplications
	require.NoError(t, json.Unmarshal([]byte(out), &grouped))
	require.Len(t, grouped, 2)
	assert.Equal(t, "🚑", grouped[0].Event.Icon)
	require.Len(t, grouped[0].Applications, 1)
	assert.Equal(t, "dan", grouped[0].Applications[0].Username)

	out = mustRun(t, root, "applicationsOn", "2030-06-17")
	assert.Contains(t, out, "No events on 2030-06-17")

	_, err := run(t, root, "applicationsOn", "tomorrow")
	assert.Error(t, err)
}

func TestConfirmCmd_CapacityError(t *testing.T) {
	_, root := newTestApp(t)
	mustRun(t, root, "addEvent", "2030-06-16", "Run")

	_, err := run(t, root, "confirm", "1", "--driver", "a,b")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver selection exceeds capacity (1)")
}

func TestDefineEventsCmd(t *testing.T) {
	_, root := newTestApp(t)

	out := mustRun(t, root, "defineEvents", "2030-06-01", "2030-06-30")
	assert.Contains(t, out, "Created 5 events")

	out = mustRun(t, root, "defineEvents", "2030-06-01", "2030-06-30")
	assert.Contains(t, out, "Created 0 events (5 already existed)")
}

func TestParseEventID(t *testing.T) {
	id, err := parseEventID("12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, bad := range []string{"0", "-3", "abc", ""} {
		_, err := parseEventID(bad)
		assert.Error(t, err, bad)
	}
}

func TestNextReminderRun(t *testing.T) {
	loc := time.FixedZone("UTC+1", 60*60)

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before the hour runs today",
			now:  time.Date(2030, 6, 10, 6, 0, 0, 0, time.UTC),
			want: time.Date(2030, 6, 10, 9, 0, 0, 0, loc),
		},
		{
			name: "at the hour runs tomorrow",
			now:  time.Date(2030, 6, 10, 8, 0, 0, 0, time.UTC),
			want: time.Date(2030, 6, 11, 9, 0, 0, 0, loc),
		},
		{
			name: "late evening crosses midnight in the location",
			now:  time.Date(2030, 6, 10, 23, 30, 0, 0, time.UTC),
			want: time.Date(2030, 6, 11, 9, 0, 0, 0, loc),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(nextReminderRun(tt.now, 9, loc)))
		})
	}
}

func TestParseCommandLine(t *testing.T) {
	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: "apply 1 dan driver", want: []string{"apply", "1", "dan", "driver"}},
		{line: `addEvent 2030-06-16 "Hospital run"`, want: []string{"addEvent", "2030-06-16", "Hospital run"}},
		{line: `addUser 'o b' --email ""`, want: []string{"addUser", "o b", "--email", ""}},
		{line: `addEvent "unterminated`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommandLine(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunSession(t *testing.T) {
	_, root := newTestApp(t)
	var out bytes.Buffer
	root.SetOut(&out)

	input := strings.Join([]string{
		`addEvent 2030-06-16 "Hospital run"`,
		"confirm 1 --driver dan",
		"confirm 1",
		"viewSelections 1",
		"bogus",
		"help",
		"exit",
		"listEvents",
	}, "\n")

	err := runSession(strings.NewReader(input), &out, sessionCommands(root))

	require.NoError(t, err)
	text := out.String()
	assert.Contains(t, text, "Event 1 created: Hospital run")
	assert.Contains(t, text, "Drivers:    (none)", "slice flags are reset between commands")
	assert.Contains(t, text, "Unknown command: bogus")
	assert.Contains(t, text, "Available commands:")
	assert.NotContains(t, text, "Found 1 events", "commands after exit are not run")
}
