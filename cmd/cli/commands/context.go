package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/internal/config"
	"github.com/jakechorley/ride-rota/pkg/core/services"
	"github.com/jakechorley/ride-rota/pkg/db"
	"github.com/jakechorley/ride-rota/pkg/metrics"
)

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Env      string
	Database db.Database
	Hooks    services.Hooks
	Metrics  *metrics.Manager
	Registry *prometheus.Registry
	Logger   *zap.Logger
	Ctx      context.Context
}

// parseEventID parses a positional event id argument
func parseEventID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("event_id must be a positive integer, got: %s", arg)
	}
	return id, nil
}

// optionalInt returns the flag value if it was set on the command line, nil otherwise
func optionalInt(cmd *cobra.Command, name string) (*int, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	v, err := cmd.Flags().GetInt(name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// optionalString returns the flag value if it was set to a non-empty value, nil otherwise
func optionalString(cmd *cobra.Command, name string) *string {
	v, _ := cmd.Flags().GetString(name)
	if v == "" {
		return nil
	}
	return &v
}

func iconFlag(cmd *cobra.Command) string {
	icon, _ := cmd.Flags().GetString("icon")
	return icon
}

// eventTitle is the event label prefixed with its icon, if any
func eventTitle(e *db.Event) string {
	if e.Icon == "" {
		return e.Label
	}
	return e.Icon + " " + e.Label
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatCapacity(capacity *int) string {
	if capacity == nil {
		return "default"
	}
	return strconv.Itoa(*capacity)
}
