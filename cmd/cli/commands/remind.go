package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/pkg/core/services"
)

// RemindCmd creates the remind command
func RemindCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Send reminders for upcoming confirmed events (use --daemon to run daily)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			daemon, _ := cmd.Flags().GetBool("daemon")

			if !daemon {
				result, err := services.SendReminders(app.Ctx, app.Database, app.Logger, app.Hooks, app.Cfg.ReminderLeadDays, app.Cfg.Location())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "\n✓ Sent %d reminders (%d already sent)\n", result.Sent, result.Skipped)
				if result.Failed > 0 {
					fmt.Fprintf(out, "⚠️  %d reminders failed and will be retried on the next run\n", result.Failed)
				}
				fmt.Fprintln(out)
				return nil
			}

			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runReminderDaemon(ctx, app)
		},
	}

	cmd.Flags().Bool("daemon", false, "Keep running and send reminders every day at the configured hour")

	return cmd
}

// runReminderDaemon sends reminders immediately and then daily until ctx is cancelled.
// Metrics are served on the configured address while it runs.
func runReminderDaemon(ctx context.Context, app *AppContext) error {
	if app.Cfg.MetricsAddr != "" && app.Registry != nil {
		server := startMetricsServer(app)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				app.Logger.Warn("Failed to stop metrics server", zap.Error(err))
			}
		}()
	}

	loc := app.Cfg.Location()
	hour := app.Cfg.ReminderHourOrDefault()

	for {
		sendReminders(ctx, app)

		next := nextReminderRun(time.Now(), hour, loc)
		app.Logger.Info("Next reminder run scheduled", zap.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			app.Logger.Info("Reminder daemon stopped")
			return nil
		case <-timer.C:
		}
	}
}

func sendReminders(ctx context.Context, app *AppContext) {
	result, err := services.SendReminders(ctx, app.Database, app.Logger, app.Hooks, app.Cfg.ReminderLeadDays, app.Cfg.Location())
	if err != nil {
		app.Logger.Error("Reminder run failed", zap.Error(err))
		return
	}
	app.Logger.Info("Reminder run complete", zap.Int("sent", result.Sent), zap.Int("skipped", result.Skipped), zap.Int("failed", result.Failed))
}

func startMetricsServer(app *AppContext) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              app.Cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		app.Logger.Info("Serving metrics", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return server
}

// nextReminderRun returns the next time after now at which the clock in loc reads hour:00
func nextReminderRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, 0, 0, 0, loc)
	}
	return next
}
