package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/ride-rota/cmd/cli/commands"
	"github.com/jakechorley/ride-rota/internal/config"
	"github.com/jakechorley/ride-rota/pkg/clients/calendarclient"
	"github.com/jakechorley/ride-rota/pkg/clients/gmailclient"
	"github.com/jakechorley/ride-rota/pkg/core/services"
	"github.com/jakechorley/ride-rota/pkg/db"
	"github.com/jakechorley/ride-rota/pkg/metrics"
	"github.com/jakechorley/ride-rota/pkg/notify"
	"github.com/jakechorley/ride-rota/pkg/postgres"
	"github.com/jakechorley/ride-rota/pkg/sqlite"
	"github.com/jakechorley/ride-rota/pkg/utils"
	"github.com/jakechorley/ride-rota/pkg/utils/logging"
)

var env string

func main() {
	app := &commands.AppContext{Ctx: context.Background()}

	rootCmd := &cobra.Command{
		Use:   "cli",
		Short: "Ride Rota CLI - Fair selection of drivers and attendants",
		Long:  `A CLI tool for managing transport events, applications, and fair confirmation of drivers and attendants.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp(app)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Database != nil {
				app.Database.Close()
			}
			if app.Logger != nil {
				_ = app.Logger.Sync()
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (selects ride_rota_config.<env>.yaml)")

	rootCmd.AddCommand(commands.AddEventCmd(app))
	rootCmd.AddCommand(commands.ListEventsCmd(app))
	rootCmd.AddCommand(commands.SetCapacityCmd(app))
	rootCmd.AddCommand(commands.DeleteEventCmd(app))
	rootCmd.AddCommand(commands.DefineEventsCmd(app))
	rootCmd.AddCommand(commands.AddUserCmd(app))
	rootCmd.AddCommand(commands.SetFamiliarCmd(app))
	rootCmd.AddCommand(commands.DeleteUserCmd(app))
	rootCmd.AddCommand(commands.ListUsersCmd(app))
	rootCmd.AddCommand(commands.ApplyCmd(app))
	rootCmd.AddCommand(commands.WithdrawCmd(app))
	rootCmd.AddCommand(commands.ListApplicationsCmd(app))
	rootCmd.AddCommand(commands.ApplicationsOnCmd(app))
	rootCmd.AddCommand(commands.RankCmd(app))
	rootCmd.AddCommand(commands.AutoSelectCmd(app))
	rootCmd.AddCommand(commands.ConfirmCmd(app))
	rootCmd.AddCommand(commands.UnconfirmCmd(app))
	rootCmd.AddCommand(commands.CancelCmd(app))
	rootCmd.AddCommand(commands.ViewSelectionsCmd(app))
	rootCmd.AddCommand(commands.HistoryCmd(app))
	rootCmd.AddCommand(commands.NotificationsCmd(app))
	rootCmd.AddCommand(commands.RemindCmd(app))
	rootCmd.AddCommand(commands.InteractiveCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp loads config and sets up the logger, database, metrics and hooks
func initApp(app *commands.AppContext) error {
	var err error
	app.Env = env

	app.Cfg, err = config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	app.Logger, err = logging.InitLogger(env, app.Cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.Logger.Info("Starting application",
		zap.String("environment", env),
		zap.String("database_driver", app.Cfg.DatabaseDriver))

	app.Registry = prometheus.NewRegistry()
	app.Metrics = metrics.NewManager(metrics.WithRegistry(app.Registry))

	app.Logger.Info("Connecting to database")
	app.Database, err = openDatabase(app.Ctx, app.Cfg)
	if err != nil {
		return err
	}

	if err := app.Database.RunMigrations(app.Ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	app.Logger.Debug("Database ready")

	app.Hooks, err = buildHooks(app)
	if err != nil {
		return err
	}

	return nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (db.Database, error) {
	switch cfg.DatabaseDriver {
	case "sqlite":
		database, err := sqlite.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		return database, nil
	default:
		database, err := postgres.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return database, nil
	}
}

// buildHooks wires the notifiers and calendar sync enabled in config.
// Google clients share one OAuth token carrying every scope they need.
func buildHooks(app *commands.AppContext) (services.Hooks, error) {
	notifiers := notify.Multi{notify.NewStore(app.Database, app.Metrics)}
	hooks := services.Hooks{Metrics: app.Metrics}

	if app.Cfg.NeedsOAuth() {
		app.Logger.Info("Loading OAuth client configuration")
		oauthCfg, err := config.LoadOAuthClientWithEnv(app.Env)
		if err != nil {
			return hooks, fmt.Errorf("failed to load OAuth client config: %w", err)
		}

		oauthConfig, err := utils.GetOAuthConfig(oauthCfg, utils.RequiredScopes(app.Cfg))
		if err != nil {
			return hooks, err
		}

		token, err := utils.GetTokenWithFlow(app.Ctx, oauthConfig, app.Env, app.Logger)
		if err != nil {
			return hooks, fmt.Errorf("failed to get OAuth token: %w", err)
		}

		if app.Cfg.Notifications.Email {
			app.Logger.Info("Initializing gmail client")
			gmail, err := gmailclient.NewClient(app.Ctx, oauthConfig, token, app.Cfg.Notifications.GmailUserID, app.Cfg.Notifications.GmailSender)
			if err != nil {
				return hooks, fmt.Errorf("failed to create gmail client: %w", err)
			}
			notifiers = append(notifiers, notify.NewEmail(app.Database, gmail, app.Metrics))
		}

		if app.Cfg.Calendar.Enabled {
			app.Logger.Info("Initializing calendar client")
			cal, err := calendarclient.NewClient(app.Ctx, oauthConfig, token, app.Cfg.Calendar.CalendarID, app.Cfg.Location())
			if err != nil {
				return hooks, fmt.Errorf("failed to create calendar client: %w", err)
			}
			hooks.Calendar = cal
		}
	}

	hooks.Notifier = notifiers
	return hooks, nil
}
