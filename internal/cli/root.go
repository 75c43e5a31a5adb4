package cli

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/quantum-grit/your-sofia/signal-service/internal/config"
	"github.com/quantum-grit/your-sofia/signal-service/internal/database"
	"github.com/quantum-grit/your-sofia/signal-service/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
	NoColor    bool
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "signal-service",
		Short:        "Waste container signals, crew assignments and progress",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Run the HTTP API (default)
  signal-service

  # Apply database migrations
  signal-service migrate up

  # Consume container state events only
  signal-service worker

  # Show progress of an assignment
  signal-service progress 9c0a1b2d-3e4f-4a5b-8c6d-7e8f9a0b1c2d
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, app)
		},
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", "", "Path to config file (default: ./config/config.yaml or ./config.yaml)")
	cmd.PersistentFlags().BoolVar(&app.NoColor, "no-color", false, "Disable colored terminal output")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newMigrateCmd(app))
	cmd.AddCommand(newWorkerCmd(app))
	cmd.AddCommand(newCatalogCmd(app))
	cmd.AddCommand(newProgressCmd(app))

	return cmd
}

func loadConfig(app *App) (*config.Config, error) {
	if app.ConfigPath != "" {
		return config.LoadFile(app.ConfigPath)
	}
	return config.Load()
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logger.NewWithConfig(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)
}

// openDatabase connects and pings Postgres within five seconds.
func openDatabase(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sql.DB, error) {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Database connection established")
	return db, nil
}
