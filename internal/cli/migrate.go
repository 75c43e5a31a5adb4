package cli

import (
	"fmt"

	"github.com/quantum-grit/your-sofia/signal-service/internal/database"
	"github.com/spf13/cobra"
)

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}

			cfg, err := loadConfig(app)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			migrator, err := database.NewMigrator(cfg.Database)
			if err != nil {
				return err
			}

			switch direction {
			case "up":
				if err := migrator.Up(); err != nil {
					return err
				}
				log.Info().Msg("Migrations applied successfully")
			case "down":
				if err := migrator.Down(); err != nil {
					return err
				}
				log.Info().Msg("Migrations rolled back successfully")
			default:
				return fmt.Errorf("invalid migration direction %q, use up or down", direction)
			}
			return nil
		},
	}
}
