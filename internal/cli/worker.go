package cli

import (
	"os/signal"
	"syscall"

	"github.com/quantum-grit/your-sofia/signal-service/internal/app"
	"github.com/spf13/cobra"
)

func newWorkerCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume container state events and recompute assignment progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := openDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			services, err := app.NewServices(ctx, cfg, log, db)
			if err != nil {
				return err
			}
			defer services.Close()

			progressWorker, err := services.NewProgressWorker()
			if err != nil {
				return err
			}
			if err := progressWorker.Start(ctx); err != nil {
				return err
			}

			log.Info().Msg("Standalone progress worker started")
			<-ctx.Done()

			return progressWorker.Stop()
		},
	}
}
