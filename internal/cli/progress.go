package cli

import (
	"encoding/json"

	"github.com/quantum-grit/your-sofia/signal-service/internal/app"
	"github.com/spf13/cobra"
)

func newProgressCmd(a *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "progress <assignment-id>",
		Short: "Compute the progress of an assignment from the live container states",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(a)
			if err != nil {
				return err
			}
			log := newLogger(cfg)

			db, err := openDatabase(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			services, err := app.NewServices(cmd.Context(), cfg, log, db)
			if err != nil {
				return err
			}
			defer services.Close()

			progress, err := services.Progress.GetProgress(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(progress)
			}
			return renderProgress(cmd.OutOrStdout(), progress, a.NoColor)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the progress as JSON")
	return cmd
}
