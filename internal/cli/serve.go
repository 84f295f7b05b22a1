package cli

import (
	"github.com/spf13/cobra"

	"github.com/eraverse/sales-admin-service/internal/app"
	"github.com/eraverse/sales-admin-service/internal/config"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return app.Run(cmd.Context(), cfg)
		},
	}
}
