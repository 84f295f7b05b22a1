package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sales-admin",
		Short:         "Sales and inventory admin panel backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// A missing .env is fine; the process environment wins
			// either way.
			if envFile != "" {
				return godotenv.Load(envFile)
			}
			_ = godotenv.Load()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file to load before reading configuration")

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newSeedCommand())
	return root
}

func Execute() error {
	return NewRootCommand().Execute()
}
