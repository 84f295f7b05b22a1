package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eraverse/sales-admin-service/internal/config"
	"github.com/eraverse/sales-admin-service/internal/domain"
	"github.com/eraverse/sales-admin-service/internal/repository"
	"github.com/eraverse/sales-admin-service/internal/security"
)

// seed creates the first owner account so a fresh deployment can log in.
func newSeedCommand() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the initial owner account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return errors.New("both --username and --password are required")
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := repository.Open(cfg.DBDriver, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			if err := repository.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			users := repository.NewUserRepository(db)
			if _, err := users.FindByUsername(username); err == nil {
				return fmt.Errorf("user %q already exists", username)
			} else if !errors.Is(err, repository.ErrUserNotFound) {
				return err
			}

			hash, err := security.HashPassword(password)
			if err != nil {
				return err
			}
			user := &domain.User{
				Username: username,
				PassHash: hash,
				Role:     domain.RoleOwner,
				IsActive: true,
			}
			if err := users.Create(user); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created owner %q (id %d)\n", user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "owner username")
	cmd.Flags().StringVar(&password, "password", "", "owner password")
	return cmd
}
