package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-contractor/cmd/contractor/internal/bootstrap"
	"github.com/goliatone/go-contractor/internal/storage"
)

var errMigrateRequiresSQL = errors.New("migrate requires the sqlite or postgres storage driver")

func migrateCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := global.bootstrap()
			opts.AutoMigrate = true

			cfg, err := bootstrap.LoadConfig(opts)
			if err != nil {
				return err
			}
			if storage.NormalizeDriver(cfg.Storage.Driver) == storage.DriverMemory {
				return errMigrateRequiresSQL
			}

			module, err := moduleBuilder(opts)
			if err != nil {
				return err
			}
			defer module.Module.Close(cmd.Context())

			module.Logger.Info("cli.migrate.completed", "driver", cfg.Storage.Driver)
			fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", storage.NormalizeDriver(cfg.Storage.Driver))
			return nil
		},
	}
}
