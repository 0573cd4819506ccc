package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-contractor/cmd/contractor/internal/bootstrap"
	invoicescmd "github.com/goliatone/go-contractor/internal/commands/invoices"
)

func sweepCmd(global *globalOptions) *cobra.Command {
	var tenant, asOf string

	cmd := &cobra.Command{
		Use:   "sweep-overdue",
		Short: "Mark past-due invoices as overdue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := bootstrap.ParseUUID(tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			at, err := bootstrap.ParseDate(asOf)
			if err != nil {
				return fmt.Errorf("invalid --as-of: %w", err)
			}

			module, err := moduleBuilder(global.bootstrap())
			if err != nil {
				return err
			}
			defer module.Module.Close(cmd.Context())

			msg := invoicescmd.SweepOverdueCommand{TenantID: tenantID, AsOf: at}
			if err := module.Container.SweepOverdueHandler().Execute(cmd.Context(), msg); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "overdue sweep completed")
			return nil
		},
	}

	cmd.Flags().StringVar(&tenant, "tenant", "", "limit the sweep to one tenant ID")
	cmd.Flags().StringVar(&asOf, "as-of", "", "reference date (RFC 3339 or YYYY-MM-DD, default now)")
	return cmd
}
