package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-contractor/cmd/contractor/internal/bootstrap"
	handlers "github.com/goliatone/go-contractor/internal/commands"
	exportscmd "github.com/goliatone/go-contractor/internal/commands/exports"
	"github.com/goliatone/go-contractor/internal/exports"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/google/uuid"
)

var errTenantRequired = errors.New("--tenant is required")

type exportOptions struct {
	tenant string
	kind   string
	out    string
	store  bool
}

func exportCmd(global *globalOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a tenant dataset as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tenantID, err := bootstrap.ParseUUID(opts.tenant)
			if err != nil {
				return fmt.Errorf("invalid --tenant: %w", err)
			}
			kind, err := exports.ParseKind(opts.kind)
			if err != nil {
				return err
			}

			module, err := moduleBuilder(global.bootstrap())
			if err != nil {
				return err
			}
			defer module.Module.Close(cmd.Context())

			if opts.store {
				handler := module.Container.GenerateExportHandler()
				if handler == nil {
					return handlers.FeatureDisabled("exports")
				}
				msg := exportscmd.GenerateExportCommand{TenantID: tenantID, Kind: string(kind)}
				if err := handler.Execute(cmd.Context(), msg); err != nil {
					return err
				}
				result := handler.Last()
				fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%d rows, %d bytes)\n", result.Key, result.Rows, result.Size)
				return nil
			}

			svc := module.Module.Exports()
			if svc == nil {
				return handlers.FeatureDisabled("exports")
			}
			if tenantID == uuid.Nil {
				return errTenantRequired
			}

			var w io.Writer = cmd.OutOrStdout()
			if opts.out != "" && opts.out != "-" {
				file, err := os.Create(opts.out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}

			rows, err := svc.Write(tenancy.WithTenant(cmd.Context(), tenantID), kind, w)
			if err != nil {
				return err
			}
			module.Logger.Info("cli.export.completed", "tenant_id", tenantID, "kind", kind, "rows", rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.tenant, "tenant", "", "tenant ID (required)")
	cmd.Flags().StringVar(&opts.kind, "kind", "", "dataset: invoices, expenses, clients or activity")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().BoolVar(&opts.store, "store", false, "write to the configured object store instead of a file")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
