package commands

import (
	"github.com/spf13/cobra"

	"github.com/goliatone/go-contractor/cmd/contractor/internal/bootstrap"
)

// moduleBuilder is swapped in tests to inject clocks and content trees.
var moduleBuilder = bootstrap.BuildModule

type globalOptions struct {
	configPath    string
	storageDriver string
	dsn           string
	logLevel      string
}

func (g *globalOptions) bootstrap() bootstrap.Options {
	return bootstrap.Options{
		ConfigPath:    g.configPath,
		StorageDriver: g.storageDriver,
		DSN:           g.dsn,
		LogLevel:      g.logLevel,
	}
}

// Execute runs the contractor CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	global := &globalOptions{}

	root := &cobra.Command{
		Use:           "contractor",
		Short:         "Invoicing and project tracking for independent contractors",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&global.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&global.storageDriver, "storage-driver", "", "storage driver (memory, sqlite, postgres)")
	root.PersistentFlags().StringVar(&global.dsn, "dsn", "", "storage connection string")
	root.PersistentFlags().StringVar(&global.logLevel, "log-level", "", "enable console logging at the given level")

	root.AddCommand(
		serveCmd(global),
		migrateCmd(global),
		sweepCmd(global),
		exportCmd(global),
		importPostsCmd(global),
		renderCmd(),
	)
	return root
}
