package commands

import (
	"cmp"
	"strings"

	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/pkg/interfaces"
)

// CommandLogger names handler loggers contractor.commands.<module>; blank
// modules log under "core".
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := cmp.Or(strings.TrimSpace(module), "core")
	return logging.WithFields(
		logging.ModuleLogger(provider, logging.CommandsModule+"."+name),
		map[string]any{"component": "command", "command_module": name},
	)
}
