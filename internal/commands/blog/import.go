package blogcmd

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-contractor/internal/blog"
	"github.com/goliatone/go-contractor/internal/commands"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	command "github.com/goliatone/go-command"
)

const importMessageType = "blog.import"

var _ command.Commander[ImportPostsCommand] = (*ImportPostsHandler)(nil)

// DirectoryImporter turns a tree of Markdown files into posts.
type DirectoryImporter interface {
	ImportDirectory(ctx context.Context, dir string, opts blog.ImportOptions) (*blog.ImportResult, error)
}

// ImportPostsCommand syncs posts from Directory. An empty directory uses the
// handler default.
type ImportPostsCommand struct {
	Directory string `json:"directory,omitempty"`
	Author    string `json:"author,omitempty"`
	DryRun    bool   `json:"dry_run,omitempty"`
}

func (ImportPostsCommand) Type() string { return importMessageType }

func (m ImportPostsCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Author, validation.Length(0, 120)),
	)
}

type ImportPostsHandler struct {
	inner     *commands.Handler[ImportPostsCommand]
	directory string
	last      *blog.ImportResult
}

type ImportOption func(*ImportPostsHandler)

// ImportWithDirectory sets the directory used when the message has none.
func ImportWithDirectory(dir string) ImportOption {
	return func(h *ImportPostsHandler) {
		h.directory = strings.TrimSpace(dir)
	}
}

func NewImportPostsHandler(importer DirectoryImporter, logger interfaces.Logger, opts ...ImportOption) *ImportPostsHandler {
	baseLogger := commands.EnsureLogger(logger)
	h := &ImportPostsHandler{}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	exec := func(ctx context.Context, msg ImportPostsCommand) error {
		dir := strings.TrimSpace(msg.Directory)
		if dir == "" {
			dir = h.directory
		}
		if dir == "" {
			return validation.Errors{"directory": validation.ErrRequired}
		}
		result, err := importer.ImportDirectory(ctx, dir, blog.ImportOptions{DryRun: msg.DryRun, Author: msg.Author})
		if err != nil {
			return err
		}
		h.last = result
		logging.WithFields(baseLogger, map[string]any{
			"directory": dir,
			"created":   len(result.Created),
			"updated":   len(result.Updated),
			"unchanged": len(result.Unchanged),
			"scheduled": len(result.Scheduled),
			"issues":    len(result.Issues),
			"dry_run":   msg.DryRun,
		}).Info("blog.command.import.completed")
		return nil
	}

	h.inner = commands.NewHandler(exec,
		commands.WithLogger[ImportPostsCommand](baseLogger),
		commands.WithOperation[ImportPostsCommand]("blog.import"),
		commands.WithMessageFields(func(msg ImportPostsCommand) map[string]any {
			return map[string]any{"directory": msg.Directory, "dry_run": msg.DryRun}
		}),
	)
	return h
}

func (h *ImportPostsHandler) Execute(ctx context.Context, msg ImportPostsCommand) error {
	return h.inner.Execute(ctx, msg)
}

// Last returns the result of the most recent successful import.
func (h *ImportPostsHandler) Last() *blog.ImportResult {
	return h.last
}

func (h *ImportPostsHandler) CLIHandler() any {
	return h
}

func (h *ImportPostsHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"blog", "import"},
		Group:       "blog",
		Description: "Import Markdown posts from a directory",
	}
}
