package bootstrap

import (
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/goliatone/go-contractor"
	"github.com/goliatone/go-contractor/internal/di"
	"github.com/goliatone/go-contractor/internal/logging"
	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/google/uuid"
)

// Options captures the CLI overrides applied on top of the loaded config.
type Options struct {
	ConfigPath     string
	StorageDriver  string
	DSN            string
	LogLevel       string
	AutoMigrate    bool
	EnableBlog     bool
	ContentDir     string
	ContentFS      fs.FS
	Clock          func() time.Time
	LoggerProvider interfaces.LoggerProvider
	// CronRegistrar enables cron registration of the scheduled commands.
	CronRegistrar di.CronRegistrar
}

// Module wraps the contractor module with a CLI scoped logger.
type Module struct {
	Module    *contractor.Module
	Container *di.Container
	Logger    interfaces.Logger
}

// LoadConfig resolves the config file, environment and flag overrides.
func LoadConfig(opts Options) (contractor.Config, error) {
	cfg, err := contractor.LoadConfig(opts.ConfigPath)
	if err != nil {
		return cfg, err
	}
	if driver := strings.TrimSpace(opts.StorageDriver); driver != "" {
		cfg.Storage.Driver = driver
	}
	if dsn := strings.TrimSpace(opts.DSN); dsn != "" {
		cfg.Storage.DSN = dsn
	}
	if opts.AutoMigrate {
		cfg.Storage.AutoMigrate = true
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Features.Logger = true
		cfg.Logging.Level = level
	}
	if opts.EnableBlog {
		cfg.Features.Blog = true
	}
	if dir := strings.TrimSpace(opts.ContentDir); dir != "" {
		cfg.Blog.ContentDir = dir
	}
	if opts.CronRegistrar != nil {
		cfg.Commands.CronEnabled = true
	}
	return cfg, cfg.Validate()
}

// BuildModule constructs a contractor module for CLI operations.
func BuildModule(opts Options) (*Module, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	diOpts := []di.Option{}
	if opts.LoggerProvider != nil {
		diOpts = append(diOpts, di.WithLoggerProvider(opts.LoggerProvider))
	}
	if opts.ContentFS != nil {
		diOpts = append(diOpts, di.WithContentFS(opts.ContentFS))
	}
	if opts.Clock != nil {
		diOpts = append(diOpts, di.WithClock(opts.Clock))
	}
	if opts.CronRegistrar != nil {
		diOpts = append(diOpts, di.WithCronRegistrar(opts.CronRegistrar))
	}

	module, err := contractor.New(cfg, diOpts...)
	if err != nil {
		return nil, fmt.Errorf("initialise contractor module: %w", err)
	}

	return &Module{
		Module:    module,
		Container: module.Container(),
		Logger:    logging.ModuleLogger(module.Container().LoggerProvider(), logging.CommandsModule),
	}, nil
}

// ParseUUID converts the supplied string into a UUID, returning uuid.Nil when the input is empty.
func ParseUUID(value string) (uuid.UUID, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(trimmed)
}

// ParseDate accepts RFC 3339 timestamps or YYYY-MM-DD dates. Empty input
// returns nil.
func ParseDate(value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &ts, nil
	}
	ts, err := time.Parse(time.DateOnly, trimmed)
	if err != nil {
		return nil, fmt.Errorf("expected RFC 3339 or YYYY-MM-DD, got %q", value)
	}
	return &ts, nil
}
