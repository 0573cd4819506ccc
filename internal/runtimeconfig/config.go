package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	urlkit "github.com/goliatone/go-urlkit"
)

var ErrStorageDriverUnknown = errors.New("contractor config: storage driver is invalid")
var ErrStorageDSNRequired = errors.New("contractor config: storage dsn is required for sql drivers")
var ErrLoggingProviderRequired = errors.New("contractor config: logging provider is required when logging feature is enabled")
var ErrLoggingProviderUnknown = errors.New("contractor config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("contractor config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("contractor config: logging format is invalid")
var ErrRetentionInvalid = errors.New("contractor config: activity retention must be zero or positive")
var ErrPaymentTermsInvalid = errors.New("contractor config: payment terms must be zero or positive")
var ErrTaxRateInvalid = errors.New("contractor config: default tax rate must be between 0 and 10000 basis points")
var ErrExportProviderUnknown = errors.New("contractor config: export provider is invalid")
var ErrExportBucketRequired = errors.New("contractor config: export bucket is required for s3 and minio")
var ErrExportEndpointRequired = errors.New("contractor config: export endpoint is required for minio")
var ErrExportDirRequired = errors.New("contractor config: export directory is required for the filesystem provider")

// ErrSchedulingRequiresBlog keeps post scheduling behind the blog feature.
var ErrSchedulingRequiresBlog = errors.New("contractor config: scheduling feature requires the blog feature")


// ErrBlogContentDirRequired is returned when the blog is enabled without a source directory.
var ErrBlogContentDirRequired = errors.New("contractor config: blog content directory is required when the blog is enabled")

// Config aggregates feature flags and adapter bindings for the contractor module.
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
	Invoices InvoicesConfig `yaml:"invoices"`
	Activity ActivityConfig `yaml:"activity"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Exports  ExportsConfig  `yaml:"exports"`
	Blog     BlogConfig     `yaml:"blog"`
	Links    LinksConfig    `yaml:"links"`
	Commands CommandsConfig `yaml:"commands"`
	Features Features       `yaml:"features"`
}

// StorageConfig selects the persistence driver.
type StorageConfig struct {
	Driver       string `yaml:"driver"`
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// CacheConfig captures cache behaviour toggles.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	DefaultTTL time.Duration `yaml:"default_ttl"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	BasePath        string        `yaml:"base_path"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// InvoicesConfig provides fallbacks for tenants that have not set their own.
type InvoicesConfig struct {
	NumberPrefix      string `yaml:"number_prefix"`
	PaymentTermsDays  int    `yaml:"payment_terms_days"`
	DefaultTaxRateBps int    `yaml:"default_tax_rate_bps"`
	Currency          string `yaml:"currency"`
}

type ActivityConfig struct {
	RetentionDays int `yaml:"retention_days"`
}

type RealtimeConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

// ExportsConfig selects the object store that receives generated files.
type ExportsConfig struct {
	Provider  string `yaml:"provider"`
	Dir       string `yaml:"dir"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// BlogConfig points the Markdown importer at its source tree.
type BlogConfig struct {
	ContentDir string `yaml:"content_dir"`
	Pattern    string `yaml:"pattern"`
	Recursive  bool   `yaml:"recursive"`
}

// LinksConfig feeds the go-urlkit route manager. RouteConfig, when set,
// replaces the generated route table.
type LinksConfig struct {
	BaseURL     string         `yaml:"base_url"`
	BlogPath    string         `yaml:"blog_path"`
	InvoicePath string         `yaml:"invoice_path"`
	RouteConfig *urlkit.Config `yaml:"-"`
}

// CommandsConfig captures cron expressions for the background commands.
type CommandsConfig struct {
	CronEnabled   bool   `yaml:"cron_enabled"`
	OverdueCron   string `yaml:"overdue_cron"`
	RetentionCron string `yaml:"retention_cron"`
	JobsCron      string `yaml:"jobs_cron"`
}

// Features toggles module functionality.
type Features struct {
	Blog       bool `yaml:"blog"`
	Realtime   bool `yaml:"realtime"`
	Exports    bool `yaml:"exports"`
	Imports    bool `yaml:"imports"`
	Scheduling bool `yaml:"scheduling"`
	Logger     bool `yaml:"logger"`
	Activity   bool `yaml:"activity"`
}

// DefaultConfig returns an in-memory setup suitable for tests and local runs.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Driver: "memory",
		},
		Cache: CacheConfig{
			Enabled:    true,
			DefaultTTL: time.Minute,
		},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			BasePath:        "/api",
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
		Invoices: InvoicesConfig{
			NumberPrefix:     "INV",
			PaymentTermsDays: 30,
			Currency:         "USD",
		},
		Activity: ActivityConfig{
			RetentionDays: 365,
		},
		Realtime: RealtimeConfig{
			BufferSize: 64,
		},
		Exports: ExportsConfig{
			Provider: "memory",
			Prefix:   "exports",
		},
		Blog: BlogConfig{
			ContentDir: "content/blog",
			Pattern:    "*.md",
			Recursive:  true,
		},
		Links: LinksConfig{
			BlogPath:    "/blog/:slug",
			InvoicePath: "/invoices/:number",
		},
		Commands: CommandsConfig{
			OverdueCron:   "@hourly",
			RetentionCron: "@daily",
			JobsCron:      "@every 1m",
		},
		Features: Features{
			Realtime: true,
			Exports:  true,
			Imports:  true,
			Activity: true,
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)); driver {
	case "", "memory":
	case "sqlite", "sqlite3", "postgres", "postgresql":
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return fmt.Errorf("%w: %s", ErrStorageDSNRequired, driver)
		}
	default:
		return fmt.Errorf("%w: %s", ErrStorageDriverUnknown, driver)
	}
	if cfg.Activity.RetentionDays < 0 {
		return ErrRetentionInvalid
	}
	if cfg.Invoices.PaymentTermsDays < 0 {
		return ErrPaymentTermsInvalid
	}
	if cfg.Invoices.DefaultTaxRateBps < 0 || cfg.Invoices.DefaultTaxRateBps > 10000 {
		return ErrTaxRateInvalid
	}
	if cfg.Features.Exports {
		if err := cfg.Exports.validate(); err != nil {
			return err
		}
	}
	if cfg.Features.Blog && strings.TrimSpace(cfg.Blog.ContentDir) == "" {
		return ErrBlogContentDirRequired
	}
	if cfg.Features.Scheduling && !cfg.Features.Blog {
		return ErrSchedulingRequiresBlog
	}
	if cfg.Features.Logger {
		provider := normalizeProvider(cfg.Logging.Provider)
		if provider == "" {
			return ErrLoggingProviderRequired
		}
		if !isSupportedProvider(provider) {
			return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
		}
		if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
			return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
		}
		if provider == "gologger" {
			if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
				return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
			}
		}
	}
	return nil
}

func (cfg ExportsConfig) validate() error {
	switch provider := strings.ToLower(strings.TrimSpace(cfg.Provider)); provider {
	case "", "memory":
		return nil
	case "filesystem":
		if strings.TrimSpace(cfg.Dir) == "" {
			return ErrExportDirRequired
		}
		return nil
	case "s3":
		if strings.TrimSpace(cfg.Bucket) == "" {
			return ErrExportBucketRequired
		}
		return nil
	case "minio":
		if strings.TrimSpace(cfg.Bucket) == "" {
			return ErrExportBucketRequired
		}
		if strings.TrimSpace(cfg.Endpoint) == "" {
			return ErrExportEndpointRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrExportProviderUnknown, provider)
	}
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
