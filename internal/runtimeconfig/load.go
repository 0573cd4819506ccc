package runtimeconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONTRACTOR_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads a YAML file over DefaultConfig and applies CONTRACTOR_*
// environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("contractor config: read %s: %w", path, err)
		}
		if err := Decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("contractor config: parse %s: %w", path, err)
		}
	}
	if err := ApplyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Decode unmarshals YAML into cfg, keeping values absent from data. Unknown
// keys are rejected.
func Decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return err
	}
	return nil
}

type envBinding struct {
	key   string
	apply func(cfg *Config, value string) error
}

var envBindings = []envBinding{
	{"STORAGE_DRIVER", func(cfg *Config, v string) error { cfg.Storage.Driver = v; return nil }},
	{"STORAGE_DSN", func(cfg *Config, v string) error { cfg.Storage.DSN = v; return nil }},
	{"STORAGE_AUTO_MIGRATE", func(cfg *Config, v string) error { return setBool(&cfg.Storage.AutoMigrate, v) }},
	{"HTTP_ADDR", func(cfg *Config, v string) error { cfg.HTTP.Addr = v; return nil }},
	{"HTTP_BASE_PATH", func(cfg *Config, v string) error { cfg.HTTP.BasePath = v; return nil }},
	{"LOG_PROVIDER", func(cfg *Config, v string) error { cfg.Logging.Provider = v; return nil }},
	{"LOG_LEVEL", func(cfg *Config, v string) error { cfg.Logging.Level = v; return nil }},
	{"LOG_FORMAT", func(cfg *Config, v string) error { cfg.Logging.Format = v; return nil }},
	{"EXPORTS_PROVIDER", func(cfg *Config, v string) error { cfg.Exports.Provider = v; return nil }},
	{"EXPORTS_DIR", func(cfg *Config, v string) error { cfg.Exports.Dir = v; return nil }},
	{"EXPORTS_BUCKET", func(cfg *Config, v string) error { cfg.Exports.Bucket = v; return nil }},
	{"EXPORTS_ENDPOINT", func(cfg *Config, v string) error { cfg.Exports.Endpoint = v; return nil }},
	{"EXPORTS_REGION", func(cfg *Config, v string) error { cfg.Exports.Region = v; return nil }},
	{"EXPORTS_ACCESS_KEY", func(cfg *Config, v string) error { cfg.Exports.AccessKey = v; return nil }},
	{"EXPORTS_SECRET_KEY", func(cfg *Config, v string) error { cfg.Exports.SecretKey = v; return nil }},
	{"BLOG_CONTENT_DIR", func(cfg *Config, v string) error { cfg.Blog.ContentDir = v; return nil }},
	{"LINKS_BASE_URL", func(cfg *Config, v string) error { cfg.Links.BaseURL = v; return nil }},
	{"ACTIVITY_RETENTION_DAYS", func(cfg *Config, v string) error { return setInt(&cfg.Activity.RetentionDays, v) }},
}

// ApplyEnv overlays environment values onto cfg. Empty values are ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if cfg == nil || lookup == nil {
		return nil
	}
	var errs []error
	for _, binding := range envBindings {
		value, ok := lookup(EnvPrefix + binding.key)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := binding.apply(cfg, strings.TrimSpace(value)); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, binding.key, err))
		}
	}
	return errors.Join(errs...)
}

func setBool(target *bool, value string) error {
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}

func setInt(target *int, value string) error {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*target = parsed
	return nil
}
