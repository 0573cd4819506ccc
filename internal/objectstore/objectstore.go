// Package objectstore provides interfaces.ObjectStore implementations for the
// local filesystem, process memory, AWS S3 and MinIO.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/goliatone/go-contractor/pkg/interfaces"
)

const (
	ProviderMemory     = "memory"
	ProviderFilesystem = "filesystem"
	ProviderS3         = "s3"
	ProviderMinIO      = "minio"
)

var (
	ErrUnknownProvider = errors.New("objectstore: unknown provider")
	ErrInvalidKey      = errors.New("objectstore: invalid object key")
	ErrBucketRequired  = errors.New("objectstore: bucket is required")
	ErrDirRequired     = errors.New("objectstore: directory is required")
)

// Config selects and configures a provider.
type Config struct {
	Provider  string
	Dir       string
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// New builds the store described by cfg.
func New(ctx context.Context, cfg Config) (interfaces.ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderMemory:
		return NewMemoryStore(), nil
	case ProviderFilesystem:
		return NewFilesystemStore(cfg.Dir)
	case ProviderS3:
		return NewS3Store(ctx, cfg)
	case ProviderMinIO:
		return NewMinIOStore(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// cleanKey normalizes a key and rejects absolute or escaping paths.
func cleanKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" || strings.HasPrefix(trimmed, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

func prefixed(prefix, key string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
