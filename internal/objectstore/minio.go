package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goliatone/go-contractor/pkg/interfaces"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOStore stores objects in a MinIO (or S3 compatible) bucket.
type MinIOStore struct {
	client *minio.Client
	bucket string
	prefix string
}

func NewMinIOStore(cfg Config) (*MinIOStore, error) {
	if cfg.Bucket == "" {
		return nil, ErrBucketRequired
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("objectstore: minio endpoint is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: minio client: %w", err)
	}
	return &MinIOStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (m *MinIOStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*interfaces.Object, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := m.client.PutObject(ctx, m.bucket, prefixed(m.prefix, cleaned), body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("objectstore: minio put %s: %w", cleaned, err)
	}
	return &interfaces.Object{Key: cleaned, ContentType: contentType, Size: info.Size}, nil
}

func (m *MinIOStore) Get(ctx context.Context, key string) (io.ReadCloser, *interfaces.Object, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, nil, err
	}
	obj, err := m.client.GetObject(ctx, m.bucket, prefixed(m.prefix, cleaned), minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, convertMinIOError(err)
	}
	// GetObject is lazy; Stat surfaces missing keys.
	stat, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, nil, convertMinIOError(err)
	}
	return obj, &interfaces.Object{Key: cleaned, ContentType: stat.ContentType, Size: stat.Size}, nil
}

func (m *MinIOStore) Delete(ctx context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	full := prefixed(m.prefix, cleaned)
	if _, err := m.client.StatObject(ctx, m.bucket, full, minio.StatObjectOptions{}); err != nil {
		return convertMinIOError(err)
	}
	if err := m.client.RemoveObject(ctx, m.bucket, full, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("objectstore: minio delete %s: %w", cleaned, err)
	}
	return nil
}

func convertMinIOError(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return interfaces.ErrObjectNotFound
	}
	return fmt.Errorf("objectstore: minio: %w", err)
}
