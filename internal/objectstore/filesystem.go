package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/goliatone/go-contractor/pkg/interfaces"
)

// FilesystemStore writes objects below a root directory. Content types are
// sniffed on read.
type FilesystemStore struct {
	root string
}

func NewFilesystemStore(root string) (*FilesystemStore, error) {
	if root == "" {
		return nil, ErrDirRequired
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: create root: %w", err)
	}
	return &FilesystemStore{root: root}, nil
}

func (f *FilesystemStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (*interfaces.Object, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	target := f.path(cleaned)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, fmt.Errorf("objectstore: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("objectstore: create temp: %w", err)
	}
	written, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("objectstore: write %s: %w", cleaned, errors.Join(copyErr, closeErr))
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("objectstore: commit %s: %w", cleaned, err)
	}
	return &interfaces.Object{Key: cleaned, ContentType: contentType, Size: written}, nil
}

func (f *FilesystemStore) Get(_ context.Context, key string) (io.ReadCloser, *interfaces.Object, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, nil, err
	}
	target := f.path(cleaned)
	info, err := os.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, interfaces.ErrObjectNotFound
		}
		return nil, nil, err
	}
	contentType := "application/octet-stream"
	if detected, err := mimetype.DetectFile(target); err == nil {
		contentType = detected.String()
	}
	file, err := os.Open(target)
	if err != nil {
		return nil, nil, err
	}
	return file, &interfaces.Object{Key: cleaned, ContentType: contentType, Size: info.Size()}, nil
}

func (f *FilesystemStore) Delete(_ context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(f.path(cleaned)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return interfaces.ErrObjectNotFound
		}
		return err
	}
	return nil
}

func (f *FilesystemStore) path(key string) string {
	return filepath.Join(f.root, filepath.FromSlash(key))
}
