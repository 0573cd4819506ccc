package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-contractor/pkg/interfaces"
)

type memoryObject struct {
	data        []byte
	contentType string
}

// MemoryStore keeps objects in process memory. It is used by tests and the
// default development configuration.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (m *MemoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) (*interfaces.Object, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("objectstore: read body: %w", err)
	}
	m.mu.Lock()
	m.objects[cleaned] = memoryObject{data: data, contentType: contentType}
	m.mu.Unlock()
	return &interfaces.Object{Key: cleaned, ContentType: contentType, Size: int64(len(data))}, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, *interfaces.Object, error) {
	cleaned, err := cleanKey(key)
	if err != nil {
		return nil, nil, err
	}
	m.mu.RLock()
	obj, ok := m.objects[cleaned]
	m.mu.RUnlock()
	if !ok {
		return nil, nil, interfaces.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), &interfaces.Object{
		Key:         cleaned,
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
	}, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	cleaned, err := cleanKey(key)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[cleaned]; !ok {
		return interfaces.ErrObjectNotFound
	}
	delete(m.objects, cleaned)
	return nil
}

// Keys lists stored keys with the given prefix in lexical order.
func (m *MemoryStore) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
