package clients

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory implementation for tests and the memory
// storage driver.
type MemoryRepository struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{clients: make(map[uuid.UUID]*Client)}
}

func (m *MemoryRepository) Create(_ context.Context, record *Client) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := cloneClient(record)
	m.clients[copied.ID] = copied
	return cloneClient(copied), nil
}

func (m *MemoryRepository) GetByID(_ context.Context, tenantID, id uuid.UUID) (*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.clients[id]
	if !ok || !visible(rec, tenantID) {
		return nil, &NotFoundError{Resource: "client", Key: id.String()}
	}
	return cloneClient(rec), nil
}

func (m *MemoryRepository) GetByEmail(_ context.Context, tenantID uuid.UUID, email string) (*Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	normalized := strings.ToLower(strings.TrimSpace(email))
	for _, rec := range m.clients {
		if visible(rec, tenantID) && strings.ToLower(rec.Email) == normalized {
			return cloneClient(rec), nil
		}
	}
	return nil, &NotFoundError{Resource: "client", Key: normalized}
}

func (m *MemoryRepository) List(_ context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Client, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	term := strings.ToLower(strings.TrimSpace(opts.Search))
	out := []*Client{}
	for _, rec := range m.clients {
		if !visible(rec, tenantID) {
			continue
		}
		if term != "" && !matches(rec, term) {
			continue
		}
		out = append(out, cloneClient(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	return paginate(out, opts.Limit, opts.Offset), total, nil
}

func (m *MemoryRepository) Update(_ context.Context, record *Client) (*Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.clients[record.ID]
	if !ok || existing.TenantID != record.TenantID {
		return nil, &NotFoundError{Resource: "client", Key: record.ID.String()}
	}
	copied := cloneClient(record)
	m.clients[copied.ID] = copied
	return cloneClient(copied), nil
}

func visible(rec *Client, tenantID uuid.UUID) bool {
	return rec.TenantID == tenantID && rec.DeletedAt == nil
}

func matches(rec *Client, term string) bool {
	return strings.Contains(strings.ToLower(rec.Name), term) ||
		strings.Contains(strings.ToLower(rec.CompanyName), term) ||
		strings.Contains(strings.ToLower(rec.Email), term)
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return []T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneClient(src *Client) *Client {
	if src == nil {
		return nil
	}
	copied := *src
	if src.DeletedAt != nil {
		deleted := *src.DeletedAt
		copied.DeletedAt = &deleted
	}
	return &copied
}
