package products

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory catalog used in tests and memory mode.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[uuid.UUID]*Product
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{products: make(map[uuid.UUID]*Product)}
}

func (m *MemoryRepository) Create(_ context.Context, record *Product) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := cloneProduct(record)
	m.products[copied.ID] = copied
	return cloneProduct(copied), nil
}

func (m *MemoryRepository) GetByID(_ context.Context, tenantID, id uuid.UUID) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.products[id]
	if !ok || rec.TenantID != tenantID || rec.DeletedAt != nil {
		return nil, &NotFoundError{Resource: "product", Key: id.String()}
	}
	return cloneProduct(rec), nil
}

func (m *MemoryRepository) GetBySKU(_ context.Context, tenantID uuid.UUID, sku string) (*Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	normalized := NormalizeSKU(sku)
	for _, rec := range m.products {
		if rec.TenantID == tenantID && rec.DeletedAt == nil && rec.SKU == normalized {
			return cloneProduct(rec), nil
		}
	}
	return nil, &NotFoundError{Resource: "product", Key: normalized}
}

func (m *MemoryRepository) List(_ context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Product, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	term := strings.ToLower(strings.TrimSpace(opts.Search))
	out := []*Product{}
	for _, rec := range m.products {
		if rec.TenantID != tenantID || rec.DeletedAt != nil {
			continue
		}
		if opts.ActiveOnly && !rec.Active {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(rec.Name), term) && !strings.Contains(strings.ToLower(rec.SKU), term) {
			continue
		}
		out = append(out, cloneProduct(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []*Product{}, total, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, total, nil
}

func (m *MemoryRepository) Update(_ context.Context, record *Product) (*Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.products[record.ID]
	if !ok || existing.TenantID != record.TenantID {
		return nil, &NotFoundError{Resource: "product", Key: record.ID.String()}
	}
	copied := cloneProduct(record)
	m.products[copied.ID] = copied
	return cloneProduct(copied), nil
}

func cloneProduct(src *Product) *Product {
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
