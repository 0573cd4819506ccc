package expenses

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu       sync.RWMutex
	expenses map[uuid.UUID]*Expense
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{expenses: make(map[uuid.UUID]*Expense)}
}

func (m *MemoryRepository) Create(_ context.Context, record *Expense) (*Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := cloneExpense(record)
	m.expenses[copied.ID] = copied
	return cloneExpense(copied), nil
}

func (m *MemoryRepository) GetByID(_ context.Context, tenantID, id uuid.UUID) (*Expense, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.expenses[id]
	if !ok || rec.TenantID != tenantID {
		return nil, &NotFoundError{Resource: "expense", Key: id.String()}
	}
	return cloneExpense(rec), nil
}

func (m *MemoryRepository) List(_ context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Expense, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Expense{}
	for _, rec := range m.expenses {
		if rec.TenantID != tenantID {
			continue
		}
		if opts.ProjectID != uuid.Nil && (rec.ProjectID == nil || *rec.ProjectID != opts.ProjectID) {
			continue
		}
		if opts.Category != "" && rec.Category != opts.Category {
			continue
		}
		if opts.From != nil && rec.IncurredOn.Before(*opts.From) {
			continue
		}
		if opts.To != nil && rec.IncurredOn.After(*opts.To) {
			continue
		}
		out = append(out, cloneExpense(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IncurredOn.Equal(out[j].IncurredOn) {
			return out[i].IncurredOn.After(out[j].IncurredOn)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	total := len(out)
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []*Expense{}, total, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, total, nil
}

func (m *MemoryRepository) Update(_ context.Context, record *Expense) (*Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.expenses[record.ID]
	if !ok || existing.TenantID != record.TenantID {
		return nil, &NotFoundError{Resource: "expense", Key: record.ID.String()}
	}
	copied := cloneExpense(record)
	m.expenses[copied.ID] = copied
	return cloneExpense(copied), nil
}

func (m *MemoryRepository) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.expenses[id]
	if !ok || existing.TenantID != tenantID {
		return &NotFoundError{Resource: "expense", Key: id.String()}
	}
	delete(m.expenses, id)
	return nil
}

func cloneExpense(src *Expense) *Expense {
	if src == nil {
		return nil
	}
	dst := *src
	if src.ProjectID != nil {
		id := *src.ProjectID
		dst.ProjectID = &id
	}
	return &dst
}
