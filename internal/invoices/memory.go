package invoices

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu       sync.RWMutex
	invoices map[uuid.UUID]*Invoice
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{invoices: make(map[uuid.UUID]*Invoice)}
}

func (m *MemoryRepository) Create(_ context.Context, record *Invoice) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := cloneInvoice(record)
	m.invoices[copied.ID] = copied
	return cloneInvoice(copied), nil
}

func (m *MemoryRepository) GetByID(_ context.Context, tenantID, id uuid.UUID) (*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.invoices[id]
	if !ok || rec.TenantID != tenantID {
		return nil, &NotFoundError{Resource: "invoice", Key: id.String()}
	}
	return cloneInvoice(rec), nil
}

func (m *MemoryRepository) GetByNumber(_ context.Context, tenantID uuid.UUID, number string) (*Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.invoices {
		if rec.TenantID == tenantID && rec.Number == number {
			return cloneInvoice(rec), nil
		}
	}
	return nil, &NotFoundError{Resource: "invoice", Key: number}
}

func (m *MemoryRepository) List(_ context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Invoice, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Invoice{}
	for _, rec := range m.invoices {
		if rec.TenantID != tenantID {
			continue
		}
		if opts.Status != "" && rec.Status != opts.Status {
			continue
		}
		if opts.ClientID != uuid.Nil && rec.ClientID != opts.ClientID {
			continue
		}
		if opts.ProjectID != uuid.Nil && (rec.ProjectID == nil || *rec.ProjectID != opts.ProjectID) {
			continue
		}
		if opts.DueBefore != nil && !rec.DueDate.Before(*opts.DueBefore) {
			continue
		}
		out = append(out, cloneInvoice(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssueDate.Equal(out[j].IssueDate) {
			return out[i].IssueDate.After(out[j].IssueDate)
		}
		return out[i].Number > out[j].Number
	})
	total := len(out)
	return paginate(out, opts.Limit, opts.Offset), total, nil
}

func (m *MemoryRepository) Update(_ context.Context, record *Invoice) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.invoices[record.ID]
	if !ok || existing.TenantID != record.TenantID {
		return nil, &NotFoundError{Resource: "invoice", Key: record.ID.String()}
	}
	if existing.Version != record.Version {
		return nil, ErrConcurrentUpdate
	}
	copied := cloneInvoice(record)
	copied.Version++
	m.invoices[copied.ID] = copied
	return cloneInvoice(copied), nil
}

func (m *MemoryRepository) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.invoices[id]
	if !ok || existing.TenantID != tenantID {
		return &NotFoundError{Resource: "invoice", Key: id.String()}
	}
	delete(m.invoices, id)
	return nil
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

func cloneInvoice(src *Invoice) *Invoice {
	if src == nil {
		return nil
	}
	dst := *src
	if src.ProjectID != nil {
		id := *src.ProjectID
		dst.ProjectID = &id
	}
	dst.SentAt = cloneTime(src.SentAt)
	dst.PaidAt = cloneTime(src.PaidAt)
	dst.VoidedAt = cloneTime(src.VoidedAt)
	if src.Lines != nil {
		dst.Lines = make([]*Line, 0, len(src.Lines))
		for _, line := range src.Lines {
			if line == nil {
				continue
			}
			copied := *line
			if line.ProductID != nil {
				id := *line.ProductID
				copied.ProductID = &id
			}
			dst.Lines = append(dst.Lines, &copied)
		}
		sortLines(dst.Lines)
	}
	if src.Payments != nil {
		dst.Payments = make([]*Payment, 0, len(src.Payments))
		for _, payment := range src.Payments {
			if payment == nil {
				continue
			}
			copied := *payment
			dst.Payments = append(dst.Payments, &copied)
		}
	}
	return &dst
}

func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	t := *src
	return &t
}
