package projects

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]*Project
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{projects: make(map[uuid.UUID]*Project)}
}

func (m *MemoryRepository) Create(_ context.Context, record *Project) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := cloneProject(record)
	m.projects[copied.ID] = copied
	return cloneProject(copied), nil
}

func (m *MemoryRepository) GetByID(_ context.Context, tenantID, id uuid.UUID) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.projects[id]
	if !ok || rec.TenantID != tenantID || rec.DeletedAt != nil {
		return nil, &NotFoundError{Resource: "project", Key: id.String()}
	}
	return cloneProject(rec), nil
}

func (m *MemoryRepository) GetBySlug(_ context.Context, tenantID uuid.UUID, slug string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.projects {
		if rec.TenantID == tenantID && rec.DeletedAt == nil && rec.Slug == slug {
			return cloneProject(rec), nil
		}
	}
	return nil, &NotFoundError{Resource: "project", Key: slug}
}

func (m *MemoryRepository) List(_ context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Project, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*Project{}
	for _, rec := range m.projects {
		if rec.TenantID != tenantID || rec.DeletedAt != nil {
			continue
		}
		if opts.Status != "" && rec.Status != opts.Status {
			continue
		}
		if opts.ClientID != uuid.Nil && rec.ClientID != opts.ClientID {
			continue
		}
		out = append(out, cloneProject(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := len(out)
	if opts.Offset > 0 {
		if opts.Offset >= len(out) {
			return []*Project{}, total, nil
		}
		out = out[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, total, nil
}

func (m *MemoryRepository) Update(_ context.Context, record *Project) (*Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.projects[record.ID]
	if !ok || existing.TenantID != record.TenantID {
		return nil, &NotFoundError{Resource: "project", Key: record.ID.String()}
	}
	copied := cloneProject(record)
	m.projects[copied.ID] = copied
	return cloneProject(copied), nil
}

func cloneProject(src *Project) *Project {
	if src == nil {
		return nil
	}
	copied := *src
	copied.StartDate = cloneTime(src.StartDate)
	copied.EndDate = cloneTime(src.EndDate)
	copied.CompletedAt = cloneTime(src.CompletedAt)
	copied.DeletedAt = cloneTime(src.DeletedAt)
	return &copied
}

func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	copied := *src
	return &copied
}
