package tenancy

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// NotFoundError represents missing tenants.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// Repository persists tenants.
type Repository interface {
	Create(ctx context.Context, record *Tenant) (*Tenant, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Update(ctx context.Context, record *Tenant) (*Tenant, error)
}

func NewTenantRepository(db *bun.DB) repository.Repository[*Tenant] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Tenant]{
		NewRecord: func() *Tenant { return &Tenant{} },
		GetID: func(t *Tenant) uuid.UUID {
			return t.ID
		},
		SetID: func(t *Tenant, id uuid.UUID) {
			t.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
		GetIdentifierValue: func(t *Tenant) string {
			return t.Slug
		},
	})
}

// BunRepository stores tenants through go-repository-bun with an optional
// read-through cache; tenant lookups run on every request.
type BunRepository struct {
	repo repository.Repository[*Tenant]
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunRepository {
	var repo repository.Repository[*Tenant] = NewTenantRepository(db)
	if cacheService != nil && keySerializer != nil {
		repo = repositorycache.New(repo, cacheService, keySerializer)
	}
	return &BunRepository{repo: repo}
}

func (r *BunRepository) Create(ctx context.Context, record *Tenant) (*Tenant, error) {
	return r.repo.Create(ctx, record)
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	return record, nil
}

func (r *BunRepository) GetBySlug(ctx context.Context, slug string) (*Tenant, error) {
	record, err := r.repo.GetByIdentifier(ctx, slug)
	if err != nil {
		return nil, mapRepositoryError(err, slug)
	}
	return record, nil
}

// unpaged lifts the default page size of 25. It is a package value so the
// cache key stays stable across calls.
var unpaged = repository.SelectPaginate(0, 0)

func (r *BunRepository) List(ctx context.Context) ([]*Tenant, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.name ASC")
		}),
		unpaged,
	)
	return records, err
}

func (r *BunRepository) Update(ctx context.Context, record *Tenant) (*Tenant, error) {
	return r.repo.Update(ctx, record)
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: "tenant", Key: key}
	}
	return fmt.Errorf("tenant repository error: %w", err)
}

// MemoryRepository is an in-memory Repository for tests and the memory
// storage driver.
type MemoryRepository struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]*Tenant
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{tenants: make(map[uuid.UUID]*Tenant)}
}

func (m *MemoryRepository) Create(_ context.Context, record *Tenant) (*Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.tenants[copied.ID] = &copied
	out := copied
	return &out, nil
}

func (m *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.tenants[id]
	if !ok {
		return nil, &NotFoundError{Resource: "tenant", Key: id.String()}
	}
	out := *rec
	return &out, nil
}

func (m *MemoryRepository) GetBySlug(_ context.Context, slug string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.tenants {
		if strings.EqualFold(rec.Slug, slug) {
			out := *rec
			return &out, nil
		}
	}
	return nil, &NotFoundError{Resource: "tenant", Key: slug}
}

func (m *MemoryRepository) List(_ context.Context) ([]*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Tenant, 0, len(m.tenants))
	for _, rec := range m.tenants {
		copied := *rec
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryRepository) Update(_ context.Context, record *Tenant) (*Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tenants[record.ID]; !ok {
		return nil, &NotFoundError{Resource: "tenant", Key: record.ID.String()}
	}
	copied := *record
	m.tenants[copied.ID] = &copied
	out := copied
	return &out, nil
}
