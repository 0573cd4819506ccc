package products

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	repositorycache "github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists catalog products scoped by tenant.
type Repository interface {
	Create(ctx context.Context, record *Product) (*Product, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Product, error)
	GetBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*Product, error)
	List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Product, int, error)
	Update(ctx context.Context, record *Product) (*Product, error)
}

func NewProductRepository(db *bun.DB) repository.Repository[*Product] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Product]{
		NewRecord: func() *Product { return &Product{} },
		GetID: func(p *Product) uuid.UUID {
			return p.ID
		},
		SetID: func(p *Product, id uuid.UUID) {
			p.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(p *Product) string {
			return p.ID.String()
		},
	})
}

// BunRepository reads products by ID through an optional cache. Cached rows
// are checked against the requested tenant before they are returned; listings
// always hit the database.
type BunRepository struct {
	repo   repository.Repository[*Product]
	cached repository.Repository[*Product]
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, keySerializer cache.KeySerializer) *BunRepository {
	base := NewProductRepository(db)
	cached := base
	if cacheService != nil && keySerializer != nil {
		cached = repositorycache.New(base, cacheService, keySerializer)
	}
	return &BunRepository{repo: base, cached: cached}
}

func (r *BunRepository) Create(ctx context.Context, record *Product) (*Product, error) {
	return r.cached.Create(ctx, record)
}

func (r *BunRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Product, error) {
	record, err := r.cached.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	if record.TenantID != tenantID || record.DeletedAt != nil {
		return nil, &NotFoundError{Resource: "product", Key: id.String()}
	}
	return record, nil
}

func (r *BunRepository) GetBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*Product, error) {
	normalized := NormalizeSKU(sku)
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return scoped(q, tenantID).Where("?TableAlias.sku = ?", normalized)
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, mapRepositoryError(err, normalized)
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: "product", Key: normalized}
	}
	return records[0], nil
}

func (r *BunRepository) List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Product, int, error) {
	return r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			q = scoped(q, tenantID)
			if opts.ActiveOnly {
				q = q.Where("?TableAlias.active = ?", true)
			}
			if term := strings.ToLower(strings.TrimSpace(opts.Search)); term != "" {
				like := "%" + term + "%"
				q = q.WhereGroup(" AND ", func(g *bun.SelectQuery) *bun.SelectQuery {
					return g.Where("LOWER(?TableAlias.name) LIKE ?", like).
						WhereOr("LOWER(?TableAlias.sku) LIKE ?", like)
				})
			}
			q = q.OrderExpr("?TableAlias.name ASC")
			return q
		}),
		repository.SelectPaginate(opts.Limit, opts.Offset),
	)
}

func (r *BunRepository) Update(ctx context.Context, record *Product) (*Product, error) {
	updated, err := r.cached.Update(ctx, record)
	if err != nil {
		return nil, mapRepositoryError(err, record.ID.String())
	}
	return updated, nil
}

func scoped(q *bun.SelectQuery, tenantID uuid.UUID) *bun.SelectQuery {
	return q.Where("?TableAlias.tenant_id = ?", tenantID).
		Where("?TableAlias.deleted_at IS NULL")
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: "product", Key: key}
	}
	return fmt.Errorf("product repository error: %w", err)
}
