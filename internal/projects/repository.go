package projects

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists projects scoped by tenant.
type Repository interface {
	Create(ctx context.Context, record *Project) (*Project, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Project, error)
	GetBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*Project, error)
	List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Project, int, error)
	Update(ctx context.Context, record *Project) (*Project, error)
}

func NewProjectRepository(db *bun.DB) repository.Repository[*Project] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Project]{
		NewRecord: func() *Project { return &Project{} },
		GetID: func(p *Project) uuid.UUID {
			return p.ID
		},
		SetID: func(p *Project, id uuid.UUID) {
			p.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(p *Project) string {
			return p.ID.String()
		},
	})
}

type BunRepository struct {
	repo repository.Repository[*Project]
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{repo: NewProjectRepository(db)}
}

func (r *BunRepository) Create(ctx context.Context, record *Project) (*Project, error) {
	return r.repo.Create(ctx, record)
}

func (r *BunRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Project, error) {
	return r.first(ctx, tenantID, id.String(), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", id)
	})
}

func (r *BunRepository) GetBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*Project, error) {
	return r.first(ctx, tenantID, slug, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.slug = ?", slug)
	})
}

func (r *BunRepository) List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Project, int, error) {
	return r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			q = scoped(q, tenantID)
			if opts.Status != "" {
				q = q.Where("?TableAlias.status = ?", opts.Status)
			}
			if opts.ClientID != uuid.Nil {
				q = q.Where("?TableAlias.client_id = ?", opts.ClientID)
			}
			q = q.OrderExpr("?TableAlias.created_at DESC")
			return q
		}),
		repository.SelectPaginate(opts.Limit, opts.Offset),
	)
}

func (r *BunRepository) Update(ctx context.Context, record *Project) (*Project, error) {
	updated, err := r.repo.Update(ctx, record)
	if err != nil {
		return nil, mapRepositoryError(err, record.ID.String())
	}
	return updated, nil
}

func (r *BunRepository) first(ctx context.Context, tenantID uuid.UUID, key string, filter func(*bun.SelectQuery) *bun.SelectQuery) (*Project, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return filter(scoped(q, tenantID))
		}),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return nil, mapRepositoryError(err, key)
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: "project", Key: key}
	}
	return records[0], nil
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
		return &NotFoundError{Resource: "project", Key: key}
	}
	return fmt.Errorf("project repository error: %w", err)
}
