package blog

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Repository interface {
	Create(ctx context.Context, record *Post) (*Post, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	List(ctx context.Context, opts ListOptions) ([]*Post, int, error)
	Update(ctx context.Context, record *Post) (*Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

func NewPostRepository(db *bun.DB) repository.Repository[*Post] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Post]{
		NewRecord: func() *Post { return &Post{} },
		GetID: func(p *Post) uuid.UUID {
			return p.ID
		},
		SetID: func(p *Post, id uuid.UUID) {
			p.ID = id
		},
		GetIdentifier: func() string {
			return "slug"
		},
		GetIdentifierValue: func(p *Post) string {
			return p.Slug
		},
	})
}

type BunRepository struct {
	repo repository.Repository[*Post]
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{repo: NewPostRepository(db)}
}

func (r *BunRepository) Create(ctx context.Context, record *Post) (*Post, error) {
	return r.repo.Create(ctx, record)
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Post, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	return record, nil
}

func (r *BunRepository) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	record, err := r.repo.GetByIdentifier(ctx, slug)
	if err != nil {
		return nil, mapRepositoryError(err, slug)
	}
	return record, nil
}

func (r *BunRepository) List(ctx context.Context, opts ListOptions) ([]*Post, int, error) {
	records, total, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			if opts.Status != "" {
				q = q.Where("?TableAlias.status = ?", opts.Status)
			}
			if opts.Tag != "" {
				q = q.Where("CAST(?TableAlias.tags AS TEXT) LIKE ?", fmt.Sprintf("%%%q%%", opts.Tag))
			}
			if opts.Status == StatusPublished {
				q = q.OrderExpr("?TableAlias.published_at DESC")
			}
			q = q.OrderExpr("?TableAlias.created_at DESC")
			return q
		}),
		repository.SelectPaginate(opts.Limit, opts.Offset),
	)
	if err != nil {
		return nil, 0, mapRepositoryError(err, "")
	}
	return records, total, nil
}

func (r *BunRepository) Update(ctx context.Context, record *Post) (*Post, error) {
	updated, err := r.repo.Update(ctx, record)
	if err != nil {
		return nil, mapRepositoryError(err, record.ID.String())
	}
	return updated, nil
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	record, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.repo.Delete(ctx, record); err != nil {
		return mapRepositoryError(err, id.String())
	}
	return nil
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: "post", Key: key}
	}
	return fmt.Errorf("post repository error: %w", err)
}
