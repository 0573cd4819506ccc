package clients

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists clients. Every method is scoped to a tenant and
// excludes soft-deleted rows.
type Repository interface {
	Create(ctx context.Context, record *Client) (*Client, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Client, error)
	GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Client, error)
	List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Client, int, error)
	Update(ctx context.Context, record *Client) (*Client, error)
}

func NewClientRepository(db *bun.DB) repository.Repository[*Client] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Client]{
		NewRecord: func() *Client { return &Client{} },
		GetID: func(c *Client) uuid.UUID {
			return c.ID
		},
		SetID: func(c *Client, id uuid.UUID) {
			c.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(c *Client) string {
			return c.ID.String()
		},
	})
}

type BunRepository struct {
	repo repository.Repository[*Client]
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{repo: NewClientRepository(db)}
}

func (r *BunRepository) Create(ctx context.Context, record *Client) (*Client, error) {
	return r.repo.Create(ctx, record)
}

func (r *BunRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Client, error) {
	return r.first(ctx, id.String(), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", id)
	}, tenantID)
}

func (r *BunRepository) GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*Client, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	return r.first(ctx, normalized, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("LOWER(?TableAlias.email) = ?", normalized)
	}, tenantID)
}

func (r *BunRepository) List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Client, int, error) {
	return r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			q = scoped(q, tenantID)
			if term := strings.ToLower(strings.TrimSpace(opts.Search)); term != "" {
				like := "%" + term + "%"
				q = q.WhereGroup(" AND ", func(g *bun.SelectQuery) *bun.SelectQuery {
					return g.Where("LOWER(?TableAlias.name) LIKE ?", like).
						WhereOr("LOWER(?TableAlias.company_name) LIKE ?", like).
						WhereOr("LOWER(?TableAlias.email) LIKE ?", like)
				})
			}
			return q.OrderExpr("?TableAlias.name ASC")
		}),
		repository.SelectPaginate(opts.Limit, opts.Offset),
	)
}

func (r *BunRepository) Update(ctx context.Context, record *Client) (*Client, error) {
	updated, err := r.repo.Update(ctx, record)
	if err != nil {
		return nil, mapRepositoryError(err, record.ID.String())
	}
	return updated, nil
}

func (r *BunRepository) first(ctx context.Context, key string, filter func(*bun.SelectQuery) *bun.SelectQuery, tenantID uuid.UUID) (*Client, error) {
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
		return nil, &NotFoundError{Resource: "client", Key: key}
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
		return &NotFoundError{Resource: "client", Key: key}
	}
	return fmt.Errorf("client repository error: %w", err)
}
