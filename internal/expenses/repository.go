package expenses

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists expenses scoped by tenant.
type Repository interface {
	Create(ctx context.Context, record *Expense) (*Expense, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Expense, error)
	List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Expense, int, error)
	Update(ctx context.Context, record *Expense) (*Expense, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

func NewExpenseRepository(db *bun.DB) repository.Repository[*Expense] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Expense]{
		NewRecord: func() *Expense { return &Expense{} },
		GetID: func(e *Expense) uuid.UUID {
			return e.ID
		},
		SetID: func(e *Expense, id uuid.UUID) {
			e.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(e *Expense) string {
			return e.ID.String()
		},
	})
}

type BunRepository struct {
	db   *bun.DB
	repo repository.Repository[*Expense]
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db, repo: NewExpenseRepository(db)}
}

func (r *BunRepository) Create(ctx context.Context, record *Expense) (*Expense, error) {
	return r.repo.Create(ctx, record)
}

func (r *BunRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Expense, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("?TableAlias.tenant_id = ?", tenantID).
				Where("?TableAlias.id = ?", id).
				Limit(1)
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: "expense", Key: id.String()}
	}
	return records[0], nil
}

func (r *BunRepository) List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Expense, int, error) {
	records, total, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("?TableAlias.tenant_id = ?", tenantID)
			if opts.ProjectID != uuid.Nil {
				q = q.Where("?TableAlias.project_id = ?", opts.ProjectID)
			}
			if opts.Category != "" {
				q = q.Where("?TableAlias.category = ?", opts.Category)
			}
			if opts.From != nil {
				q = q.Where("?TableAlias.incurred_on >= ?", *opts.From)
			}
			if opts.To != nil {
				q = q.Where("?TableAlias.incurred_on <= ?", *opts.To)
			}
			q = q.OrderExpr("?TableAlias.incurred_on DESC").OrderExpr("?TableAlias.created_at DESC")
			return q
		}),
		repository.SelectPaginate(opts.Limit, opts.Offset),
	)
	if err != nil {
		return nil, 0, mapRepositoryError(err, "")
	}
	return records, total, nil
}

func (r *BunRepository) Update(ctx context.Context, record *Expense) (*Expense, error) {
	updated, err := r.repo.Update(ctx, record)
	if err != nil {
		return nil, mapRepositoryError(err, record.ID.String())
	}
	return updated, nil
}

func (r *BunRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	res, err := r.db.NewDelete().
		Model((*Expense)(nil)).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return &NotFoundError{Resource: "expense", Key: id.String()}
	}
	return nil
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: "expense", Key: key}
	}
	return fmt.Errorf("expense repository error: %w", err)
}
