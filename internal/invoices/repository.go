package invoices

import (
	"context"
	"fmt"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists invoices together with their lines and payments.
// Reads are scoped to a tenant.
type Repository interface {
	Create(ctx context.Context, record *Invoice) (*Invoice, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	GetByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Invoice, error)
	List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Invoice, int, error)
	Update(ctx context.Context, record *Invoice) (*Invoice, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

func NewInvoiceRepository(db *bun.DB) repository.Repository[*Invoice] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Invoice]{
		NewRecord: func() *Invoice { return &Invoice{} },
		GetID: func(i *Invoice) uuid.UUID {
			return i.ID
		},
		SetID: func(i *Invoice, id uuid.UUID) {
			i.ID = id
		},
		GetIdentifier: func() string {
			return "id"
		},
		GetIdentifierValue: func(i *Invoice) string {
			return i.ID.String()
		},
	})
}

// BunRepository stores invoice headers through go-repository-bun and writes
// lines and payments in the same transaction as the header.
type BunRepository struct {
	db   *bun.DB
	repo repository.Repository[*Invoice]
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db, repo: NewInvoiceRepository(db)}
}

func (r *BunRepository) Create(ctx context.Context, record *Invoice) (*Invoice, error) {
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(record).Exec(ctx); err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		return writeChildren(ctx, tx, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *BunRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error) {
	return r.first(ctx, tenantID, id.String(), func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", id)
	})
}

func (r *BunRepository) GetByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Invoice, error) {
	return r.first(ctx, tenantID, number, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.number = ?", number)
	})
}

func (r *BunRepository) List(ctx context.Context, tenantID uuid.UUID, opts ListOptions) ([]*Invoice, int, error) {
	records, total, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.Where("?TableAlias.tenant_id = ?", tenantID)
			if opts.Status != "" {
				q = q.Where("?TableAlias.status = ?", opts.Status)
			}
			if opts.ClientID != uuid.Nil {
				q = q.Where("?TableAlias.client_id = ?", opts.ClientID)
			}
			if opts.ProjectID != uuid.Nil {
				q = q.Where("?TableAlias.project_id = ?", opts.ProjectID)
			}
			if opts.DueBefore != nil {
				q = q.Where("?TableAlias.due_date < ?", *opts.DueBefore)
			}
			q = q.OrderExpr("?TableAlias.issue_date DESC").OrderExpr("?TableAlias.number DESC")
			return q
		}),
		repository.SelectPaginate(opts.Limit, opts.Offset),
	)
	if err != nil {
		return nil, 0, mapRepositoryError(err, "")
	}
	if err := r.hydrate(ctx, records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// Update saves record if its Version still matches the stored row and bumps
// Version. Lines are rewritten; payments are append-only, so only rows not yet
// stored are inserted.
func (r *BunRepository) Update(ctx context.Context, record *Invoice) (*Invoice, error) {
	expected := record.Version
	record.Version = expected + 1
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model(record).
			WherePK().
			Where("?TableAlias.tenant_id = ?", record.TenantID).
			Where("?TableAlias.version = ?", expected).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update invoice: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return staleOrMissing(ctx, tx, record)
		}
		if _, err := tx.NewDelete().
			Model((*Line)(nil)).
			Where("?TableAlias.invoice_id = ?", record.ID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete invoice lines: %w", err)
		}
		if err := writeLines(ctx, tx, record); err != nil {
			return err
		}
		return writePayments(ctx, tx, record, true)
	})
	if err != nil {
		record.Version = expected
		return nil, err
	}
	return record, nil
}

func staleOrMissing(ctx context.Context, tx bun.Tx, record *Invoice) error {
	exists, err := tx.NewSelect().
		Model((*Invoice)(nil)).
		Where("?TableAlias.id = ?", record.ID).
		Where("?TableAlias.tenant_id = ?", record.TenantID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("check invoice: %w", err)
	}
	if !exists {
		return &NotFoundError{Resource: "invoice", Key: record.ID.String()}
	}
	return ErrConcurrentUpdate
}

func (r *BunRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*Invoice)(nil)).
			Where("?TableAlias.id = ?", id).
			Where("?TableAlias.tenant_id = ?", tenantID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return &NotFoundError{Resource: "invoice", Key: id.String()}
		}
		return deleteChildren(ctx, tx, id)
	})
}

func (r *BunRepository) first(ctx context.Context, tenantID uuid.UUID, key string, filter func(*bun.SelectQuery) *bun.SelectQuery) (*Invoice, error) {
	records, _, err := r.repo.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return filter(q.Where("?TableAlias.tenant_id = ?", tenantID)).Limit(1)
		}),
	)
	if err != nil {
		return nil, mapRepositoryError(err, key)
	}
	if len(records) == 0 {
		return nil, &NotFoundError{Resource: "invoice", Key: key}
	}
	if err := r.hydrate(ctx, records[:1]); err != nil {
		return nil, err
	}
	return records[0], nil
}

// hydrate loads lines and payments for the given headers with one query per
// child table.
func (r *BunRepository) hydrate(ctx context.Context, records []*Invoice) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(records))
	byID := make(map[uuid.UUID]*Invoice, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
		byID[record.ID] = record
		record.Lines = nil
		record.Payments = nil
	}

	var lines []*Line
	if err := r.db.NewSelect().
		Model(&lines).
		Where("?TableAlias.invoice_id IN (?)", bun.In(ids)).
		OrderExpr("?TableAlias.position ASC").
		Scan(ctx); err != nil {
		return fmt.Errorf("list invoice lines: %w", err)
	}
	for _, line := range lines {
		if parent := byID[line.InvoiceID]; parent != nil {
			parent.Lines = append(parent.Lines, line)
		}
	}

	var payments []*Payment
	if err := r.db.NewSelect().
		Model(&payments).
		Where("?TableAlias.invoice_id IN (?)", bun.In(ids)).
		OrderExpr("?TableAlias.received_at ASC").
		Scan(ctx); err != nil {
		return fmt.Errorf("list invoice payments: %w", err)
	}
	for _, payment := range payments {
		if parent := byID[payment.InvoiceID]; parent != nil {
			parent.Payments = append(parent.Payments, payment)
		}
	}
	return nil
}

func writeChildren(ctx context.Context, tx bun.Tx, record *Invoice) error {
	if err := writeLines(ctx, tx, record); err != nil {
		return err
	}
	return writePayments(ctx, tx, record, false)
}

func writeLines(ctx context.Context, tx bun.Tx, record *Invoice) error {
	if len(record.Lines) == 0 {
		return nil
	}
	for _, line := range record.Lines {
		line.InvoiceID = record.ID
	}
	if _, err := tx.NewInsert().Model(&record.Lines).Exec(ctx); err != nil {
		return fmt.Errorf("insert invoice lines: %w", err)
	}
	return nil
}

// writePayments inserts the payment rows. With keepExisting set, rows that
// are already stored are left untouched.
func writePayments(ctx context.Context, tx bun.Tx, record *Invoice, keepExisting bool) error {
	if len(record.Payments) == 0 {
		return nil
	}
	for _, payment := range record.Payments {
		payment.InvoiceID = record.ID
	}
	q := tx.NewInsert().Model(&record.Payments)
	if keepExisting {
		q = q.On("CONFLICT (id) DO NOTHING")
	}
	if _, err := q.Exec(ctx); err != nil {
		return fmt.Errorf("insert invoice payments: %w", err)
	}
	return nil
}

func deleteChildren(ctx context.Context, tx bun.Tx, invoiceID uuid.UUID) error {
	if _, err := tx.NewDelete().
		Model((*Line)(nil)).
		Where("?TableAlias.invoice_id = ?", invoiceID).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete invoice lines: %w", err)
	}
	if _, err := tx.NewDelete().
		Model((*Payment)(nil)).
		Where("?TableAlias.invoice_id = ?", invoiceID).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete invoice payments: %w", err)
	}
	return nil
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if goerrors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: "invoice", Key: key}
	}
	return fmt.Errorf("invoice repository error: %w", err)
}

func sortLines(lines []*Line) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Position < lines[j].Position
	})
}
