package storage

import (
	"context"
	"fmt"

	"github.com/goliatone/go-contractor/internal/activitylog"
	"github.com/goliatone/go-contractor/internal/blog"
	"github.com/goliatone/go-contractor/internal/clients"
	"github.com/goliatone/go-contractor/internal/expenses"
	"github.com/goliatone/go-contractor/internal/invoices"
	"github.com/goliatone/go-contractor/internal/products"
	"github.com/goliatone/go-contractor/internal/projects"
	"github.com/goliatone/go-contractor/internal/tenancy"
	"github.com/uptrace/bun"
)

// Models lists every table model in creation order.
func Models() []any {
	return []any{
		(*tenancy.Tenant)(nil),
		(*clients.Client)(nil),
		(*products.Product)(nil),
		(*projects.Project)(nil),
		(*invoices.Invoice)(nil),
		(*invoices.Line)(nil),
		(*invoices.Payment)(nil),
		(*invoices.Sequence)(nil),
		(*expenses.Expense)(nil),
		(*activitylog.Entry)(nil),
		(*blog.Post)(nil),
	}
}

// Index is a named index created after the tables exist.
type Index struct {
	Name    string
	Table   string
	Columns string
	Unique  bool
}

func (i Index) statement() string {
	kind := "INDEX"
	if i.Unique {
		kind = "UNIQUE INDEX"
	}
	return fmt.Sprintf("CREATE %s IF NOT EXISTS %s ON %s (%s)", kind, i.Name, i.Table, i.Columns)
}

// Indexes backs the tenant-scoped lookups and the uniqueness rules enforced
// by the services.
var Indexes = []Index{
	{Name: "idx_tenants_slug", Table: "tenants", Columns: "slug", Unique: true},
	{Name: "idx_clients_tenant", Table: "clients", Columns: "tenant_id, name"},
	{Name: "idx_products_tenant_sku", Table: "products", Columns: "tenant_id, sku"},
	{Name: "idx_projects_tenant_slug", Table: "projects", Columns: "tenant_id, slug", Unique: true},
	{Name: "idx_invoices_tenant_number", Table: "invoices", Columns: "tenant_id, number", Unique: true},
	{Name: "idx_invoices_tenant_status_due", Table: "invoices", Columns: "tenant_id, status, due_date"},
	{Name: "idx_invoice_lines_invoice", Table: "invoice_lines", Columns: "invoice_id, position"},
	{Name: "idx_invoice_payments_invoice", Table: "invoice_payments", Columns: "invoice_id, received_at"},
	{Name: "idx_expenses_tenant_incurred", Table: "expenses", Columns: "tenant_id, incurred_on"},
	{Name: "idx_activity_logs_tenant_occurred", Table: "activity_logs", Columns: "tenant_id, occurred_at"},
	{Name: "idx_posts_slug", Table: "posts", Columns: "slug", Unique: true},
	{Name: "idx_posts_status_published", Table: "posts", Columns: "status, published_at"},
}

// Migrate creates all tables and indexes. It is safe to run repeatedly.
func Migrate(ctx context.Context, db *bun.DB) error {
	if db == nil {
		return ErrNoDatabase
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range Models() {
			if _, err := tx.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("storage: create table %T: %w", model, err)
			}
		}
		for _, index := range Indexes {
			if _, err := tx.ExecContext(ctx, index.statement()); err != nil {
				return fmt.Errorf("storage: create index %s: %w", index.Name, err)
			}
		}
		return nil
	})
}

// Reset drops every table. Intended for tests and local tooling.
func Reset(ctx context.Context, db *bun.DB) error {
	if db == nil {
		return ErrNoDatabase
	}
	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(models[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: drop table %T: %w", models[i], err)
		}
	}
	return nil
}
