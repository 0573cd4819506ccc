package tenancy

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tenant is a contractor business account. All clients, projects, invoices and
// expenses belong to exactly one tenant.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants,alias:tn"`

	ID                uuid.UUID `bun:",pk,type:uuid" json:"id"`
	Name              string    `bun:"name,notnull" json:"name"`
	Slug              string    `bun:"slug,notnull,unique" json:"slug"`
	Email             string    `bun:"email" json:"email,omitempty"`
	Currency          string    `bun:"currency,notnull,default:'USD'" json:"currency"`
	InvoicePrefix     string    `bun:"invoice_prefix,notnull,default:'INV'" json:"invoice_prefix"`
	PaymentTermsDays  int       `bun:"payment_terms_days,notnull,default:30" json:"payment_terms_days"`
	DefaultTaxRateBps int       `bun:"default_tax_rate_bps,notnull,default:0" json:"default_tax_rate_bps"`
	CreatedAt         time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}
