package invoices

import (
	"time"

	"github.com/goliatone/go-contractor/internal/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Status is the billing state of an invoice.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSent          Status = "sent"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusOverdue       Status = "overdue"
	StatusVoid          Status = "void"
)

// Transitions lists the allowed status moves. Paid and void are terminal.
var Transitions = domain.Transitions[Status]{
	StatusDraft:         {StatusSent, StatusVoid},
	StatusSent:          {StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusVoid},
	StatusPartiallyPaid: {StatusPaid, StatusOverdue, StatusVoid},
	StatusOverdue:       {StatusPartiallyPaid, StatusPaid, StatusVoid},
	StatusPaid:          {},
	StatusVoid:          {},
}

// Open reports whether the invoice still expects money.
func (s Status) Open() bool {
	switch s {
	case StatusSent, StatusPartiallyPaid, StatusOverdue:
		return true
	}
	return false
}

// Invoice is a bill issued to a client. All amounts are in cents of Currency.
// Version increases on every saved change and guards concurrent writers.
type Invoice struct {
	bun.BaseModel `bun:"table:invoices,alias:inv"`

	ID         uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	TenantID   uuid.UUID  `bun:"tenant_id,notnull,type:uuid" json:"tenant_id"`
	ClientID   uuid.UUID  `bun:"client_id,notnull,type:uuid" json:"client_id"`
	ProjectID  *uuid.UUID `bun:"project_id,type:uuid" json:"project_id,omitempty"`
	Number     string     `bun:"number,notnull" json:"number"`
	Status     Status     `bun:"status,notnull,default:'draft'" json:"status"`
	IssueDate  time.Time  `bun:"issue_date,notnull" json:"issue_date"`
	DueDate    time.Time  `bun:"due_date,notnull" json:"due_date"`
	Currency   string     `bun:"currency,notnull" json:"currency"`
	TaxRateBps int        `bun:"tax_rate_bps,notnull" json:"tax_rate_bps"`
	Discount   int64      `bun:"discount,notnull" json:"discount"`
	Subtotal   int64      `bun:"subtotal,notnull" json:"subtotal"`
	TaxTotal   int64      `bun:"tax_total,notnull" json:"tax_total"`
	Total      int64      `bun:"total,notnull" json:"total"`
	AmountPaid int64      `bun:"amount_paid,notnull" json:"amount_paid"`
	Notes      string     `bun:"notes" json:"notes,omitempty"`
	Terms      string     `bun:"terms" json:"terms,omitempty"`
	SentAt     *time.Time `bun:"sent_at,nullzero" json:"sent_at,omitempty"`
	PaidAt     *time.Time `bun:"paid_at,nullzero" json:"paid_at,omitempty"`
	VoidedAt   *time.Time `bun:"voided_at,nullzero" json:"voided_at,omitempty"`
	CreatedBy  uuid.UUID  `bun:"created_by,type:uuid" json:"created_by"`
	UpdatedBy  uuid.UUID  `bun:"updated_by,type:uuid" json:"updated_by"`
	CreatedAt  time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
	Version    int64      `bun:"version,notnull,default:0" json:"version"`

	Lines    []*Line    `bun:"rel:has-many,join:id=invoice_id" json:"lines"`
	Payments []*Payment `bun:"rel:has-many,join:id=invoice_id" json:"payments,omitempty"`
}

// AmountDue is the unpaid balance.
func (i *Invoice) AmountDue() int64 {
	if i == nil {
		return 0
	}
	due := i.Total - i.AmountPaid
	if due < 0 {
		return 0
	}
	return due
}

// Line is a single billed item.
type Line struct {
	bun.BaseModel `bun:"table:invoice_lines,alias:il"`

	ID          uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	InvoiceID   uuid.UUID  `bun:"invoice_id,notnull,type:uuid" json:"invoice_id"`
	ProductID   *uuid.UUID `bun:"product_id,type:uuid" json:"product_id,omitempty"`
	Description string     `bun:"description,notnull" json:"description"`
	Quantity    float64    `bun:"quantity,notnull" json:"quantity"`
	Unit        string     `bun:"unit" json:"unit,omitempty"`
	UnitPrice   int64      `bun:"unit_price,notnull" json:"unit_price"`
	Taxable     bool       `bun:"taxable,notnull" json:"taxable"`
	Amount      int64      `bun:"amount,notnull" json:"amount"`
	Position    int        `bun:"position,notnull" json:"position"`
}

// Payment records money received against an invoice.
type Payment struct {
	bun.BaseModel `bun:"table:invoice_payments,alias:ip"`

	ID         uuid.UUID `bun:",pk,type:uuid" json:"id"`
	InvoiceID  uuid.UUID `bun:"invoice_id,notnull,type:uuid" json:"invoice_id"`
	Amount     int64     `bun:"amount,notnull" json:"amount"`
	Method     string    `bun:"method" json:"method,omitempty"`
	Reference  string    `bun:"reference" json:"reference,omitempty"`
	ReceivedAt time.Time `bun:"received_at,notnull" json:"received_at"`
	CreatedBy  uuid.UUID `bun:"created_by,type:uuid" json:"created_by"`
	CreatedAt  time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

// Sequence is the per-tenant, per-year invoice number counter.
type Sequence struct {
	bun.BaseModel `bun:"table:invoice_sequences,alias:seq"`

	TenantID uuid.UUID `bun:"tenant_id,pk,type:uuid"`
	Year     int       `bun:"year,pk"`
	Value    int       `bun:"value,notnull"`
}

// ListOptions filters invoice listings. DueBefore matches invoices due
// strictly before the given instant.
type ListOptions struct {
	Status    Status
	ClientID  uuid.UUID
	ProjectID uuid.UUID
	DueBefore *time.Time
	Limit     int
	Offset    int
}
