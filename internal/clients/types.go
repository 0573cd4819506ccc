package clients

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Client is a customer billed by a tenant.
type Client struct {
	bun.BaseModel `bun:"table:clients,alias:cl"`

	ID           uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	TenantID     uuid.UUID  `bun:"tenant_id,notnull,type:uuid" json:"tenant_id"`
	Name         string     `bun:"name,notnull" json:"name"`
	CompanyName  string     `bun:"company_name" json:"company_name,omitempty"`
	Email        string     `bun:"email" json:"email,omitempty"`
	Phone        string     `bun:"phone" json:"phone,omitempty"`
	AddressLine1 string     `bun:"address_line1" json:"address_line1,omitempty"`
	AddressLine2 string     `bun:"address_line2" json:"address_line2,omitempty"`
	City         string     `bun:"city" json:"city,omitempty"`
	Region       string     `bun:"region" json:"region,omitempty"`
	PostalCode   string     `bun:"postal_code" json:"postal_code,omitempty"`
	Country      string     `bun:"country" json:"country,omitempty"`
	TaxID        string     `bun:"tax_id" json:"tax_id,omitempty"`
	Notes        string     `bun:"notes" json:"notes,omitempty"`
	CreatedBy    uuid.UUID  `bun:"created_by,type:uuid" json:"created_by"`
	UpdatedBy    uuid.UUID  `bun:"updated_by,type:uuid" json:"updated_by"`
	DeletedAt    *time.Time `bun:"deleted_at,nullzero" json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// DisplayName prefers the company name for invoices and reports.
func (c *Client) DisplayName() string {
	if c == nil {
		return ""
	}
	if c.CompanyName != "" {
		return c.CompanyName
	}
	return c.Name
}

// ListOptions filters client listings.
type ListOptions struct {
	Search string
	Limit  int
	Offset int
}
