package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Unit is the billing unit for a product or service.
type Unit string

const (
	UnitEach Unit = "each"
	UnitHour Unit = "hour"
	UnitDay  Unit = "day"
	UnitSqft Unit = "sqft"
	UnitSqm  Unit = "sqm"
	UnitLf   Unit = "lf"
	UnitCy   Unit = "cy"
	UnitTon  Unit = "ton"
	UnitLot  Unit = "lot"
)

var knownUnits = map[Unit]struct{}{
	UnitEach: {}, UnitHour: {}, UnitDay: {}, UnitSqft: {}, UnitSqm: {},
	UnitLf: {}, UnitCy: {}, UnitTon: {}, UnitLot: {},
}

// Product is a catalog item (material, labor rate or service) that can be
// placed on invoice lines. Prices are in cents.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:pr"`

	ID          uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	TenantID    uuid.UUID  `bun:"tenant_id,notnull,type:uuid" json:"tenant_id"`
	Name        string     `bun:"name,notnull" json:"name"`
	SKU         string     `bun:"sku" json:"sku,omitempty"`
	Description string     `bun:"description" json:"description,omitempty"`
	Unit        Unit       `bun:"unit,notnull,default:'each'" json:"unit"`
	UnitPrice   int64      `bun:"unit_price,notnull" json:"unit_price"`
	Taxable     bool       `bun:"taxable,notnull" json:"taxable"`
	Active      bool       `bun:"active,notnull" json:"active"`
	DeletedAt   *time.Time `bun:"deleted_at,nullzero" json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// ListOptions filters catalog listings.
type ListOptions struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}
