package expenses

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Category groups job costs for reporting.
type Category string

const (
	CategoryMaterials     Category = "materials"
	CategoryLabor         Category = "labor"
	CategoryEquipment     Category = "equipment"
	CategorySubcontractor Category = "subcontractor"
	CategoryPermits       Category = "permits"
	CategoryFuel          Category = "fuel"
	CategoryOffice        Category = "office"
	CategoryOther         Category = "other"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryMaterials,
	CategoryLabor,
	CategoryEquipment,
	CategorySubcontractor,
	CategoryPermits,
	CategoryFuel,
	CategoryOffice,
	CategoryOther,
}

// Valid reports whether the category is known.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Expense is a cost incurred by the business, optionally against a project.
// Amount is in cents.
type Expense struct {
	bun.BaseModel `bun:"table:expenses,alias:ex"`

	ID                 uuid.UUID  `bun:",pk,type:uuid" json:"id"`
	TenantID           uuid.UUID  `bun:"tenant_id,notnull,type:uuid" json:"tenant_id"`
	ProjectID          *uuid.UUID `bun:"project_id,type:uuid" json:"project_id,omitempty"`
	Category           Category   `bun:"category,notnull" json:"category"`
	Vendor             string     `bun:"vendor" json:"vendor,omitempty"`
	Description        string     `bun:"description" json:"description,omitempty"`
	Amount             int64      `bun:"amount,notnull" json:"amount"`
	Currency           string     `bun:"currency,notnull" json:"currency"`
	IncurredOn         time.Time  `bun:"incurred_on,notnull" json:"incurred_on"`
	Billable           bool       `bun:"billable,notnull" json:"billable"`
	Reimbursable       bool       `bun:"reimbursable,notnull" json:"reimbursable"`
	ReceiptKey         string     `bun:"receipt_key" json:"receipt_key,omitempty"`
	ReceiptContentType string     `bun:"receipt_content_type" json:"receipt_content_type,omitempty"`
	CreatedBy          uuid.UUID  `bun:"created_by,type:uuid" json:"created_by"`
	UpdatedBy          uuid.UUID  `bun:"updated_by,type:uuid" json:"updated_by"`
	CreatedAt          time.Time  `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt          time.Time  `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// ListOptions filters expense listings. From and To bound IncurredOn
// inclusively.
type ListOptions struct {
	ProjectID uuid.UUID
	Category  Category
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}
