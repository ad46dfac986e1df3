package model

import (
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Product groups variants for display. Variants are owned by value and are
// addressed individually by (tenant_id, sku), never through the product.
type Product struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  tenant.ID `gorm:"type:varchar(64);index;not null"`
	Name      string    `gorm:"not null"`
	Category  string    `gorm:"index;not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Variants []Variant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// Variant is one sellable unit of a product. Stock is the authoritative
// counter and is only changed through ledger movements.
type Variant struct {
	ID         uuid.UUID                             `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID   tenant.ID                             `gorm:"type:varchar(64);uniqueIndex:idx_variants_tenant_sku;not null"`
	SKU        string                                `gorm:"column:sku;type:varchar(64);uniqueIndex:idx_variants_tenant_sku;not null"`
	ProductID  uuid.UUID                             `gorm:"type:uuid;index;not null"`
	Position   int                                   `gorm:"not null;default:0"`
	Attributes datatypes.JSONType[map[string]string] `gorm:"type:jsonb"`
	Price      decimal.Decimal                       `gorm:"type:decimal(12,2);not null"`
	// Stock is guarded by a CHECK (stock >= 0) constraint in the schema patches.
	Stock            int `gorm:"not null;default:0"`
	ReorderThreshold int `gorm:"not null;default:0"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AttributeMap returns the size/color style attributes of the variant.
func (v Variant) AttributeMap() map[string]string {
	return v.Attributes.Data()
}
