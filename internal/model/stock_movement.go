package model

import (
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
)

// MovementType is the kind of stock-affecting event.
type MovementType string

const (
	MovementPurchase   MovementType = "purchase"
	MovementSale       MovementType = "sale"
	MovementReturn     MovementType = "return"
	MovementAdjustment MovementType = "adjustment"
)

// Valid reports whether t is one of the four ledger movement types.
func (t MovementType) Valid() bool {
	switch t {
	case MovementPurchase, MovementSale, MovementReturn, MovementAdjustment:
		return true
	}
	return false
}

// StockMovement is an immutable ledger entry. Rows are appended in the same
// transaction as the stock change they record and are never updated or deleted.
type StockMovement struct {
	ID       uuid.UUID    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID tenant.ID    `gorm:"type:varchar(64);index:idx_movements_tenant_sku_created,priority:1;not null"`
	SKU      string       `gorm:"column:sku;type:varchar(64);index:idx_movements_tenant_sku_created,priority:2;not null"`
	Type     MovementType `gorm:"type:varchar(20);not null"`
	// Quantity is the signed delta applied to Variant.Stock.
	Quantity    int       `gorm:"not null"`
	StockBefore int       `gorm:"not null"`
	StockAfter  int       `gorm:"not null"`
	ReferenceID uuid.UUID `gorm:"type:uuid;index"`
	Reason      string
	CreatedAt   time.Time `gorm:"index:idx_movements_tenant_sku_created,priority:3;not null"`
}

// TableName keeps the ledger table name explicit.
func (StockMovement) TableName() string { return "stock_movements" }
