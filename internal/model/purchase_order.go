package model

import (
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderStatus: draft | sent | confirmed | received
type PurchaseOrderStatus string

const (
	PurchaseOrderDraft     PurchaseOrderStatus = "draft"
	PurchaseOrderSent      PurchaseOrderStatus = "sent"
	PurchaseOrderConfirmed PurchaseOrderStatus = "confirmed"
	PurchaseOrderReceived  PurchaseOrderStatus = "received"
)

// AcceptsReceipts reports whether goods can be received in status s.
func (s PurchaseOrderStatus) AcceptsReceipts() bool {
	return s == PurchaseOrderSent || s == PurchaseOrderConfirmed
}

// PurchaseOrder is a supplier order. Stock only moves when items are received.
type PurchaseOrder struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID    tenant.ID           `gorm:"type:varchar(64);index;not null"`
	SupplierID  uuid.UUID           `gorm:"type:uuid;index;not null"`
	Status      PurchaseOrderStatus `gorm:"type:varchar(20);index;not null"`
	SentAt      *time.Time
	ConfirmedAt *time.Time
	ReceivedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Items    []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE"`
	Supplier *Supplier           `gorm:"foreignKey:SupplierID"`
}

// FullyReceived reports whether every item has been received in full.
func (po *PurchaseOrder) FullyReceived() bool {
	if len(po.Items) == 0 {
		return false
	}
	for _, it := range po.Items {
		if it.ReceivedQty < it.OrderedQty {
			return false
		}
	}
	return true
}

// ItemBySKU returns the item for sku, or nil.
func (po *PurchaseOrder) ItemBySKU(sku string) *PurchaseOrderItem {
	for i := range po.Items {
		if po.Items[i].SKU == sku {
			return &po.Items[i]
		}
	}
	return nil
}

// PurchaseOrderItem. ReceivedQty only grows and never exceeds OrderedQty.
// ReceivedUnitPrice is the quantity-weighted average price of all receipts.
type PurchaseOrderItem struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PurchaseOrderID   uuid.UUID        `gorm:"type:uuid;index;not null"`
	Position          int              `gorm:"not null"`
	SKU               string           `gorm:"column:sku;type:varchar(64);not null"`
	OrderedQty        int              `gorm:"not null"`
	ReceivedQty       int              `gorm:"not null;default:0"`
	UnitPrice         decimal.Decimal  `gorm:"type:decimal(12,4);not null"`
	ReceivedUnitPrice *decimal.Decimal `gorm:"type:decimal(12,4)"`
}

// Pending is the quantity still expected from the supplier.
func (it PurchaseOrderItem) Pending() int { return it.OrderedQty - it.ReceivedQty }

// PurchaseOrderReceipt records one physical receipt against an item.
// Receipts are immutable, like ledger rows.
type PurchaseOrderReceipt struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID        tenant.ID       `gorm:"type:varchar(64);index;not null"`
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;index;not null"`
	ItemID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	SKU             string          `gorm:"column:sku;type:varchar(64);not null"`
	Quantity        int             `gorm:"not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	MovementID      uuid.UUID       `gorm:"type:uuid;not null"`
	CreatedAt       time.Time
}
