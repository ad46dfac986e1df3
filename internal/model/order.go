package model

import (
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
)

// OrderStatus: pending | partially_fulfilled | completed | cancelled
type OrderStatus string

const (
	OrderPending            OrderStatus = "pending"
	OrderPartiallyFulfilled OrderStatus = "partially_fulfilled"
	OrderCompleted          OrderStatus = "completed"
	OrderCancelled          OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:            {OrderPartiallyFulfilled, OrderCompleted, OrderCancelled},
	OrderPartiallyFulfilled: {OrderCompleted, OrderCancelled},
}

// CanTransition reports whether the order state machine allows from → to.
func (from OrderStatus) CanTransition(to OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool { return len(orderTransitions[s]) == 0 }

// Order is a customer order. Its lines are reserved against stock at
// placement; owed quantities stay on the line until fulfilled or cancelled.
type Order struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  tenant.ID   `gorm:"type:varchar(64);index;not null"`
	Status    OrderStatus `gorm:"type:varchar(24);index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Lines []OrderLine `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderLine requests Quantity units of SKU; ReservedQty of them were deducted.
type OrderLine struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Position    int       `gorm:"not null"`
	SKU         string    `gorm:"column:sku;type:varchar(64);not null"`
	Quantity    int       `gorm:"not null"`
	ReservedQty int       `gorm:"not null;default:0"`
}

// Owed is the quantity still unfulfilled on the line.
func (l OrderLine) Owed() int { return l.Quantity - l.ReservedQty }
