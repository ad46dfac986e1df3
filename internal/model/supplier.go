package model

import (
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
)

// Supplier represents a vendor purchase orders are sent to.
type Supplier struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID  tenant.ID `gorm:"type:varchar(64);index;not null"`
	Name      string    `gorm:"not null"`
	Email     *string
	Phone     *string
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
