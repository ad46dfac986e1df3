package dto

import (
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/google/uuid"
)

type AdjustStockRequest struct {
	SKU    string `json:"sku"    validate:"required,max=64"`
	Delta  int    `json:"delta"  validate:"required,ne=0"`
	Reason string `json:"reason" validate:"required,min=3"`
}

// MovementFilter holds query params for GET /v1/inventory/movements.
type MovementFilter struct {
	SKU  string     `form:"sku"`
	Type string     `form:"type" validate:"omitempty,oneof=purchase sale return adjustment"`
	From *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   *time.Time `form:"to"   time_format:"2006-01-02T15:04:05Z07:00"`
}

type MovementResponse struct {
	ID          string    `json:"id"`
	SKU         string    `json:"sku"`
	Type        string    `json:"type"`
	Quantity    int       `json:"quantity"`
	StockBefore int       `json:"stock_before"`
	StockAfter  int       `json:"stock_after"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type LowStockAlertResponse struct {
	SKU              string `json:"sku"`
	Stock            int    `json:"stock"`
	PendingQty       int    `json:"pending_qty"`
	ReorderThreshold int    `json:"reorder_threshold"`
}

type DiscrepancyResponse struct {
	SKU         string `json:"sku"`
	Stock       int    `json:"stock"`
	LedgerTotal int    `json:"ledger_total"`
}

type ReconciliationResponse struct {
	Consistent    bool                  `json:"consistent"`
	Discrepancies []DiscrepancyResponse `json:"discrepancies"`
}

func MovementFromModel(m *model.StockMovement) MovementResponse {
	resp := MovementResponse{
		ID:          m.ID.String(),
		SKU:         m.SKU,
		Type:        string(m.Type),
		Quantity:    m.Quantity,
		StockBefore: m.StockBefore,
		StockAfter:  m.StockAfter,
		Reason:      m.Reason,
		CreatedAt:   m.CreatedAt,
	}
	if m.ReferenceID != uuid.Nil {
		resp.ReferenceID = m.ReferenceID.String()
	}
	return resp
}
