package dto

import (
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type PurchaseOrderItemInput struct {
	SKU       string          `json:"sku"        validate:"required,max=64"`
	Quantity  int             `json:"quantity"   validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"min=0"`
}

type CreatePurchaseOrderRequest struct {
	SupplierID string                   `json:"supplier_id" validate:"required,uuid"`
	Items      []PurchaseOrderItemInput `json:"items"       validate:"dive"`
}

type ReceiptInput struct {
	SKU       string          `json:"sku"        validate:"required,max=64"`
	Quantity  int             `json:"quantity"   validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"min=0"`
}

type ReceiveItemsRequest struct {
	Receipts []ReceiptInput `json:"receipts" validate:"required,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PurchaseOrderItemResponse struct {
	SKU               string           `json:"sku"`
	OrderedQty        int              `json:"ordered_qty"`
	ReceivedQty       int              `json:"received_qty"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	ReceivedUnitPrice *decimal.Decimal `json:"received_unit_price"`
}

type PurchaseOrderResponse struct {
	ID          string                      `json:"id"`
	SupplierID  string                      `json:"supplier_id"`
	Supplier    string                      `json:"supplier,omitempty"`
	Status      string                      `json:"status"`
	Items       []PurchaseOrderItemResponse `json:"items"`
	SentAt      *time.Time                  `json:"sent_at"`
	ConfirmedAt *time.Time                  `json:"confirmed_at"`
	ReceivedAt  *time.Time                  `json:"received_at"`
	CreatedAt   time.Time                   `json:"created_at"`
}

type PriceVarianceLine struct {
	SKU               string           `json:"sku"`
	ReceivedQty       int              `json:"received_qty"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	ReceivedUnitPrice *decimal.Decimal `json:"received_unit_price"`
	Variance          decimal.Decimal  `json:"variance"`
}

type PriceVarianceResponse struct {
	PurchaseOrderID string              `json:"purchase_order_id"`
	Lines           []PriceVarianceLine `json:"lines"`
	Total           decimal.Decimal     `json:"total"`
}

func PurchaseOrderFromModel(po *model.PurchaseOrder) PurchaseOrderResponse {
	resp := PurchaseOrderResponse{
		ID:          po.ID.String(),
		SupplierID:  po.SupplierID.String(),
		Status:      string(po.Status),
		Items:       make([]PurchaseOrderItemResponse, 0, len(po.Items)),
		SentAt:      po.SentAt,
		ConfirmedAt: po.ConfirmedAt,
		ReceivedAt:  po.ReceivedAt,
		CreatedAt:   po.CreatedAt,
	}
	if po.Supplier != nil {
		resp.Supplier = po.Supplier.Name
	}
	for _, it := range po.Items {
		resp.Items = append(resp.Items, PurchaseOrderItemResponse{
			SKU:               it.SKU,
			OrderedQty:        it.OrderedQty,
			ReceivedQty:       it.ReceivedQty,
			UnitPrice:         it.UnitPrice,
			ReceivedUnitPrice: it.ReceivedUnitPrice,
		})
	}
	return resp
}
