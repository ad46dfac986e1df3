package dto

import (
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
)

type OrderLineInput struct {
	SKU      string `json:"sku"      validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

type PlaceOrderRequest struct {
	Lines []OrderLineInput `json:"lines" validate:"required,min=1,dive"`
}

// OrderFilter holds query params for GET /v1/orders.
type OrderFilter struct {
	Status string `form:"status" validate:"omitempty,oneof=pending partially_fulfilled completed cancelled"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

type OrderLineResponse struct {
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	ReservedQty int    `json:"reserved_qty"`
	OwedQty     int    `json:"owed_qty"`
}

type OrderResponse struct {
	ID        string              `json:"id"`
	Status    string              `json:"status"`
	Lines     []OrderLineResponse `json:"lines"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type OrderListResponse struct {
	Data  []OrderResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func OrderFromModel(o *model.Order) OrderResponse {
	resp := OrderResponse{
		ID:        o.ID.String(),
		Status:    string(o.Status),
		Lines:     make([]OrderLineResponse, 0, len(o.Lines)),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			SKU:         l.SKU,
			Quantity:    l.Quantity,
			ReservedQty: l.ReservedQty,
			OwedQty:     l.Owed(),
		})
	}
	return resp
}
