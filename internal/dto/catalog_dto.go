package dto

import (
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type VariantInput struct {
	SKU              string            `json:"sku"               validate:"required,max=64"`
	Attributes       map[string]string `json:"attributes"`
	Price            decimal.Decimal   `json:"price"             validate:"min=0"`
	InitialStock     int               `json:"initial_stock"     validate:"min=0"`
	ReorderThreshold int               `json:"reorder_threshold" validate:"min=0"`
}

type CreateProductRequest struct {
	Name     string         `json:"name"     validate:"required,min=1,max=200"`
	Category string         `json:"category" validate:"max=100"`
	Variants []VariantInput `json:"variants" validate:"required,min=1,dive"`
}

type SetThresholdRequest struct {
	ReorderThreshold int `json:"reorder_threshold" validate:"min=0"`
}

// ProductFilter holds query params for GET /v1/products.
type ProductFilter struct {
	Category string `form:"category"`
	Name     string `form:"name"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

type CreateSupplierRequest struct {
	Name  string  `json:"name"  validate:"required,min=2"`
	Email *string `json:"email" validate:"omitempty,email"`
	Phone *string `json:"phone"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VariantResponse struct {
	SKU              string            `json:"sku"`
	Attributes       map[string]string `json:"attributes"`
	Price            decimal.Decimal   `json:"price"`
	Stock            int               `json:"stock"`
	ReorderThreshold int               `json:"reorder_threshold"`
}

type ProductResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Category  string            `json:"category"`
	Variants  []VariantResponse `json:"variants"`
	CreatedAt time.Time         `json:"created_at"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type SupplierResponse struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
	Active bool    `json:"active"`
}

func ProductFromModel(p *model.Product) ProductResponse {
	resp := ProductResponse{
		ID:        p.ID.String(),
		Name:      p.Name,
		Category:  p.Category,
		Variants:  make([]VariantResponse, 0, len(p.Variants)),
		CreatedAt: p.CreatedAt,
	}
	for _, v := range p.Variants {
		resp.Variants = append(resp.Variants, VariantResponse{
			SKU:              v.SKU,
			Attributes:       v.AttributeMap(),
			Price:            v.Price,
			Stock:            v.Stock,
			ReorderThreshold: v.ReorderThreshold,
		})
	}
	return resp
}

func SupplierFromModel(s *model.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:     s.ID.String(),
		Name:   s.Name,
		Email:  s.Email,
		Phone:  s.Phone,
		Active: s.Active,
	}
}
