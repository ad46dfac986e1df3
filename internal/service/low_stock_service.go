package service

import (
	"context"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
)

// LowStockAlert is a derived signal; nothing about it is persisted.
type LowStockAlert struct {
	SKU              string
	Stock            int
	PendingQty       int
	ReorderThreshold int
}

// IsLowStock is the alert predicate: stock on hand plus stock already on
// order falls short of the reorder threshold.
func IsLowStock(stock, pendingQty, threshold int) bool {
	return stock+pendingQty < threshold
}

// LowStockService is read-only.
type LowStockService interface {
	Evaluate(ctx context.Context, tenantID tenant.ID) ([]LowStockAlert, error)
	// EvaluateSKU returns the alert for sku, or nil when it is not low.
	EvaluateSKU(ctx context.Context, tenantID tenant.ID, sku string) (*LowStockAlert, error)
}

type lowStockService struct {
	store repository.Store
}

func NewLowStockService(store repository.Store) LowStockService {
	return &lowStockService{store: store}
}

// snapshot reads variants and open purchase quantities in one scope.
func (s *lowStockService) snapshot(ctx context.Context, tenantID tenant.ID) ([]model.Variant, map[string]int, error) {
	var variants []model.Variant
	var pending map[string]int
	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		var err error
		if variants, err = tx.Variants().List(ctx, tenantID); err != nil {
			return err
		}
		pending, err = tx.PurchaseOrders().PendingBySKU(ctx, tenantID)
		return err
	})
	return variants, pending, err
}

func (s *lowStockService) Evaluate(ctx context.Context, tenantID tenant.ID) ([]LowStockAlert, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	variants, pending, err := s.snapshot(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	alerts := make([]LowStockAlert, 0)
	for _, v := range variants {
		if IsLowStock(v.Stock, pending[v.SKU], v.ReorderThreshold) {
			alerts = append(alerts, LowStockAlert{
				SKU:              v.SKU,
				Stock:            v.Stock,
				PendingQty:       pending[v.SKU],
				ReorderThreshold: v.ReorderThreshold,
			})
		}
	}
	return alerts, nil
}

func (s *lowStockService) EvaluateSKU(ctx context.Context, tenantID tenant.ID, sku string) (*LowStockAlert, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	var v *model.Variant
	var pending map[string]int
	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		var err error
		if v, err = tx.Variants().FindBySKU(ctx, tenantID, sku); err != nil {
			return err
		}
		pending, err = tx.PurchaseOrders().PendingBySKU(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !IsLowStock(v.Stock, pending[sku], v.ReorderThreshold) {
		return nil, nil
	}
	return &LowStockAlert{
		SKU:              sku,
		Stock:            v.Stock,
		PendingQty:       pending[sku],
		ReorderThreshold: v.ReorderThreshold,
	}, nil
}
