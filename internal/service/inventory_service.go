package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/metrics"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Discrepancy is a SKU whose counter disagrees with the sum of its ledger.
type Discrepancy struct {
	SKU         string
	Stock       int
	LedgerTotal int
}

// InventoryService covers the catalog and manual stock corrections.
type InventoryService interface {
	// CreateProduct writes the variants with zero stock and books each
	// initial stock as an opening adjustment, so the ledger sums to stock.
	CreateProduct(ctx context.Context, tenantID tenant.ID, req dto.CreateProductRequest) (*model.Product, error)
	GetProduct(ctx context.Context, tenantID tenant.ID, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, tenantID tenant.ID, filter dto.ProductFilter) ([]model.Product, int64, error)
	SetReorderThreshold(ctx context.Context, tenantID tenant.ID, sku string, threshold int) error
	// Adjust applies a signed correction; negative deltas are conditional.
	Adjust(ctx context.Context, tenantID tenant.ID, req dto.AdjustStockRequest) (*model.StockMovement, error)
	Reconcile(ctx context.Context, tenantID tenant.ID) ([]Discrepancy, error)
}

type inventoryService struct {
	store     repository.Store
	ledger    LedgerService
	publisher EventPublisher
}

func NewInventoryService(store repository.Store, ledger LedgerService, publisher EventPublisher) InventoryService {
	return &inventoryService{store: store, ledger: ledger, publisher: publisher}
}

func (s *inventoryService) CreateProduct(ctx context.Context, tenantID tenant.ID, req dto.CreateProductRequest) (*model.Product, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apierror.Validation("product name is required")
	}
	if len(req.Variants) == 0 {
		return nil, apierror.Validation("a product needs at least one variant")
	}

	p := &model.Product{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     strings.TrimSpace(req.Name),
		Category: req.Category,
	}
	for i, v := range req.Variants {
		if v.SKU == "" {
			return nil, apierror.Validation("every variant needs a sku")
		}
		if v.InitialStock < 0 || v.ReorderThreshold < 0 || v.Price.IsNegative() {
			return nil, apierror.Validation(fmt.Sprintf("variant %s: stock, threshold and price must not be negative", v.SKU))
		}
		p.Variants = append(p.Variants, model.Variant{
			ID:               uuid.New(),
			TenantID:         tenantID,
			SKU:              v.SKU,
			ProductID:        p.ID,
			Position:         i,
			Attributes:       datatypes.NewJSONType(v.Attributes),
			Price:            v.Price,
			ReorderThreshold: v.ReorderThreshold,
		})
	}

	var opened []string
	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		opened = opened[:0]
		if err := tx.Products().Create(ctx, p); err != nil {
			return err
		}
		for _, v := range req.Variants {
			if v.InitialStock == 0 {
				continue
			}
			if _, err := s.ledger.ApplyTx(ctx, tx, tenantID, Movement{
				SKU:         v.SKU,
				Type:        model.MovementAdjustment,
				Quantity:    v.InitialStock,
				ReferenceID: p.ID,
				Reason:      "opening stock",
			}); err != nil {
				return err
			}
			opened = append(opened, v.SKU)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordMovements(string(model.MovementAdjustment), len(opened))
	publishStockChanged(ctx, s.publisher, tenantID, opened)
	return s.GetProduct(ctx, tenantID, p.ID)
}

func (s *inventoryService) GetProduct(ctx context.Context, tenantID tenant.ID, id uuid.UUID) (*model.Product, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	p, err := s.store.Products().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := guardTenant(tenantID, p.TenantID, "product"); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *inventoryService) ListProducts(ctx context.Context, tenantID tenant.ID, filter dto.ProductFilter) ([]model.Product, int64, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, 0, err
	}
	return s.store.Products().List(ctx, tenantID, repository.ProductFilter{
		Category: filter.Category,
		Name:     filter.Name,
		Page:     filter.Page,
		Limit:    filter.Limit,
	})
}

func (s *inventoryService) SetReorderThreshold(ctx context.Context, tenantID tenant.ID, sku string, threshold int) error {
	if err := tenant.Require(tenantID); err != nil {
		return err
	}
	if threshold < 0 {
		return apierror.Validation("reorder threshold must not be negative")
	}
	if err := s.store.Variants().SetReorderThreshold(ctx, tenantID, sku, threshold); err != nil {
		return err
	}
	publishStockChanged(ctx, s.publisher, tenantID, []string{sku})
	return nil
}

func (s *inventoryService) Adjust(ctx context.Context, tenantID tenant.ID, req dto.AdjustStockRequest) (*model.StockMovement, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, apierror.Validation("an adjustment needs a reason")
	}
	mv, err := s.ledger.Apply(ctx, tenantID, Movement{
		SKU:      req.SKU,
		Type:     model.MovementAdjustment,
		Quantity: req.Delta,
		Reason:   reason,
	})
	if err != nil {
		return nil, err
	}
	publishStockChanged(ctx, s.publisher, tenantID, []string{req.SKU})
	return mv, nil
}

// Reconcile compares each counter with its ledger inside one scope. An empty
// result means the ledger and the counters agree.
func (s *inventoryService) Reconcile(ctx context.Context, tenantID tenant.ID) ([]Discrepancy, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	var variants []model.Variant
	var sums map[string]int
	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		var err error
		if variants, err = tx.Variants().List(ctx, tenantID); err != nil {
			return err
		}
		sums, err = tx.Movements().SumBySKU(ctx, tenantID)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]Discrepancy, 0)
	for _, v := range variants {
		if total := sums[v.SKU]; total != v.Stock {
			out = append(out, Discrepancy{SKU: v.SKU, Stock: v.Stock, LedgerTotal: total})
		}
		delete(sums, v.SKU)
	}
	// Movements for a SKU with no variant are discrepancies too.
	for sku, total := range sums {
		out = append(out, Discrepancy{SKU: sku, LedgerTotal: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}
