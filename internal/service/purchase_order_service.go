package service

import (
	"context"
	"fmt"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/metrics"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type PurchaseOrderService interface {
	Create(ctx context.Context, tenantID tenant.ID, req dto.CreatePurchaseOrderRequest) (*model.PurchaseOrder, error)
	AddItem(ctx context.Context, tenantID tenant.ID, poID uuid.UUID, item dto.PurchaseOrderItemInput) (*model.PurchaseOrder, error)
	Send(ctx context.Context, tenantID tenant.ID, poID uuid.UUID) (*model.PurchaseOrder, error)
	Confirm(ctx context.Context, tenantID tenant.ID, poID uuid.UUID) (*model.PurchaseOrder, error)
	// ReceiveItems applies every receipt or none of them.
	ReceiveItems(ctx context.Context, tenantID tenant.ID, poID uuid.UUID, receipts []dto.ReceiptInput) (*model.PurchaseOrder, error)
	Get(ctx context.Context, tenantID tenant.ID, poID uuid.UUID) (*model.PurchaseOrder, error)
	PriceVariance(ctx context.Context, tenantID tenant.ID, poID uuid.UUID) (*dto.PriceVarianceResponse, error)
}

type purchaseOrderService struct {
	store     repository.Store
	ledger    LedgerService
	publisher EventPublisher
}

func NewPurchaseOrderService(store repository.Store, ledger LedgerService, publisher EventPublisher) PurchaseOrderService {
	return &purchaseOrderService{store: store, ledger: ledger, publisher: publisher}
}

func validateItem(sku string, qty int, price decimal.Decimal) error {
	if sku == "" || qty <= 0 {
		return apierror.Validation("every item needs a sku and a positive quantity")
	}
	if price.IsNegative() {
		return apierror.Validation("unit price must not be negative")
	}
	return nil
}

// requireVariant resolves sku inside the tenant, so no purchase order can
// reference another tenant's catalog.
func requireVariant(ctx context.Context, tx repository.Tx, tenantID tenant.ID, sku string) error {
	_, err := tx.Variants().FindBySKU(ctx, tenantID, sku)
	return err
}

func (s *purchaseOrderService) Create(ctx context.Context, tenantID tenant.ID, req dto.CreatePurchaseOrderRequest) (*model.PurchaseOrder, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return nil, apierror.Validation(fmt.Sprintf("invalid supplier_id: %v", err))
	}

	po := &model.PurchaseOrder{
		ID:         uuid.New(),
		TenantID:   tenantID,
		SupplierID: supplierID,
		Status:     model.PurchaseOrderDraft,
	}
	seen := make(map[string]bool, len(req.Items))
	for i, it := range req.Items {
		if err := validateItem(it.SKU, it.Quantity, it.UnitPrice); err != nil {
			return nil, err
		}
		if seen[it.SKU] {
			return nil, apierror.Validation(fmt.Sprintf("sku %s appears twice on the purchase order", it.SKU))
		}
		seen[it.SKU] = true
		po.Items = append(po.Items, model.PurchaseOrderItem{
			ID:              uuid.New(),
			PurchaseOrderID: po.ID,
			Position:        i,
			SKU:             it.SKU,
			OrderedQty:      it.Quantity,
			UnitPrice:       it.UnitPrice,
		})
	}

	err = s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		sup, err := tx.Suppliers().FindByID(ctx, supplierID)
		if err != nil {
			return err
		}
		if err := guardTenant(tenantID, sup.TenantID, "supplier"); err != nil {
			return err
		}
		for _, it := range po.Items {
			if err := requireVariant(ctx, tx, tenantID, it.SKU); err != nil {
				return err
			}
		}
		return tx.PurchaseOrders().Create(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, po.ID)
}

func (s *purchaseOrderService) AddItem(ctx context.Context, tenantID tenant.ID, poID uuid.UUID, in dto.PurchaseOrderItemInput) (*model.PurchaseOrder, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	if err := validateItem(in.SKU, in.Quantity, in.UnitPrice); err != nil {
		return nil, err
	}

	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		po, err := s.lockOwned(ctx, tx, tenantID, poID)
		if err != nil {
			return err
		}
		if po.Status != model.PurchaseOrderDraft {
			return &apierror.Error{
				Kind:    apierror.KindInvalidTransition,
				Message: fmt.Sprintf("items can only be added to a draft purchase order, status is %s", po.Status),
			}
		}
		if po.ItemBySKU(in.SKU) != nil {
			return apierror.Validation(fmt.Sprintf("sku %s is already on the purchase order", in.SKU))
		}
		if err := requireVariant(ctx, tx, tenantID, in.SKU); err != nil {
			return err
		}
		return tx.PurchaseOrders().AddItem(ctx, &model.PurchaseOrderItem{
			ID:              uuid.New(),
			PurchaseOrderID: po.ID,
			Position:        len(po.Items),
			SKU:             in.SKU,
			OrderedQty:      in.Quantity,
			UnitPrice:       in.UnitPrice,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, poID)
}

// lockOwned loads and locks the purchase order, checking its tenant.
func (s *purchaseOrderService) lockOwned(ctx context.Context, tx repository.Tx, tenantID tenant.ID, poID uuid.UUID) (*model.PurchaseOrder, error) {
	po, err := tx.PurchaseOrders().FindByIDForUpdate(ctx, poID)
	if err != nil {
		return nil, err
	}
	if err := guardTenant(tenantID, po.TenantID, "purchase order"); err != nil {
		return nil, err
	}
	return po, nil
}

// Send moves draft → sent. Stock is untouched; the supplier document is
// produced asynchronously from the purchase_order_sent event.
func (s *purchaseOrderService) Send(ctx context.Context, tenantID tenant.ID, poID uuid.UUID) (*model.PurchaseOrder, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		po, err := s.lockOwned(ctx, tx, tenantID, poID)
		if err != nil {
			return err
		}
		if len(po.Items) == 0 {
			return &apierror.Error{
				Kind:    apierror.KindInvalidTransition,
				Message: "a purchase order needs at least one item before it is sent",
			}
		}
		return s.transition(ctx, tx, po, model.PurchaseOrderDraft, model.PurchaseOrderSent)
	})
	if err != nil {
		return nil, err
	}

	if s.publisher != nil {
		if err := s.publisher.PurchaseOrderSent(ctx, tenantID, poID); err != nil {
			log.Warn().Err(err).Str("purchase_order_id", poID.String()).Msg("purchase_order_sent event not published")
		}
	}
	return s.Get(ctx, tenantID, poID)
}

func (s *purchaseOrderService) Confirm(ctx context.Context, tenantID tenant.ID, poID uuid.UUID) (*model.PurchaseOrder, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		po, err := s.lockOwned(ctx, tx, tenantID, poID)
		if err != nil {
			return err
		}
		return s.transition(ctx, tx, po, model.PurchaseOrderSent, model.PurchaseOrderConfirmed)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, tenantID, poID)
}

// transition is a compare-and-set from the single legal source status.
func (s *purchaseOrderService) transition(ctx context.Context, tx repository.Tx, po *model.PurchaseOrder, from, to model.PurchaseOrderStatus) error {
	if po.Status != from {
		return apierror.InvalidTransition("purchase order", string(po.Status), string(to))
	}
	ok, err := tx.PurchaseOrders().UpdateStatus(ctx, po.TenantID, po.ID, []model.PurchaseOrderStatus{from}, to, time.Now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return apierror.InvalidTransition("purchase order", string(po.Status), string(to))
	}
	return nil
}

// ── ReceiveItems ──────────────────────────────────────────────────────────────
// Per receipt, in one scope:
//   1. Conditional received_qty update (never past ordered_qty)
//   2. Receipt history row with the supplier's price
//   3. purchase movement of +qty through the ledger
// Then the order settles: received when every item is complete, confirmed
// otherwise.

func (s *purchaseOrderService) ReceiveItems(ctx context.Context, tenantID tenant.ID, poID uuid.UUID, receipts []dto.ReceiptInput) (*model.PurchaseOrder, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	if len(receipts) == 0 {
		return nil, apierror.Validation("at least one receipt is required")
	}
	for _, r := range receipts {
		if err := validateItem(r.SKU, r.Quantity, r.UnitPrice); err != nil {
			return nil, err
		}
	}
	defer metrics.TrackScope("receive_items")(time.Now())

	var skus []string
	units := 0
	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		skus, units = skus[:0], 0
		po, err := s.lockOwned(ctx, tx, tenantID, poID)
		if err != nil {
			return err
		}
		if !po.Status.AcceptsReceipts() {
			return apierror.InvalidTransition("purchase order", string(po.Status), string(model.PurchaseOrderReceived))
		}

		receiptSKUs := make([]string, 0, len(receipts))
		for _, r := range receipts {
			receiptSKUs = append(receiptSKUs, r.SKU)
		}
		if err := lockCounters(ctx, tx, tenantID, receiptSKUs); err != nil {
			return err
		}

		for _, r := range receipts {
			item := po.ItemBySKU(r.SKU)
			if item == nil {
				return apierror.NotFound("purchase order item", r.SKU)
			}
			received, ok, err := tx.PurchaseOrders().ReceiveItem(ctx, item.ID, r.Quantity, r.UnitPrice)
			if err != nil {
				return err
			}
			if !ok {
				return apierror.OverReceipt(r.SKU, item.OrderedQty, item.ReceivedQty, r.Quantity)
			}
			item.ReceivedQty = received

			mv, err := s.ledger.ApplyTx(ctx, tx, tenantID, Movement{
				SKU:         r.SKU,
				Type:        model.MovementPurchase,
				Quantity:    r.Quantity,
				ReferenceID: po.ID,
				Reason:      "purchase order receipt",
			})
			if err != nil {
				return err
			}
			if err := tx.PurchaseOrders().AppendReceipt(ctx, &model.PurchaseOrderReceipt{
				ID:              uuid.New(),
				TenantID:        tenantID,
				PurchaseOrderID: po.ID,
				ItemID:          item.ID,
				SKU:             r.SKU,
				Quantity:        r.Quantity,
				UnitPrice:       r.UnitPrice,
				MovementID:      mv.ID,
				CreatedAt:       mv.CreatedAt,
			}); err != nil {
				return err
			}
			skus = append(skus, r.SKU)
			units += r.Quantity
		}

		target := model.PurchaseOrderConfirmed
		if po.FullyReceived() {
			target = model.PurchaseOrderReceived
		}
		if target == po.Status {
			return nil
		}
		ok, err := tx.PurchaseOrders().UpdateStatus(ctx, tenantID, po.ID,
			[]model.PurchaseOrderStatus{model.PurchaseOrderSent, model.PurchaseOrderConfirmed}, target, time.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return apierror.InvalidTransition("purchase order", string(po.Status), string(target))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMovements(string(model.MovementPurchase), len(skus))
	metrics.UnitsReceivedTotal.Add(float64(units))
	publishStockChanged(ctx, s.publisher, tenantID, uniqueSKUs(skus))
	return s.Get(ctx, tenantID, poID)
}

func (s *purchaseOrderService) Get(ctx context.Context, tenantID tenant.ID, poID uuid.UUID) (*model.PurchaseOrder, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	po, err := s.store.PurchaseOrders().FindByID(ctx, poID)
	if err != nil {
		return nil, err
	}
	if err := guardTenant(tenantID, po.TenantID, "purchase order"); err != nil {
		return nil, err
	}
	return po, nil
}

// PriceVariance reports (received price − agreed price) × received quantity
// per item. Items with nothing received contribute zero.
func (s *purchaseOrderService) PriceVariance(ctx context.Context, tenantID tenant.ID, poID uuid.UUID) (*dto.PriceVarianceResponse, error) {
	po, err := s.Get(ctx, tenantID, poID)
	if err != nil {
		return nil, err
	}
	report := &dto.PriceVarianceResponse{
		PurchaseOrderID: po.ID.String(),
		Lines:           make([]dto.PriceVarianceLine, 0, len(po.Items)),
		Total:           decimal.Zero,
	}
	for _, it := range po.Items {
		variance := decimal.Zero
		if it.ReceivedUnitPrice != nil {
			variance = it.ReceivedUnitPrice.Sub(it.UnitPrice).Mul(decimal.NewFromInt(int64(it.ReceivedQty)))
		}
		report.Lines = append(report.Lines, dto.PriceVarianceLine{
			SKU:               it.SKU,
			ReceivedQty:       it.ReceivedQty,
			UnitPrice:         it.UnitPrice,
			ReceivedUnitPrice: it.ReceivedUnitPrice,
			Variance:          variance,
		})
		report.Total = report.Total.Add(variance)
	}
	return report, nil
}
