package service

import (
	"context"
	"errors"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/metrics"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type OrderService interface {
	// PlaceOrder reserves every line independently. Partial reservation is a
	// status, not an error; only an order with no reservable line fails, with
	// apierror.ErrNoStockAvailable, and is still returned as cancelled.
	PlaceOrder(ctx context.Context, tenantID tenant.ID, req dto.PlaceOrderRequest) (*model.Order, error)
	CancelOrder(ctx context.Context, tenantID tenant.ID, orderID uuid.UUID) (*model.Order, error)
	// FulfillRemaining retries the owed quantity of a partially fulfilled order.
	FulfillRemaining(ctx context.Context, tenantID tenant.ID, orderID uuid.UUID) (*model.Order, error)
	GetOrder(ctx context.Context, tenantID tenant.ID, orderID uuid.UUID) (*model.Order, error)
	ListOrders(ctx context.Context, tenantID tenant.ID, filter dto.OrderFilter) ([]model.Order, int64, error)
}

type orderService struct {
	store     repository.Store
	ledger    LedgerService
	publisher EventPublisher
}

func NewOrderService(store repository.Store, ledger LedgerService, publisher EventPublisher) OrderService {
	return &orderService{store: store, ledger: ledger, publisher: publisher}
}

// errNothingReserved rolls back a placement in which every line failed.
var errNothingReserved = errors.New("no order line could be reserved")

// ── PlaceOrder ────────────────────────────────────────────────────────────────
// One scope spans all lines:
//   1. Each line is a conditional sale against its SKU, in the given order
//   2. InsufficientStock leaves the line owed; any other failure aborts
//   3. The order row is written with its settled status
//   4. When no line reserved anything the scope rolls back and the order is
//      recorded as cancelled in a scope of its own

func (s *orderService) PlaceOrder(ctx context.Context, tenantID tenant.ID, req dto.PlaceOrderRequest) (*model.Order, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, apierror.Validation("an order needs at least one line")
	}
	for _, l := range req.Lines {
		if l.SKU == "" || l.Quantity <= 0 {
			return nil, apierror.Validation("every line needs a sku and a positive quantity")
		}
	}
	defer metrics.TrackScope("place_order")(time.Now())

	order := newOrder(tenantID, req.Lines)
	var reserved []string

	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		reserved = reserved[:0]
		if err := lockCounters(ctx, tx, tenantID, lineSKUs(order.Lines, func(l model.OrderLine) int { return l.Quantity })); err != nil {
			return err
		}
		for i := range order.Lines {
			line := &order.Lines[i]
			line.ReservedQty = 0
			_, err := s.ledger.ApplyTx(ctx, tx, tenantID, Movement{
				SKU:         line.SKU,
				Type:        model.MovementSale,
				Quantity:    line.Quantity,
				ReferenceID: order.ID,
				Reason:      "order placed",
			})
			switch {
			case err == nil:
				line.ReservedQty = line.Quantity
				reserved = append(reserved, line.SKU)
			case errors.Is(err, apierror.ErrInsufficientStock):
				log.Debug().Err(err).Str("order_id", order.ID.String()).Msg("order line left owed")
			default:
				return err
			}
		}
		if len(reserved) == 0 {
			return errNothingReserved
		}

		order.Status = model.OrderCompleted
		if len(reserved) < len(order.Lines) {
			order.Status = model.OrderPartiallyFulfilled
		}
		return tx.Orders().Create(ctx, order)
	})

	if errors.Is(err, errNothingReserved) {
		return s.rejectOrder(ctx, tenantID, order)
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordMovements(string(model.MovementSale), len(reserved))
	metrics.RecordOrder(string(order.Status))
	publishStockChanged(ctx, s.publisher, tenantID, uniqueSKUs(reserved))
	return order, nil
}

// lineSKUs lists the SKUs of lines for which qty is positive.
func lineSKUs(lines []model.OrderLine, qty func(model.OrderLine) int) []string {
	skus := make([]string, 0, len(lines))
	for _, l := range lines {
		if qty(l) > 0 {
			skus = append(skus, l.SKU)
		}
	}
	return skus
}

func newOrder(tenantID tenant.ID, lines []dto.OrderLineInput) *model.Order {
	order := &model.Order{
		ID:       uuid.New(),
		TenantID: tenantID,
		Status:   model.OrderPending,
		Lines:    make([]model.OrderLine, 0, len(lines)),
	}
	for i, l := range lines {
		order.Lines = append(order.Lines, model.OrderLine{
			ID:       uuid.New(),
			OrderID:  order.ID,
			Position: i,
			SKU:      l.SKU,
			Quantity: l.Quantity,
		})
	}
	return order
}

// rejectOrder persists an order none of whose lines could be reserved.
func (s *orderService) rejectOrder(ctx context.Context, tenantID tenant.ID, order *model.Order) (*model.Order, error) {
	order.Status = model.OrderCancelled
	for i := range order.Lines {
		order.Lines[i].ReservedQty = 0
	}
	if err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		return tx.Orders().Create(ctx, order)
	}); err != nil {
		return nil, err
	}
	metrics.RecordOrder(string(order.Status))
	return order, apierror.NoStockAvailable("no line of the order could be reserved")
}

// ── CancelOrder ───────────────────────────────────────────────────────────────
// The status compare-and-set comes first: of two concurrent cancels only one
// matches the row, so compensation is emitted exactly once.

func (s *orderService) CancelOrder(ctx context.Context, tenantID tenant.ID, orderID uuid.UUID) (*model.Order, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	defer metrics.TrackScope("cancel_order")(time.Now())

	var order *model.Order
	var restored []string
	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		var err error
		order, err = tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := guardTenant(tenantID, order.TenantID, "order"); err != nil {
			return err
		}
		if !order.Status.CanTransition(model.OrderCancelled) {
			return apierror.InvalidTransition("order", string(order.Status), string(model.OrderCancelled))
		}

		ok, err := tx.Orders().UpdateStatus(ctx, tenantID, orderID,
			[]model.OrderStatus{model.OrderPending, model.OrderPartiallyFulfilled}, model.OrderCancelled)
		if err != nil {
			return err
		}
		if !ok {
			return apierror.InvalidTransition("order", string(order.Status), string(model.OrderCancelled))
		}

		restored = restored[:0]
		if err := lockCounters(ctx, tx, tenantID, lineSKUs(order.Lines, func(l model.OrderLine) int { return l.ReservedQty })); err != nil {
			return err
		}
		for _, line := range order.Lines {
			if line.ReservedQty == 0 {
				continue
			}
			if _, err := s.ledger.ApplyTx(ctx, tx, tenantID, Movement{
				SKU:         line.SKU,
				Type:        model.MovementReturn,
				Quantity:    line.ReservedQty,
				ReferenceID: order.ID,
				Reason:      "order cancelled",
			}); err != nil {
				return err
			}
			restored = append(restored, line.SKU)
		}
		order.Status = model.OrderCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMovements(string(model.MovementReturn), len(restored))
	metrics.RecordOrder(string(model.OrderCancelled))
	publishStockChanged(ctx, s.publisher, tenantID, uniqueSKUs(restored))
	return s.GetOrder(ctx, tenantID, orderID)
}

// ── FulfillRemaining ──────────────────────────────────────────────────────────

func (s *orderService) FulfillRemaining(ctx context.Context, tenantID tenant.ID, orderID uuid.UUID) (*model.Order, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	defer metrics.TrackScope("fulfill_order")(time.Now())

	var fulfilled []string
	var completed bool
	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		order, err := tx.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := guardTenant(tenantID, order.TenantID, "order"); err != nil {
			return err
		}
		if order.Status != model.OrderPartiallyFulfilled {
			return apierror.InvalidTransition("order", string(order.Status), string(model.OrderCompleted))
		}

		fulfilled = fulfilled[:0]
		owed := 0
		if err := lockCounters(ctx, tx, tenantID, lineSKUs(order.Lines, model.OrderLine.Owed)); err != nil {
			return err
		}
		for _, line := range order.Lines {
			if line.Owed() == 0 {
				continue
			}
			_, err := s.ledger.ApplyTx(ctx, tx, tenantID, Movement{
				SKU:         line.SKU,
				Type:        model.MovementSale,
				Quantity:    line.Owed(),
				ReferenceID: order.ID,
				Reason:      "owed quantity fulfilled",
			})
			switch {
			case err == nil:
				if err := tx.Orders().UpdateLineReserved(ctx, line.ID, line.Quantity); err != nil {
					return err
				}
				fulfilled = append(fulfilled, line.SKU)
			case errors.Is(err, apierror.ErrInsufficientStock):
				owed++
			default:
				return err
			}
		}

		completed = owed == 0
		if !completed {
			return nil
		}
		ok, err := tx.Orders().UpdateStatus(ctx, tenantID, orderID,
			[]model.OrderStatus{model.OrderPartiallyFulfilled}, model.OrderCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return apierror.InvalidTransition("order", string(order.Status), string(model.OrderCompleted))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordMovements(string(model.MovementSale), len(fulfilled))
	if completed {
		metrics.RecordOrder(string(model.OrderCompleted))
	}
	publishStockChanged(ctx, s.publisher, tenantID, uniqueSKUs(fulfilled))
	return s.GetOrder(ctx, tenantID, orderID)
}

func (s *orderService) GetOrder(ctx context.Context, tenantID tenant.ID, orderID uuid.UUID) (*model.Order, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	order, err := s.store.Orders().FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := guardTenant(tenantID, order.TenantID, "order"); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, tenantID tenant.ID, filter dto.OrderFilter) ([]model.Order, int64, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, 0, err
	}
	return s.store.Orders().List(ctx, tenantID, repository.OrderFilter{
		Status: model.OrderStatus(filter.Status),
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
}
