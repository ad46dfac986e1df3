package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/metrics"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
)

// DefaultQueryBatchSize is the page size QueryMovements uses when none is configured.
const DefaultQueryBatchSize = 500

// Movement describes one stock-affecting event to apply.
// Quantity is a positive magnitude for sale, purchase and return and a
// non-zero signed delta for adjustment.
type Movement struct {
	SKU         string
	Type        model.MovementType
	Quantity    int
	ReferenceID uuid.UUID
	Reason      string
}

// MovementQuery narrows QueryMovements. Zero values mean "any".
type MovementQuery struct {
	SKU  string
	Type model.MovementType
	From *time.Time
	To   *time.Time
}

// LedgerService is the only code path that changes Variant.Stock.
type LedgerService interface {
	// Apply records m in its own transactional scope.
	Apply(ctx context.Context, tenantID tenant.ID, m Movement) (*model.StockMovement, error)
	// ApplyTx records m inside the caller's scope: the counter update and the
	// ledger row commit or roll back with the rest of tx.
	ApplyTx(ctx context.Context, tx repository.Tx, tenantID tenant.ID, m Movement) (*model.StockMovement, error)
	// QueryMovements streams matching movements oldest first. Each range
	// over the returned sequence runs the query again.
	QueryMovements(ctx context.Context, tenantID tenant.ID, q MovementQuery) iter.Seq2[model.StockMovement, error]
}

type ledgerService struct {
	store     repository.Store
	batchSize int
}

func NewLedgerService(store repository.Store, batchSize int) LedgerService {
	if batchSize < 1 {
		batchSize = DefaultQueryBatchSize
	}
	return &ledgerService{store: store, batchSize: batchSize}
}

// signedDelta converts a movement's magnitude into the delta applied to stock.
func signedDelta(t model.MovementType, qty int) (int, error) {
	switch t {
	case model.MovementSale:
		if qty <= 0 {
			return 0, apierror.Validation("sale quantity must be positive")
		}
		return -qty, nil
	case model.MovementPurchase, model.MovementReturn:
		if qty <= 0 {
			return 0, apierror.Validation(fmt.Sprintf("%s quantity must be positive", t))
		}
		return qty, nil
	case model.MovementAdjustment:
		if qty == 0 {
			return 0, apierror.Validation("adjustment delta must not be zero")
		}
		return qty, nil
	default:
		return 0, apierror.Validation(fmt.Sprintf("unknown movement type %q", t))
	}
}

func (s *ledgerService) Apply(ctx context.Context, tenantID tenant.ID, m Movement) (*model.StockMovement, error) {
	var mv *model.StockMovement
	err := s.store.Atomically(ctx, tenantID, func(tx repository.Tx) error {
		var err error
		mv, err = s.ApplyTx(ctx, tx, tenantID, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordMovements(string(mv.Type), 1)
	return mv, nil
}

func (s *ledgerService) ApplyTx(ctx context.Context, tx repository.Tx, tenantID tenant.ID, m Movement) (*model.StockMovement, error) {
	if err := tenant.Require(tenantID); err != nil {
		return nil, err
	}
	if m.SKU == "" {
		return nil, apierror.Validation("sku is required")
	}
	delta, err := signedDelta(m.Type, m.Quantity)
	if err != nil {
		return nil, err
	}

	// The stock condition lives inside the update statement; reading stock
	// first and writing it back would let two sales of the last unit pass.
	var after int
	if delta < 0 {
		after, err = tx.Variants().Decrement(ctx, tenantID, m.SKU, -delta)
		if errors.Is(err, apierror.ErrInsufficientStock) {
			metrics.InsufficientStockTotal.Inc()
		}
	} else {
		after, err = tx.Variants().Increment(ctx, tenantID, m.SKU, delta)
	}
	if err != nil {
		return nil, err
	}

	mv := &model.StockMovement{
		ID:          uuid.Must(uuid.NewV7()),
		TenantID:    tenantID,
		SKU:         m.SKU,
		Type:        m.Type,
		Quantity:    delta,
		StockBefore: after - delta,
		StockAfter:  after,
		ReferenceID: m.ReferenceID,
		Reason:      m.Reason,
		CreatedAt:   time.Now().UTC(),
	}
	if err := tx.Movements().Append(ctx, mv); err != nil {
		return nil, err
	}
	return mv, nil
}

func (s *ledgerService) QueryMovements(ctx context.Context, tenantID tenant.ID, q MovementQuery) iter.Seq2[model.StockMovement, error] {
	return func(yield func(model.StockMovement, error) bool) {
		if err := tenant.Require(tenantID); err != nil {
			yield(model.StockMovement{}, err)
			return
		}

		// Bound the run at its start so the sequence ends even while new
		// movements keep arriving. The microsecond covers rows written in
		// the current tick at the store's timestamp precision.
		to := time.Now().UTC().Add(time.Microsecond)
		if q.To != nil && q.To.Before(to) {
			to = *q.To
		}
		filter := repository.MovementFilter{
			TenantID: tenantID,
			SKU:      q.SKU,
			Type:     q.Type,
			From:     q.From,
			To:       &to,
		}

		var cursor *repository.MovementCursor
		for {
			if err := ctx.Err(); err != nil {
				yield(model.StockMovement{}, err)
				return
			}
			page, err := s.store.Movements().Page(ctx, filter, cursor, s.batchSize)
			if err != nil {
				yield(model.StockMovement{}, err)
				return
			}
			for _, m := range page {
				if !yield(m, nil) {
					return
				}
			}
			if len(page) < s.batchSize {
				return
			}
			last := page[len(page)-1]
			cursor = &repository.MovementCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		}
	}
}

// lockCounters locks the counters of skus in sorted order before a scope
// changes more than one of them. Conditional updates taken line by line in
// request order would otherwise let two scopes wait on each other.
func lockCounters(ctx context.Context, tx repository.Tx, tenantID tenant.ID, skus []string) error {
	sorted := slices.Clone(skus)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	if len(sorted) < 2 {
		return nil
	}
	return tx.Variants().LockSKUs(ctx, tenantID, sorted)
}
