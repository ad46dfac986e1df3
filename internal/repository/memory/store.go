// Package memory is a process-local implementation of repository.Store.
//
// Each tenant has its own scope lock, so transactional scopes of one tenant
// run one at a time while other tenants proceed in parallel. Writes record an
// undo step; a scope whose function fails replays them in reverse. Reads
// outside a scope share the tenant lock, so they never observe a scope that
// has not finished. Values handed out are copies, callers never alias stored
// state.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
)

type Store struct {
	locksMu     sync.Mutex
	tenantLocks map[tenant.ID]*sync.RWMutex

	mu        sync.RWMutex
	variants  map[tenant.ID]map[string]*model.Variant
	movements map[tenant.ID][]model.StockMovement
	products  map[uuid.UUID]*model.Product
	orders    map[uuid.UUID]*model.Order
	pos       map[uuid.UUID]*model.PurchaseOrder
	receipts  map[uuid.UUID][]model.PurchaseOrderReceipt
	suppliers map[uuid.UUID]*model.Supplier
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		tenantLocks: make(map[tenant.ID]*sync.RWMutex),
		variants:    make(map[tenant.ID]map[string]*model.Variant),
		movements:   make(map[tenant.ID][]model.StockMovement),
		products:    make(map[uuid.UUID]*model.Product),
		orders:      make(map[uuid.UUID]*model.Order),
		pos:         make(map[uuid.UUID]*model.PurchaseOrder),
		receipts:    make(map[uuid.UUID][]model.PurchaseOrderReceipt),
		suppliers:   make(map[uuid.UUID]*model.Supplier),
	}
}

// scope is one open transactional scope.
type scope struct {
	tenantID tenant.ID
	undo     []func()
}

func (s *Store) tenantLock(id tenant.ID) *sync.RWMutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.tenantLocks[id]
	if !ok {
		l = &sync.RWMutex{}
		s.tenantLocks[id] = l
	}
	return l
}

func (s *Store) lockTenant(id tenant.ID) func() {
	l := s.tenantLock(id)
	l.Lock()
	return l.Unlock
}

func (s *Store) Atomically(ctx context.Context, tenantID tenant.ID, fn func(tx repository.Tx) error) error {
	if err := tenant.Require(tenantID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := s.lockTenant(tenantID)
	defer unlock()

	sc := &scope{tenantID: tenantID}
	committed := false
	defer func() {
		if !committed {
			s.rollback(sc)
		}
	}()

	if err := fn(&view{s: s, sc: sc}); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) rollback(sc *scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(sc.undo) - 1; i >= 0; i-- {
		sc.undo[i]()
	}
	sc.undo = nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// write applies mutate under the data lock on behalf of tenantID. Inside a
// scope the tenant must be the scope's own; outside one the call opens a
// single-statement scope.
func (s *Store) write(ctx context.Context, sc *scope, tenantID tenant.ID, mutate func(undo func(func())) error) error {
	if sc == nil {
		return s.Atomically(ctx, tenantID, func(tx repository.Tx) error {
			return s.write(ctx, tx.(*view).sc, tenantID, mutate)
		})
	}
	if sc.tenantID != tenantID {
		return apierror.CrossTenant("record", sc.tenantID.String(), tenantID.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return mutate(func(f func()) { sc.undo = append(sc.undo, f) })
}

func now() time.Time { return time.Now().UTC() }

// base carries the store and, inside Atomically, the open scope.
type base struct {
	s  *Store
	sc *scope
}

// read runs fn under the data lock. Outside a scope it first takes the
// tenant's lock for reading, which waits for an open scope to commit or roll
// back. The data lock is never held while waiting for a tenant lock.
func (b base) read(tenantID tenant.ID, fn func() error) error {
	if b.sc == nil {
		l := b.s.tenantLock(tenantID)
		l.RLock()
		defer l.RUnlock()
	}
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	return fn()
}

// readByID is read for records addressed by id: owner reports the owning
// tenant, "" when the record is absent. fn must handle a record that a
// rollback removed in between.
func (b base) readByID(owner func() tenant.ID, fn func() error) error {
	b.s.mu.RLock()
	tid := owner()
	b.s.mu.RUnlock()
	if tid == "" {
		b.s.mu.RLock()
		defer b.s.mu.RUnlock()
		return fn()
	}
	return b.read(tid, fn)
}

func (s *Store) Variants() repository.VariantRepository { return &variantRepo{base{s: s}} }
func (s *Store) Movements() repository.MovementRepository {
	return &movementRepo{base{s: s}}
}
func (s *Store) Orders() repository.OrderRepository { return &orderRepo{base{s: s}} }
func (s *Store) PurchaseOrders() repository.PurchaseOrderRepository {
	return &purchaseOrderRepo{base{s: s}}
}
func (s *Store) Products() repository.ProductRepository   { return &productRepo{base{s: s}} }
func (s *Store) Suppliers() repository.SupplierRepository { return &supplierRepo{base{s: s}} }

// view is the repository.Tx handed to Atomically callbacks.
type view struct {
	s  *Store
	sc *scope
}

func (v *view) b() base                                   { return base{s: v.s, sc: v.sc} }
func (v *view) Variants() repository.VariantRepository   { return &variantRepo{v.b()} }
func (v *view) Movements() repository.MovementRepository { return &movementRepo{v.b()} }
func (v *view) Orders() repository.OrderRepository       { return &orderRepo{v.b()} }
func (v *view) PurchaseOrders() repository.PurchaseOrderRepository {
	return &purchaseOrderRepo{v.b()}
}
func (v *view) Products() repository.ProductRepository   { return &productRepo{v.b()} }
func (v *view) Suppliers() repository.SupplierRepository { return &supplierRepo{v.b()} }

func paginate[T any](items []T, page, limit int) []T {
	page, limit = repository.NormalizePage(page, limit)
	start := (page - 1) * limit
	if start >= len(items) {
		return []T{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
