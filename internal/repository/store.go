package repository

import (
	"context"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is the transactional storage primitive the core consumes.
// Services depend on this interface, not on the concrete GORM implementation;
// the in-memory implementation in package memory backs the unit tests.
type Store interface {
	// Tx methods called on the Store itself run outside any scope, each
	// statement committing on its own.
	Tx

	// Atomically runs fn inside one transactional scope: every write fn makes
	// through tx commits, or none does when fn returns an error.
	Atomically(ctx context.Context, tenantID tenant.ID, fn func(tx Tx) error) error

	Ping(ctx context.Context) error
}

// Tx is the set of repositories bound to one transactional scope.
type Tx interface {
	Variants() VariantRepository
	Movements() MovementRepository
	Orders() OrderRepository
	PurchaseOrders() PurchaseOrderRepository
	Products() ProductRepository
	Suppliers() SupplierRepository
}

// VariantRepository is the inventory store: stock counters indexed by (tenant, sku).
// Decrement and Increment are single conditional statements; callers must
// only invoke them from the ledger, which records the matching movement.
type VariantRepository interface {
	FindBySKU(ctx context.Context, tenantID tenant.ID, sku string) (*model.Variant, error)
	List(ctx context.Context, tenantID tenant.ID) ([]model.Variant, error)

	// Decrement subtracts qty only if stock >= qty and returns the new stock.
	// Fails with apierror.ErrInsufficientStock (no mutation) or ErrNotFound.
	Decrement(ctx context.Context, tenantID tenant.ID, sku string, qty int) (int, error)
	// Increment adds qty unconditionally and returns the new stock.
	Increment(ctx context.Context, tenantID tenant.ID, sku string, qty int) (int, error)

	SetReorderThreshold(ctx context.Context, tenantID tenant.ID, sku string, threshold int) error

	// LockSKUs takes the write locks of the given variants, in the order
	// given, until the scope ends. Unknown SKUs are skipped. Scopes that
	// change several counters call it first with the SKUs sorted, so two
	// scopes never wait on each other's rows in opposite order.
	LockSKUs(ctx context.Context, tenantID tenant.ID, skus []string) error

	// Tenants lists every tenant that owns at least one variant.
	Tenants(ctx context.Context) ([]tenant.ID, error)
}

// MovementFilter narrows a ledger query. TenantID is mandatory.
type MovementFilter struct {
	TenantID tenant.ID
	SKU      string
	Type     model.MovementType
	From     *time.Time // inclusive
	To       *time.Time // exclusive
}

// MovementCursor is the keyset position after which the next page starts.
type MovementCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// MovementRepository is the append-only ledger. No update or delete exists.
type MovementRepository interface {
	Append(ctx context.Context, m *model.StockMovement) error
	// Page returns up to limit movements ordered by (created_at, id), strictly
	// after the cursor when one is given.
	Page(ctx context.Context, filter MovementFilter, after *MovementCursor, limit int) ([]model.StockMovement, error)
	// SumBySKU returns the sum of signed deltas per SKU for the tenant.
	SumBySKU(ctx context.Context, tenantID tenant.ID) (map[string]int, error)
}

// OrderFilter defines filters for listing orders.
type OrderFilter struct {
	Status model.OrderStatus
	Page   int
	Limit  int
}

type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	// FindByID resolves by primary key; callers guard the tenant.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// FindByIDForUpdate also locks the order row until the scope ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	List(ctx context.Context, tenantID tenant.ID, filter OrderFilter) ([]model.Order, int64, error)
	// UpdateStatus moves the order to `to` only if its status is one of from.
	// Returns false when no row matched.
	UpdateStatus(ctx context.Context, tenantID tenant.ID, id uuid.UUID, from []model.OrderStatus, to model.OrderStatus) (bool, error)
	UpdateLineReserved(ctx context.Context, lineID uuid.UUID, reservedQty int) error
}

type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	AddItem(ctx context.Context, item *model.PurchaseOrderItem) error
	UpdateStatus(ctx context.Context, tenantID tenant.ID, id uuid.UUID, from []model.PurchaseOrderStatus, to model.PurchaseOrderStatus, at time.Time) (bool, error)
	// ReceiveItem adds qty to received_qty only if the result stays within
	// ordered_qty, folding unitPrice into the weighted received price.
	// Returns the new received quantity and false when the condition failed.
	ReceiveItem(ctx context.Context, itemID uuid.UUID, qty int, unitPrice decimal.Decimal) (int, bool, error)
	AppendReceipt(ctx context.Context, r *model.PurchaseOrderReceipt) error
	ListReceipts(ctx context.Context, poID uuid.UUID) ([]model.PurchaseOrderReceipt, error)
	// PendingBySKU sums ordered - received per SKU over purchase orders not yet received.
	PendingBySKU(ctx context.Context, tenantID tenant.ID) (map[string]int, error)
}

// ProductFilter defines filters for listing products.
type ProductFilter struct {
	Category string
	Name     string
	Page     int
	Limit    int
}

type ProductRepository interface {
	// Create inserts the product with its variants. A SKU already used by the
	// tenant fails with apierror.ErrConflict.
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, tenantID tenant.ID, filter ProductFilter) ([]model.Product, int64, error)
}

type SupplierRepository interface {
	Create(ctx context.Context, s *model.Supplier) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Supplier, error)
	List(ctx context.Context, tenantID tenant.ID) ([]model.Supplier, error)
}

// NormalizePage applies the pagination defaults used by every List method.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return page, limit
}
