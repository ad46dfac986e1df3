package service_test

import (
	"context"
	"sync"
	"testing"

	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/repository/memory"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	tenantA tenant.ID = "tenant-a"
	tenantB tenant.ID = "tenant-b"
)

// ── Recording EventPublisher stub ────────────────────────────────────────────

type recordingPublisher struct {
	mu      sync.Mutex
	changed map[tenant.ID][]string
	sent    []uuid.UUID
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{changed: make(map[tenant.ID][]string)}
}

func (p *recordingPublisher) StockChanged(_ context.Context, tenantID tenant.ID, skus []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changed[tenantID] = append(p.changed[tenantID], skus...)
	return nil
}

func (p *recordingPublisher) PurchaseOrderSent(_ context.Context, _ tenant.ID, poID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, poID)
	return nil
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	store     *memory.Store
	publisher *recordingPublisher
	ledger    service.LedgerService
	orders    service.OrderService
	pos       service.PurchaseOrderService
	inventory service.InventoryService
	suppliers service.SupplierService
	lowStock  service.LowStockService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	pub := newRecordingPublisher()
	ledger := service.NewLedgerService(store, 2)
	return &fixture{
		store:     store,
		publisher: pub,
		ledger:    ledger,
		orders:    service.NewOrderService(store, ledger, pub),
		pos:       service.NewPurchaseOrderService(store, ledger, pub),
		inventory: service.NewInventoryService(store, ledger, pub),
		suppliers: service.NewSupplierService(store),
		lowStock:  service.NewLowStockService(store),
	}
}

// seedVariant creates a single-variant product with opening stock.
func (f *fixture) seedVariant(t *testing.T, tenantID tenant.ID, sku string, stock, threshold int) {
	t.Helper()
	_, err := f.inventory.CreateProduct(context.Background(), tenantID, dto.CreateProductRequest{
		Name:     "Product " + sku,
		Category: "apparel",
		Variants: []dto.VariantInput{{
			SKU:              sku,
			Attributes:       map[string]string{"size": "M"},
			Price:            decimal.NewFromInt(10),
			InitialStock:     stock,
			ReorderThreshold: threshold,
		}},
	})
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, tenantID tenant.ID, sku string) int {
	t.Helper()
	v, err := f.store.Variants().FindBySKU(context.Background(), tenantID, sku)
	require.NoError(t, err)
	return v.Stock
}

func (f *fixture) movements(t *testing.T, tenantID tenant.ID, q service.MovementQuery) []model.StockMovement {
	t.Helper()
	var out []model.StockMovement
	for m, err := range f.ledger.QueryMovements(context.Background(), tenantID, q) {
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func (f *fixture) supplier(t *testing.T, tenantID tenant.ID) uuid.UUID {
	t.Helper()
	email := "orders@supplier.test"
	s, err := f.suppliers.Create(context.Background(), tenantID, dto.CreateSupplierRequest{Name: "Acme Textiles", Email: &email})
	require.NoError(t, err)
	return s.ID
}

// sentPO creates a purchase order for the given sku/qty pairs and sends it.
func (f *fixture) sentPO(t *testing.T, tenantID tenant.ID, items map[string]int) *model.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	req := dto.CreatePurchaseOrderRequest{SupplierID: f.supplier(t, tenantID).String()}
	for sku, qty := range items {
		req.Items = append(req.Items, dto.PurchaseOrderItemInput{SKU: sku, Quantity: qty, UnitPrice: decimal.NewFromInt(5)})
	}
	po, err := f.pos.Create(ctx, tenantID, req)
	require.NoError(t, err)
	po, err = f.pos.Send(ctx, tenantID, po.ID)
	require.NoError(t, err)
	return po
}

func line(sku string, qty int) dto.OrderLineInput {
	return dto.OrderLineInput{SKU: sku, Quantity: qty}
}
