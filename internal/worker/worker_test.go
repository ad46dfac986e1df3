package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/infra"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/repository/memory"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

type memThrottle struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemThrottle() *memThrottle { return &memThrottle{keys: make(map[string]bool)} }

func (t *memThrottle) Allow(_ context.Context, key string, _ time.Duration) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.keys[key] {
		return false, nil
	}
	t.keys[key] = true
	return true, nil
}

func (t *memThrottle) Release(_ context.Context, keys ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, k := range keys {
		delete(t.keys, k)
	}
	return nil
}

type alertMail struct {
	to     string
	tenant tenant.ID
	alerts []service.LowStockAlert
}

type fakeMailer struct {
	mu       sync.Mutex
	failNext error
	alerts   []alertMail
	pos      []string
}

func (m *fakeMailer) SendLowStockAlert(to string, tenantID tenant.ID, alerts []service.LowStockAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	m.alerts = append(m.alerts, alertMail{to: to, tenant: tenantID, alerts: alerts})
	return nil
}

func (m *fakeMailer) SendPurchaseOrder(to string, _ *model.PurchaseOrder, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	m.pos = append(m.pos, to)
	return nil
}

// ── Fixture ──────────────────────────────────────────────────────────────────

type env struct {
	store     *memory.Store
	inventory service.InventoryService
	pos       service.PurchaseOrderService
	suppliers service.SupplierService
	lowStock  service.LowStockService
	mailer    *fakeMailer
	throttle  *memThrottle
	alerts    *AlertWorker
}

func newEnv() *env {
	store := memory.NewStore()
	ledger := service.NewLedgerService(store, 10)
	e := &env{
		store:     store,
		inventory: service.NewInventoryService(store, ledger, nil),
		pos:       service.NewPurchaseOrderService(store, ledger, nil),
		suppliers: service.NewSupplierService(store),
		lowStock:  service.NewLowStockService(store),
		mailer:    &fakeMailer{},
		throttle:  newMemThrottle(),
	}
	e.alerts = NewAlertWorker(e.lowStock, e.mailer, e.throttle, "ops@example.com", time.Hour)
	return e
}

func (e *env) seed(t *testing.T, tenantID tenant.ID, sku string, stock, threshold int) {
	t.Helper()
	_, err := e.inventory.CreateProduct(context.Background(), tenantID, dto.CreateProductRequest{
		Name: "Product " + sku,
		Variants: []dto.VariantInput{{
			SKU:              sku,
			Price:            decimal.NewFromInt(10),
			InitialStock:     stock,
			ReorderThreshold: threshold,
		}},
	})
	require.NoError(t, err)
}

func stockChanged(t *testing.T, tenantID tenant.ID, skus ...string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(StockChangedPayload{TenantID: tenantID, SKUs: skus})
	require.NoError(t, err)
	return raw
}

// ── AlertWorker ──────────────────────────────────────────────────────────────

func TestAlertWorker_SendsOncePerWindow(t *testing.T) {
	e := newEnv()
	e.seed(t, "acme", "MUG-01", 2, 5)
	e.seed(t, "acme", "MUG-02", 50, 5)

	require.NoError(t, e.alerts.Process(context.Background(), stockChanged(t, "acme", "MUG-01", "MUG-02")))
	require.Len(t, e.mailer.alerts, 1)
	got := e.mailer.alerts[0]
	assert.Equal(t, "ops@example.com", got.to)
	assert.Equal(t, tenant.ID("acme"), got.tenant)
	require.Len(t, got.alerts, 1)
	assert.Equal(t, "MUG-01", got.alerts[0].SKU)

	// Still low, but throttled.
	require.NoError(t, e.alerts.Process(context.Background(), stockChanged(t, "acme", "MUG-01")))
	assert.Len(t, e.mailer.alerts, 1)
}

func TestAlertWorker_SendFailureReleasesThrottle(t *testing.T) {
	e := newEnv()
	e.seed(t, "acme", "MUG-01", 0, 5)
	e.mailer.failNext = errors.New("smtp unavailable")

	err := e.alerts.Process(context.Background(), stockChanged(t, "acme", "MUG-01"))
	require.Error(t, err)
	assert.Empty(t, e.mailer.alerts)

	require.NoError(t, e.alerts.Process(context.Background(), stockChanged(t, "acme", "MUG-01")))
	assert.Len(t, e.mailer.alerts, 1)
}

func TestAlertWorker_MailerDisabledIsNotRetried(t *testing.T) {
	e := newEnv()
	e.seed(t, "acme", "MUG-01", 0, 5)
	e.mailer.failNext = infra.ErrMailerDisabled

	assert.NoError(t, e.alerts.Process(context.Background(), stockChanged(t, "acme", "MUG-01")))
}

func TestAlertWorker_UnknownSKUIsSkipped(t *testing.T) {
	e := newEnv()
	require.NoError(t, e.alerts.Process(context.Background(), stockChanged(t, "acme", "GONE")))
	assert.Empty(t, e.mailer.alerts)
}

func TestAlertWorker_InvalidPayloadIsPermanent(t *testing.T) {
	e := newEnv()
	err := e.alerts.Process(context.Background(), json.RawMessage(`{"tenant_id":`))
	require.Error(t, err)
	assert.True(t, isPermanent(err))

	err = e.alerts.Process(context.Background(), stockChanged(t, "", "MUG-01"))
	assert.True(t, isPermanent(err))
}

// ── DocumentWorker ───────────────────────────────────────────────────────────

func (e *env) sentPO(t *testing.T, tenantID tenant.ID, supplierEmail *string) *model.PurchaseOrder {
	t.Helper()
	ctx := context.Background()
	e.seed(t, tenantID, "TEE-01", 0, 0)
	sup, err := e.suppliers.Create(ctx, tenantID, dto.CreateSupplierRequest{Name: "Acme Textiles", Email: supplierEmail})
	require.NoError(t, err)
	po, err := e.pos.Create(ctx, tenantID, dto.CreatePurchaseOrderRequest{
		SupplierID: sup.ID.String(),
		Items:      []dto.PurchaseOrderItemInput{{SKU: "TEE-01", Quantity: 10, UnitPrice: decimal.NewFromInt(4)}},
	})
	require.NoError(t, err)
	po, err = e.pos.Send(ctx, tenantID, po.ID)
	require.NoError(t, err)
	return po
}

func newTestDocumentWorker(e *env) (*DocumentWorker, *[]uuid.UUID) {
	var rendered []uuid.UUID
	w := NewDocumentWorker(e.pos, e.mailer, "/unused")
	w.render = func(po *model.PurchaseOrder, _ string) (string, error) {
		rendered = append(rendered, po.ID)
		return "/tmp/po.pdf", nil
	}
	return w, &rendered
}

func poSent(t *testing.T, tenantID tenant.ID, id uuid.UUID) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(PurchaseOrderSentPayload{TenantID: tenantID, PurchaseOrderID: id})
	require.NoError(t, err)
	return raw
}

func TestDocumentWorker_RendersAndMailsSupplier(t *testing.T) {
	e := newEnv()
	email := "orders@acme.test"
	po := e.sentPO(t, "acme", &email)
	w, rendered := newTestDocumentWorker(e)

	require.NoError(t, w.Process(context.Background(), poSent(t, "acme", po.ID)))
	assert.Equal(t, []uuid.UUID{po.ID}, *rendered)
	assert.Equal(t, []string{email}, e.mailer.pos)
}

func TestDocumentWorker_SupplierWithoutEmail(t *testing.T) {
	e := newEnv()
	po := e.sentPO(t, "acme", nil)
	w, rendered := newTestDocumentWorker(e)

	require.NoError(t, w.Process(context.Background(), poSent(t, "acme", po.ID)))
	assert.Len(t, *rendered, 1)
	assert.Empty(t, e.mailer.pos)
}

func TestDocumentWorker_UnknownOrForeignPOIsPermanent(t *testing.T) {
	e := newEnv()
	email := "orders@acme.test"
	po := e.sentPO(t, "acme", &email)
	w, _ := newTestDocumentWorker(e)

	err := w.Process(context.Background(), poSent(t, "acme", uuid.New()))
	require.ErrorIs(t, err, apierror.ErrNotFound)
	assert.True(t, isPermanent(err))

	err = w.Process(context.Background(), poSent(t, "globex", po.ID))
	require.Error(t, err)
	assert.True(t, isPermanent(err))
	assert.Empty(t, e.mailer.pos)
}

// ── Retry ────────────────────────────────────────────────────────────────────

func TestWithRetry(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := withRetry(ctx, 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetry(ctx, 3, time.Millisecond, func() error {
		calls++
		return errors.New("still down")
	})
	assert.EqualError(t, err, "still down")
	assert.Equal(t, 3, calls)

	calls = 0
	err = withRetry(ctx, 3, time.Millisecond, func() error {
		calls++
		return Permanent(errors.New("bad payload"))
	})
	assert.True(t, isPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := withRetry(ctx, 3, time.Hour, func() error {
		calls++
		cancel()
		return errors.New("down")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

// ── Scan ─────────────────────────────────────────────────────────────────────

func TestLowStockScanner_RunOnceCoversEveryTenant(t *testing.T) {
	e := newEnv()
	e.seed(t, "acme", "MUG-01", 1, 5)
	e.seed(t, "globex", "CUP-01", 0, 3)
	e.seed(t, "initech", "PEN-01", 100, 3)

	s := NewLowStockScanner(e.store, e.lowStock, e.alerts, nil, time.Minute)
	require.NoError(t, s.RunOnce(context.Background()))

	got := map[tenant.ID]string{}
	for _, m := range e.mailer.alerts {
		require.Len(t, m.alerts, 1)
		got[m.tenant] = m.alerts[0].SKU
	}
	assert.Equal(t, map[tenant.ID]string{"acme": "MUG-01", "globex": "CUP-01"}, got)

	// A second tick inside the throttle window sends nothing new.
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Len(t, e.mailer.alerts, 2)
}

func TestLowStockScanner_StopsWhenContextEnds(t *testing.T) {
	e := newEnv()
	e.seed(t, "acme", "MUG-01", 0, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewLowStockScanner(e.store, e.lowStock, e.alerts, nil, time.Minute)
	assert.ErrorIs(t, s.RunOnce(ctx), context.Canceled)
	assert.Empty(t, e.mailer.alerts)
}
