package router_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/config"
	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/middleware"
	"github.com/DebkantaDey/inventory-management-system/internal/repository/memory"
	"github.com/DebkantaDey/inventory-management-system/internal/router"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "router-test-secret"

type testEnv struct {
	engine *gin.Engine
	tokens map[string]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{Env: "test", JWTSecret: secret, RateLimit: 10_000}
	store := memory.NewStore()
	svc := router.NewServices(store, nil, 2)
	env := &testEnv{
		engine: router.New(cfg, svc, router.Deps{Store: store}),
		tokens: map[string]string{},
	}
	for _, tenantID := range []string{"acme", "globex"} {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.JWTClaims{
			TenantID: tenantID,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}).SignedString([]byte(secret))
		require.NoError(t, err)
		env.tokens[tenantID] = tok
	}
	return env
}

func (e *testEnv) do(t *testing.T, tenantID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tenantID != "" {
		req.Header.Set("Authorization", "Bearer "+e.tokens[tenantID])
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) createProduct(t *testing.T, tenantID, sku string, stock, threshold int) {
	t.Helper()
	w := e.do(t, tenantID, http.MethodPost, "/v1/products", map[string]any{
		"name":     "Mug " + sku,
		"category": "kitchen",
		"variants": []map[string]any{{
			"sku": sku, "price": "12.50", "initial_stock": stock, "reorder_threshold": threshold,
			"attributes": map[string]string{"color": "red"},
		}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func order(lines ...any) map[string]any {
	out := []map[string]any{}
	for i := 0; i < len(lines); i += 2 {
		out = append(out, map[string]any{"sku": lines[i], "quantity": lines[i+1]})
	}
	return map[string]any{"lines": out}
}

func TestHealthAndAuth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "", http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	assert.Equal(t, "connected", health["store"])
	assert.Equal(t, "disabled", health["redis"])

	w = env.do(t, "", http.MethodGet, "/v1/products", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "", http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.createProduct(t, "acme", "MUG-01", 5, 3)

	w := env.do(t, "acme", http.MethodPost, "/v1/orders", order("MUG-01", 3))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "completed", decode[dto.OrderResponse](t, w).Status)

	w = env.do(t, "acme", http.MethodPost, "/v1/orders", order("MUG-01", 5))
	require.Equal(t, http.StatusCreated, w.Code)
	partial := decode[dto.OrderResponse](t, w)
	assert.Equal(t, "partially_fulfilled", partial.Status)
	require.Len(t, partial.Lines, 1)
	assert.Equal(t, 2, partial.Lines[0].ReservedQty)
	assert.Equal(t, 3, partial.Lines[0].OwedQty)

	w = env.do(t, "acme", http.MethodPost, "/v1/orders", order("MUG-01", 1))
	require.Equal(t, http.StatusConflict, w.Code)
	rejected := decode[struct {
		Kind  string            `json:"kind"`
		Order dto.OrderResponse `json:"order"`
	}](t, w)
	assert.Equal(t, "no_stock_available", rejected.Kind)
	assert.Equal(t, "cancelled", rejected.Order.Status)

	w = env.do(t, "acme", http.MethodPost, "/v1/orders/"+partial.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode[dto.OrderResponse](t, w).Status)

	w = env.do(t, "acme", http.MethodPost, "/v1/orders/"+partial.ID+"/cancel", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "invalid_transition", decode[map[string]any](t, w)["kind"])

	w = env.do(t, "acme", http.MethodGet, "/v1/orders?status=cancelled", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[dto.OrderListResponse](t, w).Total)

	w = env.do(t, "acme", http.MethodGet, "/v1/inventory/reconciliation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.ReconciliationResponse](t, w).Consistent)
}

func TestMovementsStreamNDJSON(t *testing.T) {
	env := newTestEnv(t)
	env.createProduct(t, "acme", "MUG-01", 10, 0)
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, env.do(t, "acme", http.MethodPost, "/v1/orders", order("MUG-01", 1)).Code)
	}

	w := env.do(t, "acme", http.MethodGet, "/v1/inventory/movements?sku=MUG-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/x-ndjson", w.Header().Get("Content-Type"))

	var rows []dto.MovementResponse
	sc := bufio.NewScanner(w.Body)
	for sc.Scan() {
		var m dto.MovementResponse
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		rows = append(rows, m)
	}
	require.Len(t, rows, 4)
	assert.Equal(t, "adjustment", rows[0].Type)
	assert.Equal(t, 10, rows[0].StockAfter)
	for i, m := range rows[1:] {
		assert.Equal(t, "sale", m.Type)
		assert.Equal(t, -1, m.Quantity)
		assert.Equal(t, 9-i, m.StockAfter)
	}

	w = env.do(t, "acme", http.MethodGet, "/v1/inventory/movements?type=sale", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, bytes.Count(w.Body.Bytes(), []byte("\n")))

	w = env.do(t, "globex", http.MethodGet, "/v1/inventory/movements", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = env.do(t, "acme", http.MethodGet, "/v1/inventory/movements?type=theft", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestTenantIsolationOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.createProduct(t, "acme", "MUG-01", 5, 0)

	w := env.do(t, "acme", http.MethodPost, "/v1/orders", order("MUG-01", 1))
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode[dto.OrderResponse](t, w).ID

	// Same SKU name in another tenant is a different variant.
	w = env.do(t, "globex", http.MethodPost, "/v1/orders", order("MUG-01", 1))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "globex", http.MethodGet, "/v1/orders/"+id, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "acme")

	w = env.do(t, "globex", http.MethodGet, "/v1/products", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[dto.ProductListResponse](t, w).Data)
}

func TestPurchaseOrderFlowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	env.createProduct(t, "acme", "MUG-01", 0, 150)

	w := env.do(t, "acme", http.MethodPost, "/v1/suppliers", map[string]any{"name": "Acme Ceramics", "email": "po@ceramics.test"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	supplierID := decode[dto.SupplierResponse](t, w).ID

	w = env.do(t, "acme", http.MethodPost, "/v1/purchase-orders", map[string]any{"supplier_id": supplierID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	poID := decode[dto.PurchaseOrderResponse](t, w).ID

	w = env.do(t, "acme", http.MethodPost, "/v1/purchase-orders/"+poID+"/items",
		map[string]any{"sku": "MUG-01", "quantity": 100, "unit_price": "2.00"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, "acme", http.MethodPost, "/v1/purchase-orders/"+poID+"/send", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sent", decode[dto.PurchaseOrderResponse](t, w).Status)

	w = env.do(t, "acme", http.MethodGet, "/v1/inventory/low-stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	alerts := decode[[]dto.LowStockAlertResponse](t, w)
	require.Len(t, alerts, 1)
	assert.Equal(t, 100, alerts[0].PendingQty)

	receive := func(qty int, price string) *httptest.ResponseRecorder {
		return env.do(t, "acme", http.MethodPost, "/v1/purchase-orders/"+poID+"/receipts", map[string]any{
			"receipts": []map[string]any{{"sku": "MUG-01", "quantity": qty, "unit_price": price}},
		})
	}
	w = receive(60, "2.00")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "confirmed", decode[dto.PurchaseOrderResponse](t, w).Status)

	w = receive(50, "2.50")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "over_receipt", decode[map[string]any](t, w)["kind"])

	w = receive(40, "2.50")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "received", decode[dto.PurchaseOrderResponse](t, w).Status)

	w = env.do(t, "acme", http.MethodGet, "/v1/purchase-orders/"+poID+"/price-variance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	variance := decode[dto.PriceVarianceResponse](t, w)
	assert.True(t, variance.Total.Equal(decimal.NewFromInt(20)), variance.Total.String())

	w = env.do(t, "acme", http.MethodGet, "/v1/products", nil)
	products := decode[dto.ProductListResponse](t, w)
	require.Len(t, products.Data, 1)
	assert.Equal(t, 100, products.Data[0].Variants[0].Stock)
}

func TestValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "acme", http.MethodPost, "/v1/orders", order("MUG-01", 0))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, "acme", http.MethodPost, "/v1/inventory/adjustments", map[string]any{"sku": "MUG-01", "delta": 0, "reason": "count"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, "acme", http.MethodGet, "/v1/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, "acme", http.MethodPost, "/v1/purchase-orders", map[string]any{"supplier_id": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
