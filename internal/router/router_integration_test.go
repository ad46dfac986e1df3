//go:build integration

package router_test

// End-to-end tests over real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/config"
	"github.com/DebkantaDey/inventory-management-system/internal/dto"
	"github.com/DebkantaDey/inventory-management-system/internal/infra"
	"github.com/DebkantaDey/inventory-management-system/internal/middleware"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/router"
	"github.com/DebkantaDey/inventory-management-system/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type e2eEnv struct {
	*testEnv
	rdb *redis.Client
}

func setupE2E(t *testing.T) *e2eEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("inventory_test"),
		tcPostgres.WithUsername("inventory"),
		tcPostgres.WithPassword("inventory"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:            "test",
		JWTSecret:      secret,
		RateLimit:      10_000,
		DatabaseURL:    pgURL,
		RedisURL:       rdURL,
		PDFStoragePath: t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	gin.SetMode(gin.TestMode)
	store := repository.NewPostgresStore(db)
	svc := router.NewServices(store, worker.NewDispatcher(rdb), 50)
	mailer := infra.NewMailer(cfg, infra.NewCircuitBreaker("smtp", infra.DefaultCBConfig()))

	env := &e2eEnv{
		testEnv: &testEnv{
			engine: router.New(cfg, svc, router.Deps{Store: store, Redis: rdb, Mailer: mailer}),
			tokens: map[string]string{},
		},
		rdb: rdb,
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

func TestE2E_OrderCycleEnqueuesStockEvents(t *testing.T) {
	env := setupE2E(t)

	w := env.do(t, "", http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[map[string]any](t, w)
	assert.Equal(t, "connected", health["store"])
	assert.Equal(t, "connected", health["redis"])

	env.createProduct(t, "acme", "MUG-01", 4, 2)

	w = env.do(t, "acme", http.MethodPost, "/v1/orders", order("MUG-01", 3))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	placed := decode[dto.OrderResponse](t, w)
	assert.Equal(t, "completed", placed.Status)

	w = env.do(t, "acme", http.MethodPost, "/v1/orders", order("MUG-01", 5))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "partially_fulfilled", decode[dto.OrderResponse](t, w).Status)

	// opening stock + two sales
	queued, err := env.rdb.LLen(context.Background(), worker.QueueStock).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), queued)

	w = env.do(t, "acme", http.MethodPost, "/v1/orders/"+placed.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, "acme", http.MethodGet, "/v1/inventory/reconciliation", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"consistent":true,"discrepancies":[]}`, w.Body.String())

	// another tenant cannot see the order
	w = env.do(t, "globex", http.MethodGet, "/v1/orders/"+placed.ID, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "acme")
}

func TestE2E_SendPurchaseOrderEnqueuesDocument(t *testing.T) {
	env := setupE2E(t)
	env.createProduct(t, "acme", "MUG-01", 0, 0)

	w := env.do(t, "acme", http.MethodPost, "/v1/suppliers", map[string]any{"name": "Acme Supply", "email": "buyer@acme.test"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sup := decode[dto.SupplierResponse](t, w)

	w = env.do(t, "acme", http.MethodPost, "/v1/purchase-orders", map[string]any{
		"supplier_id": sup.ID,
		"items":       []map[string]any{{"sku": "MUG-01", "quantity": 6, "unit_price": "3.00"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	po := decode[dto.PurchaseOrderResponse](t, w)

	w = env.do(t, "acme", http.MethodPost, "/v1/purchase-orders/"+po.ID+"/send", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	queued, err := env.rdb.LLen(context.Background(), worker.QueueDocuments).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), queued)

	w = env.do(t, "acme", http.MethodPost, "/v1/purchase-orders/"+po.ID+"/receipts", map[string]any{
		"receipts": []map[string]any{{"sku": "MUG-01", "quantity": 6, "unit_price": "3.00"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "received", decode[dto.PurchaseOrderResponse](t, w).Status)

	w = env.do(t, "acme", http.MethodGet, "/v1/inventory/movements?sku=MUG-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"purchase"`)
}
