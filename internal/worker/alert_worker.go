package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/apierror"
	"github.com/DebkantaDey/inventory-management-system/internal/infra"
	"github.com/DebkantaDey/inventory-management-system/internal/metrics"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type AlertMailer interface {
	SendLowStockAlert(to string, tenantID tenant.ID, alerts []service.LowStockAlert) error
}

// Throttle claims a key for ttl. Allow returns false while a previous claim
// is still live.
type Throttle interface {
	Allow(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, keys ...string) error
}

// RedisThrottle implements Throttle with SET NX EX.
type RedisThrottle struct {
	rdb *redis.Client
}

func NewRedisThrottle(rdb *redis.Client) *RedisThrottle {
	return &RedisThrottle{rdb: rdb}
}

func (t *RedisThrottle) Allow(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return t.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (t *RedisThrottle) Release(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return t.rdb.Del(ctx, keys...).Err()
}

// AlertWorker turns stock_changed events into low-stock e-mails.
// Each (tenant, sku) alerts at most once per throttle window.
type AlertWorker struct {
	lowStock service.LowStockService
	mailer   AlertMailer
	throttle Throttle
	to       string
	window   time.Duration
}

func NewAlertWorker(lowStock service.LowStockService, mailer AlertMailer, throttle Throttle, to string, window time.Duration) *AlertWorker {
	return &AlertWorker{lowStock: lowStock, mailer: mailer, throttle: throttle, to: to, window: window}
}

// Process handles a JobStockChanged payload.
func (w *AlertWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var p StockChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Permanent(fmt.Errorf("alert_worker: invalid payload: %w", err))
	}
	if err := tenant.Require(p.TenantID); err != nil {
		return Permanent(err)
	}

	alerts := make([]service.LowStockAlert, 0, len(p.SKUs))
	for _, sku := range p.SKUs {
		a, err := w.lowStock.EvaluateSKU(ctx, p.TenantID, sku)
		if errors.Is(err, apierror.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if a != nil {
			alerts = append(alerts, *a)
		}
	}
	return w.Notify(ctx, p.TenantID, alerts)
}

// Notify e-mails the alerts that are not throttled.
func (w *AlertWorker) Notify(ctx context.Context, tenantID tenant.ID, alerts []service.LowStockAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	fresh := make([]service.LowStockAlert, 0, len(alerts))
	claimed := make([]string, 0, len(alerts))
	for _, a := range alerts {
		key := throttleKey(tenantID, a.SKU)
		ok, err := w.throttle.Allow(ctx, key, w.window)
		if err != nil {
			_ = w.throttle.Release(ctx, claimed...)
			return fmt.Errorf("alert_worker: throttle: %w", err)
		}
		if ok {
			fresh = append(fresh, a)
			claimed = append(claimed, key)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	if w.to == "" {
		logAlerts(tenantID, fresh, "ALERT_EMAIL not configured")
		return nil
	}
	err := w.mailer.SendLowStockAlert(w.to, tenantID, fresh)
	switch {
	case errors.Is(err, infra.ErrMailerDisabled):
		logAlerts(tenantID, fresh, "mailer disabled")
		return nil
	case err != nil:
		// Give the claims back so the retry can send them.
		_ = w.throttle.Release(ctx, claimed...)
		return fmt.Errorf("alert_worker: send: %w", err)
	}

	metrics.LowStockAlertsTotal.Inc()
	log.Info().Str("tenant_id", tenantID.String()).Int("skus", len(fresh)).Msg("alert_worker: low-stock alert sent")
	return nil
}

func throttleKey(tenantID tenant.ID, sku string) string {
	return fmt.Sprintf("alert:low_stock:%s:%s", tenantID, sku)
}

func logAlerts(tenantID tenant.ID, alerts []service.LowStockAlert, reason string) {
	for _, a := range alerts {
		log.Warn().
			Str("tenant_id", tenantID.String()).
			Str("sku", a.SKU).
			Int("stock", a.Stock).
			Int("pending_qty", a.PendingQty).
			Int("reorder_threshold", a.ReorderThreshold).
			Str("reason", reason).
			Msg("alert_worker: low stock (not e-mailed)")
	}
}
