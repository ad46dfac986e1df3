package worker

import (
	"context"
	"errors"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/bsm/redislock"
	"github.com/rs/zerolog/log"
)

const scanLockKey = "lock:low_stock_scan"

// LowStockScanner re-evaluates every tenant periodically so alerts are not
// lost when a stock_changed event is dropped. With several replicas running,
// the redis lock lets only one of them scan per tick.
type LowStockScanner struct {
	store    repository.Store
	lowStock service.LowStockService
	alerts   *AlertWorker
	locker   *redislock.Client
	interval time.Duration
}

// NewLowStockScanner builds a scanner. A nil locker scans without locking.
func NewLowStockScanner(store repository.Store, lowStock service.LowStockService, alerts *AlertWorker, locker *redislock.Client, interval time.Duration) *LowStockScanner {
	return &LowStockScanner{store: store, lowStock: lowStock, alerts: alerts, locker: locker, interval: interval}
}

// StartLowStockScan runs the scan every interval until ctx is cancelled.
func (s *LowStockScanner) StartLowStockScan(ctx context.Context) {
	if s.interval <= 0 {
		log.Info().Msg("low_stock_scan: disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		log.Info().Dur("interval", s.interval).Msg("low_stock_scan: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("low_stock_scan: shutting down")
				return
			case <-ticker.C:
				if err := s.RunOnce(ctx); err != nil {
					log.Error().Err(err).Msg("low_stock_scan: tick failed")
				}
			}
		}
	}()
}

// RunOnce scans all tenants if the lock can be obtained. The lock is
// refreshed while the scan runs; losing it aborts the scan so two replicas
// never scan at once.
func (s *LowStockScanner) RunOnce(ctx context.Context) error {
	if s.locker == nil {
		return s.scan(ctx)
	}

	ttl := s.lockTTL()
	lock, err := s.locker.Obtain(ctx, scanLockKey, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		log.Debug().Msg("low_stock_scan: another replica holds the lock, skipping tick")
		return nil
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Warn().Err(err).Msg("low_stock_scan: failed to release lock")
		}
	}()

	scanCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		keepLock(scanCtx, lock, ttl, cancel)
	}()
	defer func() {
		cancel()
		<-done
	}()
	return s.scan(scanCtx)
}

func (s *LowStockScanner) scan(ctx context.Context) error {
	tenants, err := s.store.Variants().Tenants(ctx)
	if err != nil {
		return err
	}
	for _, t := range tenants {
		if err := ctx.Err(); err != nil {
			return err
		}
		alerts, err := s.lowStock.Evaluate(ctx, t)
		if err != nil {
			log.Error().Err(err).Str("tenant_id", t.String()).Msg("low_stock_scan: evaluate failed")
			continue
		}
		if err := s.alerts.Notify(ctx, t, alerts); err != nil {
			log.Error().Err(err).Str("tenant_id", t.String()).Msg("low_stock_scan: notify failed")
		}
	}
	log.Debug().Int("tenants", len(tenants)).Msg("low_stock_scan: tick done")
	return nil
}

// keepLock extends lock by ttl every ttl/3 until ctx ends. When a refresh
// fails the lock may already belong to another replica, so lost is called.
func keepLock(ctx context.Context, lock *redislock.Lock, ttl time.Duration, lost context.CancelFunc) {
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := lock.Refresh(ctx, ttl, nil); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn().Err(err).Msg("low_stock_scan: lock lost, aborting scan")
				lost()
				return
			}
		}
	}
}

// lockTTL bounds how long a dead holder blocks the scan. A live holder keeps
// refreshing it, so it need not cover a whole scan.
func (s *LowStockScanner) lockTTL() time.Duration {
	if s.interval <= 0 {
		return time.Minute
	}
	return s.interval / 2
}
