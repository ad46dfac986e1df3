package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/metrics"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueStock     = "jobs:stock"
	QueueDocuments = "jobs:documents"

	JobStockChanged      = "stock_changed"
	JobPurchaseOrderSent = "purchase_order_sent"

	// MaxAttempts bounds in-process retries before a job goes to the DLQ.
	MaxAttempts = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

type StockChangedPayload struct {
	TenantID tenant.ID `json:"tenant_id"`
	SKUs     []string  `json:"skus"`
}

type PurchaseOrderSentPayload struct {
	TenantID        tenant.ID `json:"tenant_id"`
	PurchaseOrderID uuid.UUID `json:"purchase_order_id"`
}

// Handler processes one job payload. Returning an error wrapped with
// Permanent skips the remaining retries.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying (malformed payload, deleted entity).
func Permanent(err error) error { return permanentError{err: err} }

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Dispatcher enqueues async jobs into Redis lists and implements
// service.EventPublisher. The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

func (d *Dispatcher) StockChanged(ctx context.Context, tenantID tenant.ID, skus []string) error {
	return d.enqueue(ctx, QueueStock, JobStockChanged, StockChangedPayload{TenantID: tenantID, SKUs: skus})
}

func (d *Dispatcher) PurchaseOrderSent(ctx context.Context, tenantID tenant.ID, poID uuid.UUID) error {
	return d.enqueue(ctx, QueueDocuments, JobPurchaseOrderSent, PurchaseOrderSentPayload{TenantID: tenantID, PurchaseOrderID: poID})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	if err := d.rdb.LPush(ctx, queue, encoded).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return nil
}

func encodeJob(jobType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Job{Type: jobType, Payload: data, EnqueuedAt: time.Now().UTC()})
}

// Pool routes dequeued jobs to their handler by job type.
type Pool struct {
	rdb      *redis.Client
	handlers map[string]Handler
	// backoff is the wait before the second attempt; it doubles per attempt.
	backoff time.Duration
}

func NewPool(rdb *redis.Client, handlers map[string]Handler) *Pool {
	return &Pool{rdb: rdb, handlers: handlers, backoff: time.Second}
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func (p *Pool) StartWorkerPool(ctx context.Context, numWorkers int) {
	if numWorkers < 1 {
		numWorkers = 1
	}
	for i := 0; i < numWorkers; i++ {
		go p.runWorker(ctx, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	queues := []string{QueueStock, QueueDocuments}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Error().Err(err).Int("worker", id).Msg("worker: BRPOP failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.processJob(ctx, result[0], result[1])
		}
	}
}

// processJob runs the handler with retries and dead-letters the job when
// every attempt failed.
func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, queue, "unknown", json.RawMessage(raw), err.Error(), 0)
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no handler for job type")
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, "no handler registered", 0)
		return
	}

	attempts := 0
	err := withRetry(ctx, MaxAttempts, p.backoff, func() error {
		attempts++
		return h.Process(ctx, job.Payload)
	})
	if err != nil {
		metrics.RecordJob(job.Type, "failed")
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, err.Error(), attempts)
		return
	}
	metrics.RecordJob(job.Type, "ok")
	log.Debug().Str("type", job.Type).Int("attempts", attempts).Msg("job processed")
}

// withRetry calls fn up to maxAttempts times with exponential backoff:
// attempt 1 immediate, then base, 2×base, ...
// Permanent errors stop immediately. Returns the last error.
func withRetry(ctx context.Context, maxAttempts int, base time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := base << uint(i-1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if isPermanent(lastErr) {
			return lastErr
		}
		log.Warn().Err(lastErr).Int("attempt", i+1).Msg("job attempt failed")
	}
	return lastErr
}
