package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DebkantaDey/inventory-management-system/internal/config"
	"github.com/DebkantaDey/inventory-management-system/internal/infra"
	"github.com/DebkantaDey/inventory-management-system/internal/repository"
	"github.com/DebkantaDey/inventory-management-system/internal/repository/memory"
	"github.com/DebkantaDey/inventory-management-system/internal/router"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/DebkantaDey/inventory-management-system/internal/worker"
	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is optional: without it events are dropped and no worker runs.
	var rdb *redis.Client
	var publisher service.EventPublisher
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		publisher = worker.NewDispatcher(rdb)
	} else {
		log.Warn().Msg("REDIS_URL empty: async alerts and PO documents are disabled")
	}

	svc := router.NewServices(store, publisher, cfg.QueryBatchSize)
	mailer := infra.NewMailer(cfg, infra.NewCircuitBreaker("smtp", infra.DefaultCBConfig()))

	// Worker handlers are wired here (composition root) so the pool has
	// access to every infrastructure dependency.
	if rdb != nil {
		alerts := worker.NewAlertWorker(svc.LowStock, mailer, worker.NewRedisThrottle(rdb), cfg.AlertEmail, cfg.AlertThrottle)
		documents := worker.NewDocumentWorker(svc.PurchaseOrders, mailer, cfg.PDFStoragePath)

		pool := worker.NewPool(rdb, map[string]worker.Handler{
			worker.JobStockChanged:      alerts,
			worker.JobPurchaseOrderSent: documents,
		})
		pool.StartWorkerPool(ctx, cfg.WorkerPoolSize)

		worker.NewLowStockScanner(store, svc.LowStock, alerts, redislock.New(rdb), cfg.LowStockScanInterval).
			StartLowStockScan(ctx)
	}

	r := router.New(cfg, svc, router.Deps{Store: store, Redis: rdb, Mailer: mailer})

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// movement exports stream for as long as the history takes
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Str("storage", cfg.StorageDriver).Msgf("inventory service listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

func openStore(cfg *config.Config) (repository.Store, error) {
	switch cfg.StorageDriver {
	case "memory":
		log.Warn().Msg("using the in-memory store: data is lost on restart")
		return memory.NewStore(), nil
	case "postgres", "":
		db, err := infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return repository.NewPostgresStore(db), nil
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q (want postgres or memory)", cfg.StorageDriver)
	}
}
