// adluc discovery-service
//
// Pulls listings from external RSS/Atom feeds on a fixed interval, normalises
// and dedups them, and commits them to the shared listings table.
// Publishes EVENT_LISTINGS_INGESTED (Redis) and listings.ingested (NATS) after
// every cycle that inserted rows.
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

	"go.uber.org/zap"

	"adluc/discovery-service/internal/api"
	"adluc/discovery-service/internal/config"
	"adluc/discovery-service/internal/db"
	"adluc/discovery-service/internal/events"
	"adluc/discovery-service/internal/metrics"
	"adluc/discovery-service/internal/scheduler"
	"adluc/discovery-service/internal/scraper"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("discovery-service stopped with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── PostgreSQL ───────────────────────────────────────────────────────────
	pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("postgres connected")

	if cfg.AutoMigrate {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
	}
	store := db.NewPostgresStore(pool)

	// ── Event publishers ─────────────────────────────────────────────────────
	var pubs events.Multi
	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		pubs = append(pubs, events.NewRedisPublisher(rdb))
		logger.Info("redis connected")
	}
	if cfg.NATSURL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATSURL, logger)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer nc.Close()
		pubs = append(pubs, nc)
		logger.Info("nats connected")
	}
	var publisher events.Publisher
	if len(pubs) > 0 {
		publisher = pubs
	}

	// ── Ingestion ────────────────────────────────────────────────────────────
	m := metrics.New("discovery")
	ingestor := scraper.NewIngestor(scraper.IngestorConfig{
		Sources:      cfg.Feed.Sources,
		PerSourceCap: cfg.Ingest.PerSourceCap,
		BlockedTerms: cfg.Ingest.BlockedTerms,
		BatchTimeout: cfg.Ingest.BatchTimeout,
	}, scraper.NewHTTPFetcher(cfg.Feed, logger), store, publisher, m, logger)

	sched := scheduler.New(ingestor, cfg.Ingest.Interval, cfg.Ingest.RunOnStart, logger)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	// Runs before the connection closes deferred above.
	defer func() {
		sched.Stop()
		waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.Ingest.BatchTimeout+30*time.Second)
		defer waitCancel()
		if err := ingestor.Shutdown(waitCtx); err != nil {
			logger.Warn("ingestion still running at exit", zap.Error(err))
		}
		logger.Info("ingestion stopped")
	}()

	// ── HTTP server ──────────────────────────────────────────────────────────
	h := api.NewHandler(store, ingestor, cfg.Ingest.OnDemandTimeout, m.Handler(), logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Ingest.BatchTimeout + 10*time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.Int("sources", len(cfg.Feed.Sources)),
			zap.Duration("interval", cfg.Ingest.Interval),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-srvErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	return nil
}
