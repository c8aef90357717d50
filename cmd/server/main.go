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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sheikh-saqib/atm-ledger/internal/config"
	"github.com/sheikh-saqib/atm-ledger/internal/directory"
	"github.com/sheikh-saqib/atm-ledger/internal/events/kafka"
	"github.com/sheikh-saqib/atm-ledger/internal/httpapi"
	interfaces "github.com/sheikh-saqib/atm-ledger/internal/interfaces"
	"github.com/sheikh-saqib/atm-ledger/internal/ledger"
	"github.com/sheikh-saqib/atm-ledger/internal/logging"
	promcollector "github.com/sheikh-saqib/atm-ledger/internal/metrics/prometheus"
	"github.com/sheikh-saqib/atm-ledger/internal/recorder"
	"github.com/sheikh-saqib/atm-ledger/internal/resilience"
	"github.com/sheikh-saqib/atm-ledger/internal/storage/memory"
	"github.com/sheikh-saqib/atm-ledger/internal/storage/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "atm-ledger: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store  interfaces.LedgerStore
		health func(ctx context.Context) error
	)
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		store, health = pg, pg.Ping
	default:
		store = memory.NewMemoryLedgerStore()
	}
	logger.Info("store ready", zap.String("driver", cfg.StoreDriver))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := promcollector.NewPrometheusCollector("atm")
	if err := collector.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	dir := directory.New(store,
		directory.WithLogger(logger),
		directory.WithAttempts(cfg.IDAllocAttempts),
	)
	if cfg.AdminID != "" {
		if _, err := dir.EnsureAdmin(ctx, cfg.AdminID, cfg.AdminPin); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithMetrics(collector),
	}
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewPublisher(cfg.KafkaBrokers)
		defer producer.Close()

		publisher := resilience.NewPublisher(producer, resilience.DefaultConfig(), collector, logger)
		opts = append(opts, ledger.WithPublisher(publisher, cfg.KafkaTopic))
		logger.Info("event publishing enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}
	engine := ledger.NewLedger(store, recorder.New(store), dir, opts...)

	api := httpapi.NewServer(engine, dir,
		httpapi.WithLogger(logger),
		httpapi.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
		httpapi.WithHealthCheck(health),
	)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
