package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/recordkit/recordkit/pkg/api"
	"github.com/recordkit/recordkit/pkg/config"
	"github.com/recordkit/recordkit/pkg/lifecycle"
	"github.com/recordkit/recordkit/pkg/observability"
	"github.com/recordkit/recordkit/pkg/record"
	"github.com/recordkit/recordkit/pkg/storage"
	"github.com/recordkit/recordkit/pkg/storage/postgres"
)

func main() {
	// Startup logger; the structured logger takes over once config is loaded.
	startup := logrus.New()
	startup.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig()
	if err != nil {
		startup.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	var metrics *observability.Metrics
	var metricsHandler http.Handler
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
		metricsHandler = metrics.Handler()
	}

	store, err := postgres.NewStore(cfg.Storage)
	if err != nil {
		startup.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()
	logger.WithField("driver", cfg.Storage.Driver).Info("storage initialized")

	var recordStore storage.RecordStore = store
	if cfg.Storage.CacheSize > 0 {
		cached, err := postgres.NewCachedStore(store, cfg.Storage.CacheSize)
		if err != nil {
			startup.Fatalf("Failed to initialize record cache: %v", err)
		}
		recordStore = cached
	}

	var mirror storage.MirrorStore
	if cfg.Storage.MirrorEnabled {
		m, err := postgres.NewMirror(cfg.Storage)
		if err != nil {
			startup.Fatalf("Failed to connect to mirror store: %v", err)
		}
		defer m.Close()
		mirror = m
		logger.Info("mirror store enabled")
	}

	policy, err := record.NewPolicy(record.DefaultTransitions(), cfg.Lifecycle.RevivalTargets)
	if err != nil {
		startup.Fatalf("Failed to build status policy: %v", err)
	}

	service := lifecycle.NewService(recordStore, policy, lifecycle.Options{
		Mirror:          mirror,
		DefaultPageSize: cfg.Lifecycle.DefaultPageSize,
		Logger:          logger,
		Metrics:         metrics,
	})

	if mirror != nil {
		sweeper := lifecycle.NewSweeper(recordStore, mirror, logger, metrics, cfg.Lifecycle.ResyncBatch)
		if err := sweeper.Start(cfg.Lifecycle.ResyncSchedule); err != nil {
			startup.Fatalf("Failed to start re-sync sweeper: %v", err)
		}
		defer sweeper.Stop()
		logger.WithField("schedule", cfg.Lifecycle.ResyncSchedule).Info("re-sync sweeper started")
	}

	server := api.NewServer(service, api.Options{
		Logger:         logger,
		MetricsHandler: metricsHandler,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			startup.Fatalf("Server failed: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	logger.Info("server stopped")
}
