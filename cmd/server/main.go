package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/Tauqir1234/Festio/internal/admission"
	"github.com/Tauqir1234/Festio/internal/aggregate"
	"github.com/Tauqir1234/Festio/internal/catalog"
	"github.com/Tauqir1234/Festio/internal/config"
	"github.com/Tauqir1234/Festio/internal/db"
	"github.com/Tauqir1234/Festio/internal/httpapi"
	"github.com/Tauqir1234/Festio/internal/identity"
	"github.com/Tauqir1234/Festio/internal/ledger"
	"github.com/Tauqir1234/Festio/internal/metrics"
	"github.com/Tauqir1234/Festio/internal/search"
	"github.com/Tauqir1234/Festio/internal/workers"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		slog.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(pg); err != nil {
		slog.Error("migrate", "error", err)
		os.Exit(1)
	}
	if cfg.SeedSampleData {
		if err := db.Seed(pg); err != nil {
			slog.Error("seed", "error", err)
			os.Exit(1)
		}
	}

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	aggregates := aggregate.New(pg, cfg.AggregateCacheTTL)
	reg := ledger.New(pg, aggregates)
	controller := admission.New(pg, reg, aggregates)

	var (
		searcher *search.Index
		sync     *workers.SyncWorker
	)
	if cfg.ElasticURL != "" {
		es, err := search.Connect(cfg.ElasticURL)
		if err != nil {
			slog.Error("connect elasticsearch", "error", err)
			os.Exit(1)
		}
		searcher = search.NewIndex(es)
		sync = &workers.SyncWorker{
			DB:        pg,
			ES:        es,
			Interval:  cfg.SyncInterval,
			BatchSize: cfg.OutboxBatchSize,
		}
		go sync.Run(ctx)
		go sync.RetryDLQ(ctx, cfg.DLQRetryInterval)
	} else {
		slog.Info("elasticsearch disabled, catalog search uses SQL fallback")
	}

	var cat *catalog.Catalog
	if searcher != nil {
		cat = catalog.New(pg, searcher)
	} else {
		cat = catalog.New(pg, nil)
	}

	server := &httpapi.Server{
		Catalog:    cat,
		Ledger:     reg,
		Admission:  controller,
		Aggregates: aggregates,
		Verifier:   identity.NewVerifier(cfg.JWTSecret),
		DB:         pg,
		Sync:       sync,
	}

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", server.Routes())

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: corsMiddleware.Handler(mux),
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		_ = httpServer.Shutdown(context.Background())
	}()

	slog.Info("festio API listening", "addr", cfg.HTTPAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("listener failed", "error", err)
		os.Exit(1)
	}
}
