package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appentitlement "github.com/pharmalink/entitlements/internal/application/entitlement"
	"github.com/pharmalink/entitlements/internal/domain/entitlement"
	"github.com/pharmalink/entitlements/internal/infrastructure/cache"
	"github.com/pharmalink/entitlements/internal/infrastructure/config"
	"github.com/pharmalink/entitlements/internal/infrastructure/logger"
	"github.com/pharmalink/entitlements/internal/infrastructure/metrics"
	"github.com/pharmalink/entitlements/internal/infrastructure/persistence"
	"github.com/pharmalink/entitlements/internal/interfaces/http/handler"
	"github.com/pharmalink/entitlements/internal/interfaces/http/middleware"
	"github.com/pharmalink/entitlements/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting entitlement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ledger, closeLedger, err := buildLedger(cfg, db, log)
	if err != nil {
		log.Fatal("Failed to build usage ledger", zap.Error(err))
	}
	defer closeLedger()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.MustNewMetrics(registry)

	accounts := persistence.NewGormAccountDirectory(db.DB)
	service := appentitlement.NewService(
		entitlement.DefaultCatalog(),
		ledger,
		accounts,
		log.Named("entitlement"),
		appentitlement.ServiceConfig{Metrics: m},
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.HTTPMetrics(registry),
	)

	systemHandler := handler.NewSystemHandler(db)
	engine.GET("/healthz", systemHandler.Health)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.Mount(engine, "v1",
		handler.NewEntitlementHandler(service),
		handler.NewAccountHandler(accounts),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}

// buildLedger selects the usage ledger backend. Accounts always live in
// Postgres; only the counter storage is switchable.
func buildLedger(cfg *config.Config, db *persistence.Database, log *zap.Logger) (entitlement.UsageLedger, func(), error) {
	switch cfg.Ledger.Backend {
	case "redis":
		ledger, err := cache.NewRedisUsageLedger(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info("Usage ledger backend", zap.String("backend", "redis"))
		return ledger, func() {
			if err := ledger.Close(); err != nil {
				log.Warn("Failed to close redis ledger", zap.Error(err))
			}
		}, nil
	default:
		log.Info("Usage ledger backend", zap.String("backend", "postgres"))
		return persistence.NewGormUsageLedger(db.DB), func() {}, nil
	}
}
