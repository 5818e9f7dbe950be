package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appinvoicing "github.com/Godswill9/sage200EvolutionApi/internal/application/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/domain/invoicing"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/cache"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/config"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/ledger"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/logger"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/persistence"
	"github.com/Godswill9/sage200EvolutionApi/internal/infrastructure/telemetry"
	"github.com/Godswill9/sage200EvolutionApi/internal/interfaces/http/handler"
	"github.com/Godswill9/sage200EvolutionApi/internal/interfaces/http/middleware"
	"github.com/Godswill9/sage200EvolutionApi/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting Sage invoice API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("company_id", cfg.App.CompanyID),
	)

	ctx := context.Background()
	tel := setupTelemetry(ctx, cfg, log)
	log = tel.logger
	defer tel.shutdown(log)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), logger.WithStore("audit"))

	// Audit store (PostgreSQL)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	registerDBTracing(cfg, db, telemetry.DBSystemPostgres, log)
	log.Info("Database connected successfully")

	poolMetrics, err := telemetry.NewPoolMetrics(tel.meter.Meter("db.pool"))
	if err != nil {
		log.Fatal("Failed to create pool metrics", zap.Error(err))
	}
	defer func() { _ = poolMetrics.Stop() }()
	trackPool(poolMetrics, "audit", db, log)

	health := handler.NewHealthHandler().WithStore("database", db)

	// Secondary store (Sage company database). Optional: line
	// materialization and line reads are off without it.
	var lines invoicing.InvoiceLineStore
	if cfg.Secondary.Enabled() {
		secondaryLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), logger.WithStore("secondary"))
		secondary, err := persistence.NewSecondaryDatabase(&cfg.Secondary, secondaryLog)
		if err != nil {
			log.Fatal("Failed to connect to secondary database", zap.Error(err))
		}
		defer func() {
			if err := secondary.Close(); err != nil {
				log.Error("Error closing secondary database", zap.Error(err))
			}
		}()
		registerDBTracing(cfg, secondary, telemetry.DBSystemSQLServer, log)
		trackPool(poolMetrics, "secondary", secondary, log)
		lines = persistence.NewGormInvoiceLineRepository(secondary.DB)
		health.WithStore("secondary", secondary)
		log.Info("Secondary database connected successfully")
	} else {
		log.Info("Secondary database not configured, line materialization disabled")
	}

	// Per-invoice posting lock
	lock, err := cache.NewKeyLockFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	).CreateLock()
	if err != nil {
		log.Fatal("Failed to create posting lock", zap.Error(err))
	}
	defer func() {
		if err := lock.Close(); err != nil {
			log.Error("Error closing posting lock", zap.Error(err))
		}
	}()

	ledgerClient, err := ledger.NewClient(ledger.Config{
		BasePath:  cfg.Ledger.BasePath,
		Timeout:   cfg.Ledger.Timeout,
		UserAgent: cfg.App.Name,
	}, ledger.WithLogger(log))
	if err != nil {
		log.Fatal("Failed to create ledger client", zap.Error(err))
	}

	postingMetrics, err := telemetry.NewPostingMetrics(tel.meter.Meter("invoice.posting"))
	if err != nil {
		log.Fatal("Failed to create posting metrics", zap.Error(err))
	}

	taxPolicy := invoicing.NewTaxPolicy(decimal.NewFromFloat(cfg.Ledger.TaxRate), cfg.Ledger.TaxableCodes)
	auditRepo := persistence.NewGormAuditLogRepository(db.DB)

	postingService := appinvoicing.NewPostingService(appinvoicing.PostingServiceConfig{
		Ledger:    ledgerClient,
		AuditLog:  auditRepo,
		Lines:     lines,
		Lock:      lock,
		LockTTL:   cfg.Redis.LockTTL,
		TaxPolicy: &taxPolicy,
		Logger:    log,
		Metrics:   postingMetrics,
	})
	batchService := appinvoicing.NewBatchService(appinvoicing.BatchServiceConfig{
		Poster: postingService,
		Logger: log,
	})
	lookupService := appinvoicing.NewLookupService(appinvoicing.LookupServiceConfig{
		Ledger:    ledgerClient,
		Directory: ledgerClient,
		Lines:     lines,
		Audit:     auditRepo,
		MaxPages:  cfg.Ledger.MaxPages,
		Logger:    log,
	})

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	} else if err := engine.SetTrustedProxies(nil); err != nil {
		log.Fatal("Failed to disable trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: tel.meter,
		Enabled:       cfg.Telemetry.MetricsEnabled,
	}))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	base := handler.NewBaseHandler(cfg.App.CompanyID, cfg.App.CompanyName)
	router.Mount(engine, router.Handlers{
		Invoice: handler.NewInvoiceHandler(handler.InvoiceHandlerConfig{
			Base:             base,
			Posting:          postingService,
			Batch:            batchService,
			Lookup:           lookupService,
			DefaultOperation: invoicing.Operation(cfg.Ledger.DefaultOperation),
		}),
		Customer: handler.NewCustomerHandler(base, lookupService),
		Health:   health,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// registerDBTracing attaches otelgorm spans to a store when DB tracing is on
func registerDBTracing(cfg *config.Config, db *persistence.Database, system string, log *zap.Logger) {
	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        system,
	}, log)
	if err := plugin.Register(db.DB); err != nil {
		log.Warn("Failed to register database tracing", zap.String("db_system", system), zap.Error(err))
	}
}

func trackPool(m *telemetry.PoolMetrics, store string, db *persistence.Database, log *zap.Logger) {
	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Warn("Pool metrics unavailable", zap.String("store", store), zap.Error(err))
		return
	}
	m.Track(store, sqlDB)
}
