package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/buildops/backoffice/docs"
	appcosting "github.com/buildops/backoffice/internal/application/costing"
	appdocument "github.com/buildops/backoffice/internal/application/document"
	appproject "github.com/buildops/backoffice/internal/application/project"
	"github.com/buildops/backoffice/internal/infrastructure/cache"
	"github.com/buildops/backoffice/internal/infrastructure/config"
	"github.com/buildops/backoffice/internal/infrastructure/event"
	"github.com/buildops/backoffice/internal/infrastructure/logger"
	"github.com/buildops/backoffice/internal/infrastructure/migration"
	"github.com/buildops/backoffice/internal/infrastructure/notification"
	"github.com/buildops/backoffice/internal/infrastructure/persistence"
	"github.com/buildops/backoffice/internal/infrastructure/printing"
	"github.com/buildops/backoffice/internal/infrastructure/storage"
	"github.com/buildops/backoffice/internal/infrastructure/telemetry"
	"github.com/buildops/backoffice/internal/interfaces/http/handler"
	"github.com/buildops/backoffice/internal/interfaces/http/middleware"
	"github.com/buildops/backoffice/internal/interfaces/http/router"
	"github.com/buildops/backoffice/migrations"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

//	@title			Backoffice API
//	@version		1.0
//	@description	Project lifecycle and financial reconciliation for a construction back office

//	@host		localhost:8080
//	@BasePath	/api/v1

func main() {
	migrate := flag.Bool("migrate", false, "apply pending schema migrations before serving")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting backoffice",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx := context.Background()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, persistence.DatabaseOptions{
		Logger:        log,
		LogLevel:      logger.ParseGormLevel(cfg.Log.GormLevel),
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		Tracing: telemetry.DBTracingConfig{
			Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBName:          cfg.Database.DBName,
		},
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	if *migrate {
		if err := applyMigrations(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	// Dispatch claims and event dedup share one idempotency store
	idempotency, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotency.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	workflowMetrics, err := telemetry.NewWorkflowMetrics(meterProvider.Meter(telemetry.WorkflowMeterName), log)
	if err != nil {
		log.Fatal("Failed to create workflow metrics", zap.Error(err))
	}
	eventBus.Subscribe(event.NewDedupHandler(workflowMetrics, idempotency, 0, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Document rendering pipeline
	artifactStore, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize artifact storage", zap.Error(err))
	}
	templates, err := printing.NewTemplateEngine()
	if err != nil {
		log.Fatal("Failed to parse document templates", zap.Error(err))
	}
	pdfRenderer, err := printing.NewChromedpRenderer(&printing.ChromedpConfig{
		DefaultTimeout: cfg.Documents.RenderTimeout,
		RemoteURL:      cfg.Documents.ChromeRemoteURL,
		NoSandbox:      os.Geteuid() == 0,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to start PDF renderer", zap.Error(err))
	}
	defer func() {
		if err := pdfRenderer.Close(); err != nil {
			log.Error("Error closing PDF renderer", zap.Error(err))
		}
	}()
	documentRenderer := printing.NewDocumentRenderer(templates, pdfRenderer, artifactStore, cfg.Documents.StoragePrefix, log)

	notifier, err := notification.New(cfg.Mail, log)
	if err != nil {
		log.Fatal("Failed to initialize mail notifier", zap.Error(err))
	}

	// Application services
	stageWorkflowService := appproject.NewStageWorkflowService(
		persistence.NewProjectTransactionScope(db.DB),
		persistence.NewGormProjectRepository(db.DB),
		eventBus,
		appproject.WorkflowConfig{AllowOutOfOrderStart: cfg.Workflow.AllowOutOfOrderStart},
		log,
	)
	reconciliationService := appcosting.NewReconciliationService(
		persistence.NewCostingTransactionScope(db.DB),
		eventBus,
		log,
	)
	generationService := appdocument.NewGenerationService(
		persistence.NewDocumentTransactionScope(db.DB),
		documentRenderer,
		notifier,
		idempotency,
		eventBus,
		appdocument.GenerationConfig{DispatchClaimTTL: cfg.Documents.DispatchClaimTTL},
		log,
	)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Invalid trusted proxies", zap.Error(err))
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	httpMetrics, err := middleware.HTTPMetrics(meterProvider.Meter(middleware.HTTPMeterName))
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName)...)
	engine.Use(httpMetrics)
	engine.Use(middleware.CORS(corsConfig))
	engine.Use(middleware.SecureHeaders())
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	checks := map[string]handler.HealthCheck{
		"database": handler.HealthCheckFunc(db.Ping),
	}
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	router.RegisterAPI(r, router.Handlers{
		Project:  handler.NewProjectHandler(stageWorkflowService),
		Costing:  handler.NewCostingHandler(reconciliationService),
		Document: handler.NewDocumentHandler(generationService),
		System:   handler.NewSystemHandler(cfg.App.Name, version, checks),
	}).Setup()

	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
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
		log.Info("HTTP server listening", zap.String("addr", srv.Addr), zap.String("api", r.Prefix()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

func applyMigrations(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migration.Source{Embedded: migrations.FS}, log)
	if err != nil {
		return err
	}
	// Closing the migrator would close sqlDB too, which the server still uses.
	return m.Up()
}
