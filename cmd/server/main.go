package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditapp "github.com/waterworks/backend/internal/application/audit"
	billingapp "github.com/waterworks/backend/internal/application/billing"
	customerapp "github.com/waterworks/backend/internal/application/customer"
	eventapp "github.com/waterworks/backend/internal/application/event"
	importapp "github.com/waterworks/backend/internal/application/import"
	meteringapp "github.com/waterworks/backend/internal/application/metering"
	"github.com/waterworks/backend/internal/domain/shared"
	"github.com/waterworks/backend/internal/infrastructure/auth"
	"github.com/waterworks/backend/internal/infrastructure/cache"
	"github.com/waterworks/backend/internal/infrastructure/config"
	"github.com/waterworks/backend/internal/infrastructure/event"
	"github.com/waterworks/backend/internal/infrastructure/logger"
	"github.com/waterworks/backend/internal/infrastructure/notify"
	"github.com/waterworks/backend/internal/infrastructure/persistence"
	"github.com/waterworks/backend/internal/infrastructure/scheduler"
	"github.com/waterworks/backend/internal/infrastructure/storage"
	"github.com/waterworks/backend/internal/infrastructure/telemetry"
	"github.com/waterworks/backend/internal/interfaces/http/handler"
	"github.com/waterworks/backend/internal/interfaces/http/middleware"
	"github.com/waterworks/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
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

	log.Info("Starting Waterworks Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// appCtx is cancelled on shutdown and stops background collectors
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// Initialize OpenTelemetry tracing and metrics (if enabled)
	var tracerProvider *telemetry.TracerProvider
	var meterProvider *telemetry.MeterProvider
	if cfg.Telemetry.Enabled {
		tracerProvider, err = telemetry.NewTracerProvider(appCtx, telemetry.Config{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			SamplingRatio:     cfg.Telemetry.SamplingRatio,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize tracer provider", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()

		meterProvider, err = telemetry.NewMeterProvider(appCtx, telemetry.MetricsConfig{
			Enabled:           cfg.Telemetry.Enabled,
			CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
			ServiceName:       cfg.Telemetry.ServiceName,
			Insecure:          cfg.Telemetry.Insecure,
		}, log)
		if err != nil {
			log.Fatal("Failed to initialize meter provider", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := meterProvider.Shutdown(shutdownCtx); err != nil {
				log.Error("Error shutting down meter provider", zap.Error(err))
			}
		}()
		log.Info("OpenTelemetry initialized",
			zap.String("collector", cfg.Telemetry.CollectorEndpoint),
			zap.Float64("sampling_ratio", cfg.Telemetry.SamplingRatio),
		)
	}

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Register query tracing on the GORM connection (if enabled)
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:          true,
			LogFullSQL:       cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh:  cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:         "postgresql",
			WithoutVariables: !cfg.Telemetry.DBLogFullSQL,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}

	// Query and connection-pool metrics ride on the same GORM connection
	if cfg.Telemetry.Enabled {
		dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DBMetricsConfig{
			Enabled:            true,
			SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err != nil {
			log.Fatal("Failed to register database metrics", zap.Error(err))
		}
		if dbMetrics != nil {
			dbMetrics.StartPoolStatsCollection(appCtx)
			defer dbMetrics.Stop()
		}
	}

	// Initialize repositories
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	meterRepo := persistence.NewGormMeterRepository(db.DB)
	routeRepo := persistence.NewGormRouteRepository(db.DB)
	readingRepo := persistence.NewGormReadingRepository(db.DB)
	tariffRepo := persistence.NewGormTariffRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	changeLogRepo := persistence.NewGormChangeLogRepository(db.DB)
	dashboardRepo := persistence.NewGormDashboardRepository(db.DB)
	attachmentRepo := persistence.NewGormReadingAttachmentRepository(db.DB)

	// Notification channel: Redis Pub/Sub when available, the log otherwise.
	// Services treat a nil notifier as a no-op.
	var notifier shared.Notifier
	if cfg.Notify.Enabled {
		if cfg.Redis.Enabled {
			notifierOpts := []notify.RedisNotifierOption{notify.WithLogger(log)}
			if cfg.Notify.ChannelPrefix != "" {
				notifierOpts = append(notifierOpts, notify.WithChannelPrefix(cfg.Notify.ChannelPrefix))
			}
			redisNotifier, err := notify.NewRedisNotifier(notify.RedisConfig{
				Host:     cfg.Redis.Host,
				Port:     cfg.Redis.Port,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			}, notifierOpts...)
			if err != nil {
				log.Fatal("Failed to connect notification channel", zap.Error(err))
			}
			defer func() {
				if err := redisNotifier.Close(); err != nil {
					log.Error("Error closing notifier", zap.Error(err))
				}
			}()
			notifier = redisNotifier
			log.Info("Redis notifier connected",
				zap.String("host", cfg.Redis.Host),
				zap.Int("port", cfg.Redis.Port),
			)
		} else {
			notifier = notify.NewLogNotifier(log)
			log.Info("Redis disabled, notifications go to the log")
		}
	}

	// Object storage for reading photos: S3-compatible backend when
	// configured, a stub serving fake URLs for local development otherwise.
	var objectStorage meteringapp.ObjectStorageService
	if cfg.Storage.Enabled {
		s3Storage, err := storage.NewS3ObjectStorage(cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		bootstrapCtx, cancel := context.WithTimeout(appCtx, 10*time.Second)
		if err := s3Storage.EnsureBucket(bootstrapCtx); err != nil {
			cancel()
			log.Fatal("Failed to ensure storage bucket", zap.Error(err))
		}
		cancel()
		objectStorage = s3Storage
		log.Info("Object storage connected",
			zap.String("endpoint", cfg.Storage.Endpoint),
			zap.String("bucket", s3Storage.Bucket()),
		)
	} else {
		objectStorage = storage.NewStubObjectStorage()
		log.Info("Object storage disabled, using stub backend")
	}

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(appCtx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Business metrics ride on domain events and a periodic collector
	if meterProvider != nil && meterProvider.IsEnabled() {
		businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
			Meter:           meterProvider.Meter("waterworks.business"),
			Logger:          log,
			BillingProvider: telemetry.NewGormBillingMetricsProvider(db.DB),
		})
		if err != nil {
			log.Fatal("Failed to initialize business metrics", zap.Error(err))
		}
		eventBus.Subscribe(eventapp.NewBusinessMetricsHandler(businessMetrics, log))
		businessMetrics.StartPeriodicCollection(appCtx, 5*time.Minute)
		log.Info("Business metrics collection started")
	}

	// Initialize application services
	tariffService := billingapp.NewTariffService(tariffRepo)
	routeService := meteringapp.NewRouteService(routeRepo)
	meterService := meteringapp.NewMeterService(meterRepo, routeRepo, changeLogRepo, log)
	customerService := customerapp.NewCustomerService(customerRepo, meterRepo, tariffRepo, changeLogRepo, log)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, tariffRepo, customerRepo, meterRepo, readingRepo, changeLogRepo, notifier, log)
	invoiceService.SetBackfillPageSize(cfg.Billing.BackfillPageSize)
	readingService := meteringapp.NewReadingService(readingRepo, meterRepo, routeRepo, customerRepo, invoiceService, notifier, log)
	paymentService := billingapp.NewPaymentService(paymentRepo, invoiceRepo, notifier, log)
	attachmentService := meteringapp.NewAttachmentService(attachmentRepo, readingRepo, objectStorage, log)
	changeLogService := auditapp.NewChangeLogService(changeLogRepo)

	// Dashboard summaries are cached in process; a zero TTL disables the cache
	var dashboardService *billingapp.DashboardService
	if cfg.Billing.DashboardCacheTTL > 0 {
		summaryCache := cache.NewDashboardSummaryCache(
			cache.WithLogger(log),
			cache.WithDefaultTTL(cfg.Billing.DashboardCacheTTL),
		)
		defer summaryCache.Close()
		dashboardService = billingapp.NewDashboardService(dashboardRepo, summaryCache, log)
		dashboardService.SetCacheTTL(cfg.Billing.DashboardCacheTTL)
	} else {
		dashboardService = billingapp.NewDashboardService(dashboardRepo, nil, log)
	}

	// CSV import services
	readingImportService := importapp.NewReadingImportService(readingRepo, meterRepo, notifier, log)
	customerImportService := importapp.NewCustomerImportService(customerRepo, log)
	meterImportService := importapp.NewMeterImportService(meterRepo, customerRepo, log)

	// Inject event bus into services that publish domain events
	customerService.SetEventPublisher(eventBus)
	meterService.SetEventPublisher(eventBus)
	readingService.SetEventPublisher(eventBus)
	tariffService.SetEventPublisher(eventBus)
	invoiceService.SetEventPublisher(eventBus)
	paymentService.SetEventPublisher(eventBus)
	readingImportService.SetEventPublisher(eventBus)
	customerImportService.SetEventPublisher(eventBus)
	meterImportService.SetEventPublisher(eventBus)

	// JWT service for operator tokens; revoked token IDs live in Redis
	jwtService := auth.NewJWTService(cfg.JWT)
	var tokenBlacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect token blacklist", zap.Error(err))
		}
		defer func() {
			if err := redisBlacklist.Close(); err != nil {
				log.Error("Error closing token blacklist", zap.Error(err))
			}
		}()
		tokenBlacklist = redisBlacklist
	}

	// Initialize backfill scheduler (if enabled)
	var backfillScheduler *scheduler.BackfillScheduler
	if cfg.Scheduler.Enabled {
		backfillScheduler = scheduler.NewBackfillScheduler(scheduler.BackfillSchedulerConfig{
			Enabled:    cfg.Scheduler.Enabled,
			RunDay:     cfg.Scheduler.BackfillDay,
			RunHour:    cfg.Scheduler.BackfillHour,
			RunMinute:  cfg.Scheduler.BackfillMinute,
			JobTimeout: cfg.Scheduler.JobTimeout,
		}, invoiceService, scheduler.NewBackfillRunRepository(db.DB), log)
		if err := backfillScheduler.Start(appCtx); err != nil {
			log.Fatal("Failed to start backfill scheduler", zap.Error(err))
		}
		defer func() {
			if err := backfillScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping backfill scheduler", zap.Error(err))
			}
		}()
	}

	// Initialize HTTP handlers
	customerHandler := handler.NewCustomerHandler(customerService)
	meterHandler := handler.NewMeterHandler(meterService)
	routeHandler := handler.NewRouteHandler(routeService)
	tariffHandler := handler.NewTariffHandler(tariffService)
	readingHandler := handler.NewReadingHandler(readingService)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	attachmentHandler := handler.NewAttachmentHandler(attachmentService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	changeLogHandler := handler.NewChangeLogHandler(changeLogService)
	importHandler := handler.NewImportHandler(readingImportService, customerImportService, meterImportService)
	defer importHandler.Stop()
	var schedulerControl handler.BackfillSchedulerControl
	if backfillScheduler != nil {
		schedulerControl = backfillScheduler
	}
	systemHandler := handler.NewSystemHandler(schedulerControl)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Tracing/Metrics - OpenTelemetry instrumentation (if enabled)
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
		if meterProvider != nil {
			engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
				MeterProvider: meterProvider,
				ServiceName:   cfg.Telemetry.ServiceName,
				Enabled:       true,
			}))
		}
	}
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Machine clients (reading upload tools, payment imports) authenticate
	// with API keys; everything else carries an operator JWT
	r.Use(middleware.APIKeyAuthMiddleware(middleware.APIKeyMiddlewareConfig{
		Keys:   cfg.Auth.APIKeys,
		Logger: log,
	}))
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService:     jwtService,
		TokenBlacklist: tokenBlacklist,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// Customer domain
	customerRoutes := router.NewDomainGroup("customer", "/customers")
	customerRoutes.POST("", customerHandler.Create)
	customerRoutes.GET("", customerHandler.List)
	customerRoutes.GET("/code/:code", customerHandler.GetByCode)
	customerRoutes.GET("/:id", customerHandler.GetByID)
	customerRoutes.PUT("/:id", customerHandler.Update)
	customerRoutes.POST("/:id/activate", customerHandler.Activate)
	customerRoutes.POST("/:id/deactivate", customerHandler.Deactivate)
	customerRoutes.GET("/:id/meters", meterHandler.ListByCustomer)
	customerRoutes.GET("/:id/invoices", invoiceHandler.ListByCustomer)

	// Metering domain (meters, routes, readings)
	meterRoutes := router.NewDomainGroup("meter", "/meters")
	meterRoutes.POST("", meterHandler.Register)
	meterRoutes.GET("", meterHandler.List)
	meterRoutes.GET("/unassigned", meterHandler.ListUnassigned)
	meterRoutes.GET("/serial/:serial", meterHandler.GetBySerial)
	meterRoutes.GET("/:id", meterHandler.GetByID)
	meterRoutes.PUT("/:id", meterHandler.Update)
	meterRoutes.GET("/:id/readings", readingHandler.ListByMeter)

	routeRoutes := router.NewDomainGroup("route", "/routes")
	routeRoutes.POST("", routeHandler.Create)
	routeRoutes.GET("", routeHandler.List)
	routeRoutes.GET("/:id", routeHandler.GetByID)
	routeRoutes.PUT("/:id", routeHandler.Update)
	routeRoutes.POST("/:id/activate", routeHandler.Activate)
	routeRoutes.POST("/:id/deactivate", routeHandler.Deactivate)

	readingRoutes := router.NewDomainGroup("reading", "/readings")
	readingRoutes.POST("", readingHandler.Register)
	readingRoutes.GET("", readingHandler.List)
	readingRoutes.GET("/:id", readingHandler.GetByID)
	// Reading photo attachments (presigned upload flow)
	readingRoutes.POST("/:id/attachments", attachmentHandler.InitiateUpload)
	readingRoutes.POST("/:id/attachments/:attachmentId/confirm", attachmentHandler.ConfirmUpload)
	readingRoutes.GET("/:id/attachments", attachmentHandler.ListByReading)
	readingRoutes.DELETE("/:id/attachments/:attachmentId", attachmentHandler.Delete)

	// Billing domain (tariffs, invoices, payments)
	tariffRoutes := router.NewDomainGroup("tariff", "/tariffs")
	tariffRoutes.POST("", tariffHandler.Create)
	tariffRoutes.GET("", tariffHandler.List)
	tariffRoutes.GET("/:id", tariffHandler.GetByID)
	tariffRoutes.PUT("/:id", tariffHandler.Update)
	tariffRoutes.POST("/:id/ranges", tariffHandler.RegisterRanges)
	tariffRoutes.PUT("/:id/ranges", tariffHandler.ModifyRanges)

	invoiceRoutes := router.NewDomainGroup("invoice", "/invoices")
	invoiceRoutes.POST("", invoiceHandler.Generate)
	invoiceRoutes.POST("/backfill", invoiceHandler.Backfill)
	invoiceRoutes.GET("", invoiceHandler.List)
	invoiceRoutes.GET("/:id", invoiceHandler.GetByID)
	invoiceRoutes.PUT("/:id", invoiceHandler.Correct)
	invoiceRoutes.GET("/:id/payments", paymentHandler.ListByInvoice)
	invoiceRoutes.POST("/:id/payments", paymentHandler.Apply)

	// Dashboard
	dashboardRoutes := router.NewDomainGroup("dashboard", "/dashboard")
	dashboardRoutes.GET("/summary", dashboardHandler.Summary)

	// Audit changelog
	changeLogRoutes := router.NewDomainGroup("changelog", "/changelog")
	changeLogRoutes.GET("", changeLogHandler.List)

	// CSV imports (validate, import, session status)
	importRoutes := router.NewDomainGroup("import", "/import")
	importRoutes.POST("/readings/validate", importHandler.ValidateReadings)
	importRoutes.POST("/readings", importHandler.ImportReadings)
	importRoutes.POST("/customers/validate", importHandler.ValidateCustomers)
	importRoutes.POST("/customers", importHandler.ImportCustomers)
	importRoutes.POST("/meters/validate", importHandler.ValidateMeters)
	importRoutes.POST("/meters", importHandler.ImportMeters)
	importRoutes.GET("/sessions/:id", importHandler.GetSession)

	// System routes (info, ping, backfill scheduler operations)
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	systemRoutes.POST("/backfill-scheduler/trigger", systemHandler.TriggerBackfill)
	systemRoutes.GET("/backfill-scheduler/status", systemHandler.GetBackfillStatus)

	// Register all domain groups
	r.Register(customerRoutes).
		Register(meterRoutes).
		Register(routeRoutes).
		Register(readingRoutes).
		Register(tariffRoutes).
		Register(invoiceRoutes).
		Register(dashboardRoutes).
		Register(changeLogRoutes).
		Register(importRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
