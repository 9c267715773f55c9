package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/mason/internal/domain/project"
	"github.com/erp/mason/internal/infrastructure/auth"
	"github.com/erp/mason/internal/infrastructure/cache"
	"github.com/erp/mason/internal/infrastructure/config"
	"github.com/erp/mason/internal/infrastructure/logger"
	"github.com/erp/mason/internal/infrastructure/migration"
	"github.com/erp/mason/internal/infrastructure/persistence"
	"github.com/erp/mason/internal/infrastructure/telemetry"
	"github.com/erp/mason/internal/interfaces/http/dto"
	"github.com/erp/mason/internal/interfaces/http/handler"
	"github.com/erp/mason/internal/interfaces/http/middleware"
	"github.com/erp/mason/internal/interfaces/http/router"
	"github.com/erp/mason/migrations"
	"github.com/erp/mason/pkg/openapi"
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
		TimeFormat: logger.DefaultTimeFormat,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting mason",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("database", cfg.Database.Driver),
	)

	// Root context, cancelled on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.ConfigFrom(cfg.Telemetry, cfg.App.Version), log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.App.Version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	// Database with zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.DBLevel),
		logger.WithSlowThreshold(cfg.Log.SlowSQL))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.AutoMigrate {
		if err := migrateSchema(db, log); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	dbCfg := telemetry.DefaultDBTracingConfig()
	dbCfg.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbCfg.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	dbCfg.SlowQueryThresh = cfg.Log.SlowSQL
	dbCfg.DBSystem = cfg.Database.Driver
	dbMeter := meterProvider.Meter("mason.db")
	if !meterProvider.IsEnabled() {
		dbMeter = nil
	}
	dbPlugin, err := telemetry.NewDBTracingPlugin(dbCfg, dbMeter, log)
	if err != nil {
		log.Fatal("Failed to create database instrumentation", zap.Error(err))
	}
	if err := dbPlugin.Register(db.DB); err != nil {
		log.Fatal("Failed to register database instrumentation", zap.Error(err))
	}
	if dbMeter != nil {
		if err := telemetry.RegisterPoolMetrics(dbMeter, db.DB); err != nil {
			log.Warn("Failed to register pool metrics", zap.Error(err))
		}
	}

	// Token revocation and the stats cache: redis when configured, in-process otherwise
	var (
		blacklist  auth.TokenBlacklist
		cacheStore cache.Store
	)
	if cfg.Redis.Enabled {
		redisClient, err := auth.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
		cacheStore = cache.NewRedisStore(redisClient, "")
		log.Info("Token blacklist and cache backed by redis", zap.String("addr", cfg.Redis.Addr()))
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
		memStore := cache.NewInMemoryStore()
		defer func() {
			_ = memStore.Close()
		}()
		cacheStore = memStore
		log.Warn("Redis disabled, token revocation and cache are local to this process")
	}
	jwtService := auth.NewJWTService(cfg.JWT)

	// Handlers and viewsets
	deps := handler.Deps{
		DB: db.DB,
		Projects: cache.NewCachedProjectStore(persistence.NewGormProjectRepository(db.DB),
			cacheStore, cfg.Redis.StatsTTL, log),
		Pagination: cfg.Pagination,
		Logger:     log,
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.App.Version, cfg.App.Env, db, log)
	authHandler := handler.NewAuthHandler(jwtService, blacklist, log, !cfg.IsProduction())

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. Recovery - Catch panics
	// 2. RequestID - Generate/propagate request ID
	// 3. Logger - Log requests
	// 4. Tracing and metrics
	// 5. Security - Add security headers
	// 6. CORS - Handle cross-origin requests
	// 7. BodyLimit - Limit request body size
	// 8. JWT - Install the token's claims as the request user
	// 9. RateLimit - Per user, falling back to client IP (if enabled)
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		SkipPaths:   []string{"/health", router.OpenAPIPath},
	})...)
	engine.Use(middleware.HTTPMetrics(meterProvider, log))
	engine.Use(middleware.SecureWithConfig(securityConfig(cfg)))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.JWTAuth(middleware.JWTConfig{
		Validator: jwtService,
		Blacklist: blacklist,
		Logger:    log,
	}))
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(ctx, cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimitByUser(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", systemHandler.Health)

	base := &handler.BaseHandler{}
	engine.NoRoute(func(c *gin.Context) {
		base.Error(c, dto.ErrCodeNotFound, "Route not found")
	})
	engine.NoMethod(func(c *gin.Context) {
		base.Error(c, dto.ErrCodeMethodNotAllowed, "Method not allowed")
	})

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithDocs(openapi.Info{
			Title:       cfg.Swagger.Title,
			Description: cfg.Swagger.Description,
			Version:     cfg.App.Version,
		}, middleware.DocsConfig{
			Enabled:    cfg.Swagger.Enabled,
			AllowedIPs: cfg.Swagger.AllowedIPs,
		}),
	)
	r.Register(
		systemHandler,
		authHandler,
		handler.NewCompanyViewSet(deps),
		handler.NewProjectViewSet(deps),
		handler.NewProjectFeedViewSet(deps),
	)
	routes := r.Setup()
	log.Info("Routes registered", zap.Int("count", len(routes)), zap.Bool("docs", cfg.Swagger.Enabled))

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
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Meter provider shutdown failed", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Tracer provider shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// migrateSchema applies the embedded SQL migrations on postgres. sqlite has
// no migrate driver here, so the schema is created from the models instead.
func migrateSchema(db *persistence.Database, log *zap.Logger) error {
	if db.Driver == "sqlite" {
		log.Info("Creating sqlite schema from models")
		return db.AutoMigrate(&project.Company{}, &project.Project{})
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migrations.FS, log)
	if err != nil {
		return err
	}
	return m.Up()
}

func securityConfig(cfg *config.Config) middleware.SecurityConfig {
	sec := middleware.DefaultSecurityConfig()
	if !cfg.IsProduction() {
		sec.HSTSEnabled = false
	}
	if cfg.Swagger.Enabled {
		// swagger-ui loads inline scripts and styles
		sec.CSPDirective = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:"
	}
	return sec
}
