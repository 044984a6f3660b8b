// Package main provides the main entry point for the EstateDesk property management API
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/estatedesk/app/handlers"
	"github.com/amirphl/estatedesk/app/middleware"
	"github.com/amirphl/estatedesk/app/router"
	"github.com/amirphl/estatedesk/app/services"
	businessflow "github.com/amirphl/estatedesk/business_flow"
	"github.com/amirphl/estatedesk/config"
	"github.com/amirphl/estatedesk/repository"
	"github.com/amirphl/estatedesk/sequence"
	"github.com/amirphl/estatedesk/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	metrics   *http.Server
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	closeLog := initializeLogging(cfg.Logging)
	defer closeLog()

	log.Printf("Starting EstateDesk %s (%s, commit %s)...", cfg.Deployment.Version, cfg.Deployment.Environment, cfg.Deployment.CommitHash)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.router.Start(cfg.Server.Address())
	}()

	if app.metrics != nil {
		go func() {
			log.Printf("Metrics listening on %s%s", app.metrics.Addr, cfg.Metrics.Path)
			if err := app.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("Metrics server stopped: %v", err)
			}
		}()
	}

	select {
	case <-sigChan:
		log.Println("Shutting down gracefully...")
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server stopped unexpectedly: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	if app.metrics != nil {
		if err := app.metrics.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error stopping metrics server: %v", err)
		}
	}

	for _, fn := range app.stopFuncs {
		fn()
	}

	log.Println("Server stopped")
}

// initializeLogging routes the standard logger to stdout, a rotating file, or both
func initializeLogging(cfg config.LoggingConfig) func() {
	log.SetFlags(log.LstdFlags | log.LUTC | log.Lmicroseconds)

	if cfg.Output == "stdout" {
		log.SetOutput(os.Stdout)
		return func() {}
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	var out io.Writer = rotator
	if cfg.Output == "both" {
		out = io.MultiWriter(os.Stdout, rotator)
	}
	log.SetOutput(out)

	return func() {
		if err := rotator.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormLogger := logger.Default.LogMode(logger.Warn)
	if cfg.SlowQueryLog {
		gormLogger = logger.New(log.Default(), logger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:  gormLogger,
		NowFunc: utils.UTCNow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	if cfg.AutoMigrate {
		if err := repository.AutoMigrate(db); err != nil {
			return nil, err
		}
		log.Println("Database schema migrated")
	}

	return db, nil
}

// initializeCache initializes the redis client and verifies connectivity. A nil client means caching is disabled.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		log.Println("Redis disabled, Idempotency-Key headers will be ignored")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB
	if cfg.RedisPassword != "" {
		opt.Password = cfg.RedisPassword
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}
	opt.DialTimeout = dialTimeout

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor periodically pings redis so connectivity loss shows up in the logs.
// The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeNotificationService picks the email provider from configuration
func initializeNotificationService(cfg config.EmailConfig) services.NotificationService {
	var emailProvider services.EmailProvider
	switch cfg.Provider {
	case "smtp":
		emailProvider = services.NewSMTPEmailProvider(cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.FromEmail)
	default:
		emailProvider = services.NewMockEmailProvider()
	}
	return services.NewNotificationService(emailProvider)
}

// allocatorConfig converts the sequence settings into allocator tuning
func allocatorConfig(cfg config.SequenceConfig) (sequence.Config, error) {
	loc, err := utils.LoadLocation(cfg.TimeZone)
	if err != nil {
		return sequence.Config{}, fmt.Errorf("invalid sequence time zone %q: %w", cfg.TimeZone, err)
	}
	seqCfg := sequence.DefaultConfig()
	seqCfg.TxTimeout = cfg.TxTimeout
	seqCfg.MaxAttempts = cfg.MaxAttempts
	seqCfg.BackoffBase = cfg.BackoffBase
	seqCfg.BackoffMax = cfg.BackoffMax
	seqCfg.Location = loc
	return seqCfg, nil
}

func initializeMetricsServer(cfg config.MetricsConfig) *http.Server {
	if !cfg.Enabled {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// initializeApplication wires repositories, flows, handlers and the router
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopMonitor := startCacheHealthMonitor(context.Background(), rc, 30*time.Second)
		stopFuncs = append(stopFuncs, stopMonitor, func() { _ = rc.Close() })
	}

	// Repositories
	transactor := repository.NewTransactor(db)
	counterRepo := repository.NewSequenceCounterRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	landlordRepo := repository.NewLandlordRepository(db)
	tenantRepo := repository.NewTenantRepository(db)
	agentRepo := repository.NewAgentRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)
	accountRepo := repository.NewAccountRepository(db)
	incomeRepo := repository.NewIncomeRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	emailLogRepo := repository.NewEmailLogRepository(db)

	if err := businessflow.BootstrapAdmin(context.Background(), adminRepo, cfg.Admin.Username, cfg.Admin.PasswordHash); err != nil {
		return nil, err
	}

	// Services
	seqCfg, err := allocatorConfig(cfg.Sequence)
	if err != nil {
		return nil, err
	}
	allocator := sequence.NewAllocator(counterRepo, transactor, seqCfg)
	log.Printf("Sequence allocator configured: tx timeout %s, %d attempts, zone %s",
		seqCfg.TxTimeout, seqCfg.MaxAttempts, seqCfg.Location)

	idempotency := services.NewIdempotencyStore(rc, cfg.Idempotency.TTL)
	notificationService := initializeNotificationService(cfg.Email)

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	// Flows
	emailFlow := businessflow.NewEmailFlow(notificationService, emailLogRepo)
	landlordFlow := businessflow.NewLandlordFlow(landlordRepo, allocator, idempotency, emailFlow)
	tenantFlow := businessflow.NewTenantFlow(tenantRepo, propertyRepo, transactor, allocator, idempotency, emailFlow)
	agentFlow := businessflow.NewAgentFlow(agentRepo, allocator, idempotency)
	propertyFlow := businessflow.NewPropertyFlow(propertyRepo, landlordRepo, agentRepo, transactor, allocator, idempotency)
	bookkeepingFlow := businessflow.NewBookkeepingFlow(
		accountRepo,
		incomeRepo,
		expenseRepo,
		landlordRepo,
		propertyRepo,
		tenantRepo,
		allocator,
		idempotency,
	)
	sequenceAdminFlow := businessflow.NewSequenceAdminFlow(counterRepo, allocator)
	adminAuthFlow := businessflow.NewAdminAuthFlow(adminRepo, tokenService)

	// HTTP
	h := router.Handlers{
		Admin:       handlers.NewAdminHandler(adminAuthFlow),
		Landlord:    handlers.NewLandlordHandler(landlordFlow),
		Tenant:      handlers.NewTenantHandler(tenantFlow),
		Agent:       handlers.NewAgentHandler(agentFlow),
		Property:    handlers.NewPropertyHandler(propertyFlow),
		Bookkeeping: handlers.NewBookkeepingHandler(bookkeepingFlow),
		Sequence:    handlers.NewSequenceAdminHandler(sequenceAdminFlow),
		EmailLog:    handlers.NewEmailLogHandler(emailFlow),
	}

	checks := map[string]router.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rc != nil {
		checks["redis"] = func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		}
	}

	appRouter := router.NewFiberRouter(cfg, h, middleware.NewAuthMiddleware(tokenService), checks)

	return &Application{
		router:    appRouter,
		config:    cfg,
		metrics:   initializeMetricsServer(cfg.Metrics),
		stopFuncs: stopFuncs,
	}, nil
}
