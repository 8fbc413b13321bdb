// Package main provides the main entry point for the Basin Climbing data pipeline
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/app/handlers"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/app/router"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/app/scheduler"
	businessflow "github.com/steelferguson/basin-climbing-data-pipeline-sub000/business_flow"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/config"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/repository"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Basin Climbing data pipeline...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDSN()), &gorm.Config{})
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

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity. A
// disabled cache returns nil and the run lock degrades to single-instance
// mode.
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established (db=%d)", cfg.RedisDB)
	return rc, nil
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(db)
	identifierRepo := repository.NewIdentifierRepository(db)
	eventRepo := repository.NewEventRepository(db)
	flagRepo := repository.NewFlagRepository(db)
	familyEdgeRepo := repository.NewFamilyEdgeRepository(db)
	experimentRepo := repository.NewExperimentEntryRepository(db)

	// Initialize rules and flows
	rules := []businessflow.FlagRule{
		businessflow.NewMembershipCanceledRule(),
		businessflow.NewMemberWinBackRule(cfg.Pipeline.WinBackInactivity),
		businessflow.NewDayPassFollowUpRule(cfg.Pipeline.DayPassLookback, cfg.Pipeline.WelcomeExperimentID),
	}
	isPersistent := businessflow.NewPersistentFlagClassifier(cfg.Pipeline.PersistentFlagTypes)

	pipelineLogger := scheduler.NewPipelineLogger(cfg.Logging)

	flaggingFlow := businessflow.NewFlaggingFlow(
		customerRepo,
		eventRepo,
		flagRepo,
		familyEdgeRepo,
		experimentRepo,
		rules,
		isPersistent,
		cfg.Pipeline.FlagTTL,
		db,
		pipelineLogger,
	)

	resolutionFlow := businessflow.NewIdentityResolutionFlow(
		customerRepo,
		identifierRepo,
		cfg.Pipeline.FuzzyMatchThreshold,
		db,
		pipelineLogger,
	)
	importFlow := businessflow.NewContactImportFlow(resolutionFlow)
	reportFlow := businessflow.NewFlagReportFlow(flagRepo, customerRepo)

	sched := scheduler.NewPipelineScheduler(flaggingFlow, importFlow, rc, cfg.Scheduler, pipelineLogger)

	if cfg.Scheduler.Enabled {
		stop := sched.Start(context.Background())
		stopFuncs = append(stopFuncs, stop)
	}

	// Initialize handlers and router
	pipelineHandler := handlers.NewPipelineHandler(importFlow, resolutionFlow, reportFlow, sched)
	fiberRouter := router.NewFiberRouter(pipelineHandler, cfg)

	return &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}, nil
}
