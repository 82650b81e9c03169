package main

import (
	"database/sql"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "loandesk-backend/internal/api/http"
	"loandesk-backend/internal/cache"
	"loandesk-backend/internal/clock"
	"loandesk-backend/internal/config"
	"loandesk-backend/internal/logger"
	"loandesk-backend/internal/repository/postgres"
	"loandesk-backend/internal/security"
	"loandesk-backend/internal/service"

	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Loandesk Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Redis for the availability calendar cache
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Initialize Services
	clk := clock.System()
	calendarCache := cache.NewCalendarCache(rdb, time.Duration(cfg.Availability.CalendarTTLMinutes)*time.Minute)
	emailSvc := service.NewEmailService(cfg.Email.APIKey, cfg.Email.From, cfg.Email.FromName)
	matrix := service.NewApprovalMatrix(cfg.Approval, store.UserRepository)
	availabilitySvc := service.NewAvailabilityService(
		store.AssetRepository,
		store.ApplicationRepository,
		calendarCache,
		clk,
	)
	approvalSvc := service.NewApprovalService(
		store.ApplicationRepository,
		store.AssetRepository,
		store.NotificationRepository,
		matrix,
		emailSvc,
		calendarCache,
		clk,
		cfg.Approval.LinkBaseURL,
		cfg.Approval.TokenTTLDays,
	)
	applicationSvc := service.NewApplicationService(
		store.ApplicationRepository,
		store.AssetRepository,
		store.UserRepository,
		store.NotificationRepository,
		availabilitySvc,
		approvalSvc,
		emailSvc,
		clk,
	)
	claimSvc := service.NewClaimService(
		store.SubmissionRepository,
		store.ActivityRepository,
		emailSvc,
	)
	noteSvc := service.NewNotificationService(store.NotificationRepository)
	authSvc := service.NewAuthService(store.UserRepository, tokenManager)

	// Initialize HTTP handlers and routes
	handler := httpapi.NewHandler(
		applicationSvc,
		approvalSvc,
		availabilitySvc,
		claimSvc,
		noteSvc,
		authSvc,
		store.UserRepository,
	)
	router := httpapi.NewRouter(handler, tokenManager)

	logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
	if err := http.ListenAndServe(cfg.GetServerAddress(), router); err != nil {
		logger.Error("HTTP server error", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
}
