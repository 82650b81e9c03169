package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "github.com/lib/pq"

	"loandesk-backend/internal/cache"
	"loandesk-backend/internal/clock"
	"loandesk-backend/internal/config"
	"loandesk-backend/internal/jobs"
	"loandesk-backend/internal/logger"
	"loandesk-backend/internal/repository/postgres"
	"loandesk-backend/internal/scheduler"
	"loandesk-backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'send-approval-reminders', 'all-nightly')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Loandesk Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	// Initialize Redis for cache invalidation after released reservations
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Services
	clk := clock.System()
	calendarCache := cache.NewCalendarCache(rdb, time.Duration(cfg.Availability.CalendarTTLMinutes)*time.Minute)
	emailService := service.NewEmailService(cfg.Email.APIKey, cfg.Email.From, cfg.Email.FromName)
	matrix := service.NewApprovalMatrix(cfg.Approval, store.UserRepository)
	availabilityService := service.NewAvailabilityService(
		store.AssetRepository,
		store.ApplicationRepository,
		calendarCache,
		clk,
	)
	approvalService := service.NewApprovalService(
		store.ApplicationRepository,
		store.AssetRepository,
		store.NotificationRepository,
		matrix,
		emailService,
		calendarCache,
		clk,
		cfg.Approval.LinkBaseURL,
		cfg.Approval.TokenTTLDays,
	)
	applicationService := service.NewApplicationService(
		store.ApplicationRepository,
		store.AssetRepository,
		store.UserRepository,
		store.NotificationRepository,
		availabilityService,
		approvalService,
		emailService,
		clk,
	)

	jobServices := &jobs.Services{
		Email:        emailService,
		Availability: availabilityService,
		Application:  applicationService,
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(db, store, jobServices, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		runJobOnce(jobRunner, *runOnce)
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once and exits
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) {
	switch jobName {
	case "send-approval-reminders":
		jobRunner.SendApprovalReminders()
	case "send-return-reminders":
		jobRunner.SendReturnReminders()
	case "release-stale-reservations":
		jobRunner.ReleaseStaleReservations()
	case "all-nightly":
		jobRunner.RunAllNightlyJobs()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - send-approval-reminders\n")
		fmt.Printf("  - send-return-reminders\n")
		fmt.Printf("  - release-stale-reservations\n")
		fmt.Printf("  - all-nightly\n")
		os.Exit(1)
	}
}
