package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gpms-backend/internal/app"
	"gpms-backend/internal/config"
	"gpms-backend/internal/jobs"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/scheduler"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-stale-invitations', 'all')")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting GPMS sweep runner...", "log_level", cfg.Log.Level)

	a, err := app.Build(context.Background(), cfg, app.Options{})
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(a.Sweep, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		err := runJobOnce(jobRunner, *runOnce)
		a.Close()
		if err != nil {
			log.Fatalf("Job %s failed: %v", *runOnce, err)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler := scheduler.NewScheduler(jobRunner)
	cronScheduler.Start()
	logger.Info("Sweep scheduler is running. Press Ctrl+C to stop.", "jobs", cronScheduler.Registered())

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down sweep scheduler...")
	cronScheduler.Stop()
	if err := a.Close(); err != nil {
		logger.Error("Failed to release resources", "error", err)
	}
	logger.Info("Sweep scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) error {
	err := jobRunner.Run(jobName)
	if errors.Is(err, jobs.ErrUnknownJob) {
		fmt.Printf("Available jobs:\n")
		for _, name := range jobs.JobNames() {
			fmt.Printf("  - %s\n", name)
		}
		os.Exit(1)
	}
	return err
}
