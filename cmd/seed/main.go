package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"os"

	"gpms-backend/internal/config"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/repository/postgres"
	"gpms-backend/internal/seed"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	seedPath := flag.String("file", "config/seed.dev.yaml", "Path to the seed fixture")
	migrate := flag.Bool("migrate", true, "Apply the database schema before seeding")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring .env file: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)

	if cfg.Database.Driver != "postgres" {
		log.Fatalf("Seeding needs the postgres driver; the memory driver loads database.seed_file on startup")
	}

	fx, err := seed.Load(*seedPath)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}

	ctx := context.Background()
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("✓ Connected to database", "host", cfg.Database.Host, "database", cfg.Database.Database)

	if *migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to migrate: %v", err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	if _, err := seed.Apply(ctx, fx, seed.SQLTarget{DB: tx}); err != nil {
		log.Fatalf("Failed to populate data: %v", err)
	}
	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit transaction: %v", err)
	}
	logger.Info("✅ Seed data successfully populated!")
}
