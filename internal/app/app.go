package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gpms-backend/internal/config"
	"gpms-backend/internal/email"
	"gpms-backend/internal/logger"
	"gpms-backend/internal/realtime"
	"gpms-backend/internal/repository"
	"gpms-backend/internal/repository/memory"
	"gpms-backend/internal/repository/postgres"
	"gpms-backend/internal/seed"
	"gpms-backend/internal/service"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
)

// App holds the wired workflow engines and the resources behind them
type App struct {
	Config *config.Config
	DB     *sql.DB
	Store  repository.Store
	Emails *email.Queue
	Hub    *realtime.Hub
	Redis  *redis.Client

	Notifications *service.Dispatcher
	Invitations   service.InvitationService
	GroupRequests service.GroupRequestService
	Approvals     service.ApprovalService
	Sweep         service.SweepService
}

// Options control which optional resources Build creates
type Options struct {
	// Migrate applies the embedded schema after connecting
	Migrate bool
	// LocalHub creates an in-process websocket hub for live delivery
	LocalHub bool
}

// Build connects the store, delivery channels and services described by cfg
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	if err := a.openStore(ctx, opts.Migrate); err != nil {
		return nil, err
	}

	publisher, err := a.openPublishers(ctx, opts.LocalHub)
	if err != nil {
		a.Close()
		return nil, err
	}

	var emails service.EmailQueue
	if !strings.EqualFold(cfg.Email.Provider, "none") {
		sender, err := email.NewSender(cfg.Email)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create email sender: %w", err)
		}
		a.Emails = email.NewQueue(sender, cfg.Email.Workers, cfg.Email.QueueSize, cfg.Email.MaxRetries)
		a.Emails.Start(ctx)
		emails = a.Emails
		logger.Info("Email delivery enabled", "provider", sender.Name(), "workers", cfg.Email.Workers)
	} else {
		logger.Info("Email delivery disabled")
	}

	checker := service.NewRoleChecker(a.Store.Repos().Users)
	a.Notifications = service.NewDispatcher(a.Store, emails, publisher)
	a.Invitations = service.NewInvitationService(a.Store, a.Notifications, checker, cfg.InvitationTTL())
	a.GroupRequests = service.NewGroupRequestService(a.Store, a.Notifications, checker, cfg.Workflow)
	a.Approvals = service.NewApprovalService(a.Store, a.Notifications, checker, cfg.Workflow.ApprovalSequences)
	a.Sweep = service.NewSweepService(a.Store, a.Notifications, cfg.Sweep)
	return a, nil
}

func (a *App) openStore(ctx context.Context, migrate bool) error {
	cfg := a.Config.Database
	if cfg.Driver == "memory" {
		logger.Warn("Using in-memory store; data is lost on exit")
		store := memory.NewStore()
		if cfg.SeedFile != "" {
			fx, err := seed.Load(cfg.SeedFile)
			if err != nil {
				return err
			}
			if _, err := seed.Apply(ctx, fx, seed.MemoryTarget{Store: store}); err != nil {
				return fmt.Errorf("failed to seed memory store: %w", err)
			}
		}
		a.Store = store
		return nil
	}

	logger.Info("Connecting to database...", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	db, err := sql.Open("postgres", a.Config.GetDatabaseConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Database connection established")

	if migrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return err
		}
	}
	a.DB = db
	a.Store = postgres.NewStore(db)
	return nil
}

// openPublishers builds the realtime fan-out. With Redis configured the
// local hub is fed by the relay instead of directly, so each event reaches
// a socket once.
func (a *App) openPublishers(ctx context.Context, localHub bool) (realtime.Publisher, error) {
	var pubs realtime.Multi
	if localHub {
		a.Hub = realtime.NewHub()
	}

	if url := a.Config.Redis.URL; url != "" {
		client, err := realtime.NewRedisClient(ctx, url)
		if err != nil {
			return nil, err
		}
		a.Redis = client
		pubs = append(pubs, realtime.NewRedisPublisher(client))
		logger.Info("Redis notification channel enabled")
	} else if a.Hub != nil {
		pubs = append(pubs, a.Hub)
	}

	if a.Config.Push.Enabled {
		fcm, err := realtime.NewFCMPublisher(ctx, a.Config.Push.CredentialsFile)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, fcm)
		logger.Info("Push notifications enabled")
	}

	if len(pubs) == 0 {
		return realtime.Nop{}, nil
	}
	return pubs, nil
}

// Ping checks the database, when there is one
func (a *App) Ping(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return a.DB.PingContext(ctx)
}

// Close drains the email queue and releases connections
func (a *App) Close() error {
	var errs error
	if a.Emails != nil {
		a.Emails.Close()
	}
	if a.Redis != nil {
		errs = multierr.Append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = multierr.Append(errs, a.DB.Close())
	}
	return errs
}
