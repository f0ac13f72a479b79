package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hray3182/ledgerline/internal/ai"
	"github.com/hray3182/ledgerline/internal/bot"
	"github.com/hray3182/ledgerline/internal/config"
	"github.com/hray3182/ledgerline/internal/database"
	"github.com/hray3182/ledgerline/internal/finance"
	"github.com/hray3182/ledgerline/internal/httpapi"
	"github.com/hray3182/ledgerline/internal/metrics"
	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository"
	"github.com/hray3182/ledgerline/internal/repository/memory"
	"github.com/hray3182/ledgerline/internal/repository/postgres"
	"github.com/hray3182/ledgerline/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	opts := finance.Options{
		Location:           cfg.Location(),
		StoreTimeout:       cfg.Store.Timeout,
		DefaultAccountID:   cfg.Ledger.DefaultAccountID,
		DefaultAccountType: models.AccountType(cfg.Ledger.DefaultAccountType),
		PendingMaxAge:      cfg.Ledger.PendingMaxAge,
		Metrics:            m,
	}

	var store repository.Store
	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		store = memory.NewStore()
		log.Println("Using in-memory store, data is lost on exit")
	default:
		db, err := database.New(ctx, cfg.Database.URI)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		log.Println("Connected to database")

		if err := db.Migrate(ctx); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		log.Println("Database migrations completed")

		store = postgres.NewStore(db)
		opts.ChangeFeed = postgres.NewChangeFeed(db)
	}

	// AI advisor is optional
	if cfg.AI.APIKey != "" {
		opts.Advisor = ai.New(ai.Config{
			APIKey:     cfg.AI.APIKey,
			BaseURL:    cfg.AI.BaseURL,
			Model:      cfg.AI.Model,
			Timeout:    cfg.AI.Timeout,
			MaxRetries: cfg.AI.MaxRetries,
		})
		log.Printf("AI advisor initialized (model: %s)", cfg.AI.Model)
	} else {
		log.Println("AI advisor not configured, insights disabled")
	}

	svc := finance.NewService(store, opts)

	sched := scheduler.New(svc, scheduler.Config{
		Interval:     cfg.Scheduler.Interval,
		RunOnStartup: cfg.Scheduler.RunOnStartup,
		Location:     cfg.Location(),
		OnRun:        m.DetectionStarted,
	})

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, cfg.Telegram.ChatID, svc, sched)
		if err != nil {
			log.Fatalf("Failed to create bot: %v", err)
		}
		sched.SetNotifier(b)
		g.Go(func() error {
			log.Println("Starting bot...")
			if err := b.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else {
		log.Println("Telegram not configured, notifications disabled")
	}

	if cfg.Scheduler.Enabled {
		g.Go(func() error {
			sched.Start(ctx)
			return nil
		})
	}

	srv := httpapi.NewServer(svc, sched, m.Handler()).HTTPServer(ctx, cfg.HTTP.Addr)
	g.Go(func() error {
		log.Printf("HTTP server listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Failed to shut down HTTP server cleanly: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
