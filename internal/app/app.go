package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirinyoku/park-go/internal/config"
	"github.com/kirinyoku/park-go/internal/postgres"
	"github.com/kirinyoku/park-go/internal/redis"
	postgresrepo "github.com/kirinyoku/park-go/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/park-go/internal/repository/redis"
	"github.com/kirinyoku/park-go/internal/service"
	"github.com/kirinyoku/park-go/internal/service/auth"
	httpgin "github.com/kirinyoku/park-go/internal/transport/http/gin"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	cron       *cron.Cron
	services   *service.Services
	cache      *redisrepo.Cache
	pubsub     *redisrepo.FacilitiesPubSub
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize dependencies
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.Name,
		cfg.Postgres.SSLMode,
	)

	pgxPool, err := postgres.New(context.Background(), postgres.Config{DSN: dsn})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(context.Background(), redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Initialize repositories
	store := postgresrepo.NewStore(pgxPool)
	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewFacilitiesPubSub(rdb)
	limiter := redisrepo.NewEntryLimiter(rdb, 10, 1*time.Minute)
	idempotencyStore := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)

	// Initialize services
	services := service.NewServices(store, cache, pubsub, limiter, service.Config{
		Auth: auth.Config{
			JWTSecret: cfg.Auth.JWTSecret,
			TokenTTL:  cfg.Auth.TokenTTL,
		},
	})

	// Initialize Gin router
	router := httpgin.NewRouter(services, idempotencyStore, logger)

	// Periodic counter reconciliation: repairs available_spaces drift
	// against the lot rows.
	c := cron.New()
	if _, err := c.AddFunc("*/5 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fixed, err := services.Facilities.Reconcile(ctx)
		if err != nil {
			logger.Error("counter reconciliation failed", "error", err)
			return
		}
		if fixed > 0 {
			logger.Warn("counter drift repaired", "facilities", fixed)
		}
	}); err != nil {
		return nil, fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		cron:     c,
		services: services,
		cache:    cache,
		pubsub:   pubsub,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	a.cron.Start()

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Drop cached facility views when another instance commits a change.
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, func(ctx context.Context, facilityID int64) {
			a.logger.Info("facility changed", "facility_id", facilityID)
			_ = a.cache.InvalidateFacility(ctx, facilityID)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("pubsub subscriber: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")
		<-a.cron.Stop().Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
