package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DenisFeoktistov/LesJoursBackend/internal/config"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/postgres"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/redis"
	postgresrepo "github.com/DenisFeoktistov/LesJoursBackend/internal/repository/postgres"
	redisrepo "github.com/DenisFeoktistov/LesJoursBackend/internal/repository/redis"
	"github.com/DenisFeoktistov/LesJoursBackend/internal/service"
	httpgin "github.com/DenisFeoktistov/LesJoursBackend/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	pgxPool, err := postgres.New(context.Background(), postgres.Config{
		DSN:      cfg.Postgres.DSN(),
		MaxConns: cfg.Postgres.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(context.Background(), redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	// Repositories
	store := postgresrepo.NewStore(pgxPool)
	carts := redisrepo.NewCartStore(rdb, cfg.Cart.TTL)
	cache := redisrepo.New(rdb)
	pubsub := redisrepo.NewOccurrencesPubSub(rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(
		rdb,
		redisrepo.RateLimitPrefix("checkout"),
		cfg.Checkout.RateLimit,
		cfg.Checkout.RateWindow,
	)
	idempotencyStore := redisrepo.NewIdempotencyStore(
		rdb,
		cfg.Checkout.IdempotencyTTL,
		cfg.Checkout.IdempotencyLock,
	)

	// Services
	services := service.NewServices(store, carts, cache, pubsub, service.Config{
		CartTTL: cfg.Cart.TTL,
	})

	// Gin router
	router := httpgin.NewRouter(
		services,
		idempotencyStore,
		limiter,
		cfg.Server.AllowedOrigins,
		logger,
	)

	return &App{
		cfg:    cfg,
		logger: logger,
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

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}
