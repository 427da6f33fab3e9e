package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/karming-leong/datacentric-assingment/internal/app/database"
	"github.com/karming-leong/datacentric-assingment/internal/app/migrate"
	httpx "github.com/karming-leong/datacentric-assingment/internal/http"
	"github.com/karming-leong/datacentric-assingment/internal/repository"
	"github.com/karming-leong/datacentric-assingment/internal/repository/cache"
	"github.com/karming-leong/datacentric-assingment/internal/repository/memory"
	"github.com/karming-leong/datacentric-assingment/internal/repository/postgres"
	"github.com/karming-leong/datacentric-assingment/internal/service/auth"
	"github.com/karming-leong/datacentric-assingment/internal/service/item"
	"github.com/karming-leong/datacentric-assingment/pkg/config"
	"github.com/karming-leong/datacentric-assingment/pkg/crypto"
	jwtpkg "github.com/karming-leong/datacentric-assingment/pkg/jwt"
	"github.com/karming-leong/datacentric-assingment/pkg/logger"
)

type storage struct {
	users  repository.UserRepository
	items  repository.ItemRepository
	health func(context.Context) error
	close  func()
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg := config.LoadAPIConfig()
	log := logger.New("api", logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer store.close()

	items := store.items
	if addr := strings.TrimSpace(cfg.CacheRedisAddr); addr != "" {
		client, err := cache.Dial(ctx, addr, cfg.CacheRedisPass, cfg.CacheRedisDB)
		if err != nil {
			log.Warn("redis cache unavailable", "error", err)
		} else {
			defer client.Close()
			items = cache.New(items, client, cfg.CacheTTL, log)
			log.Info("item cache enabled", "addr", addr, "ttl", cfg.CacheTTL.String())
		}
	}

	hasher, err := crypto.NewPasswordHasher(cfg.BcryptCost)
	if err != nil {
		log.Error("failed to configure password hashing", "error", err)
		os.Exit(1)
	}
	issuer, err := jwtpkg.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Error("failed to configure tokens", "error", err)
		os.Exit(1)
	}

	authSvc := auth.New(store.users, hasher, issuer, log)
	itemSvc := item.New(items, log)
	router := httpx.NewRouter(log, authSvc, itemSvc, store.health, cfg.IsDevelopment())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("api server starting", "addr", cfg.Addr, "storage", cfg.StorageDriver)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("api server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}

func openStorage(ctx context.Context, cfg config.APIConfig, log *slog.Logger) (storage, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		log.Warn("using in-memory storage; data is lost on exit")
		repo := memory.New()
		return storage{users: repo, items: repo, health: repo.Ping, close: func() {}}, nil
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, database.Options{
		Retries: cfg.DBConnectRetries,
		Backoff: cfg.DBConnectBackoff,
	}, log)
	if err != nil {
		return storage{}, err
	}
	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		pool.Close()
		return storage{}, err
	}
	if err := runner.Ensure(ctx); err != nil {
		runner.Close()
		return storage{}, err
	}
	repo := postgres.New(pool, cfg.DBOperationTimeout)
	return storage{users: repo, items: repo, health: repo.Ping, close: runner.Close}, nil
}
