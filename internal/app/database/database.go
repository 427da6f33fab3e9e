// Package database opens the PostgreSQL pool, retrying until the server answers.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// Options controls connection retries.
type Options struct {
	// Retries bounds reconnect attempts after the first; zero retries forever.
	Retries int
	// Backoff is the constant wait between attempts.
	Backoff time.Duration
	// PingTimeout bounds each connectivity check.
	PingTimeout time.Duration
}

// Connect creates a pool and blocks until a ping succeeds, ctx is done, or the
// retry budget is spent.
func Connect(ctx context.Context, dsn string, opts Options, log *slog.Logger) (*pgxpool.Pool, error) {
	if log == nil {
		log = slog.Default()
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	attempt := 0
	err = retry.Do(ctx, backoff(opts), func(ctx context.Context) error {
		attempt++
		if err := ping(ctx, pool, opts.PingTimeout); err != nil {
			log.Warn("database unavailable, retrying", "attempt", attempt, "backoff", opts.Backoff.String(), "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect database after %d attempts: %w", attempt, err)
	}
	log.Info("connected to database", "attempts", attempt)
	return pool, nil
}

func backoff(opts Options) retry.Backoff {
	wait := opts.Backoff
	if wait <= 0 {
		wait = 5 * time.Second
	}
	b := retry.NewConstant(wait)
	if opts.Retries > 0 {
		b = retry.WithMaxRetries(uint64(opts.Retries), b)
	}
	return b
}

func ping(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return pool.Ping(ctx)
}
