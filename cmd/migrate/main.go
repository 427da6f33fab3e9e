package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/karming-leong/datacentric-assingment/internal/app/database"
	"github.com/karming-leong/datacentric-assingment/internal/app/migrate"
	"github.com/karming-leong/datacentric-assingment/pkg/config"
	"github.com/karming-leong/datacentric-assingment/pkg/logger"
)

func main() {
	command := flag.String("command", "up", "migrate command (up|status|down)")
	timeout := flag.Duration("timeout", time.Minute, "command timeout")
	target := flag.Int64("target", 0, "target version for down command (optional)")
	flag.Parse()

	dotenvErr := config.LoadDotEnv()
	cfg := config.LoadAPIConfig()
	log := logger.New("migrate", logger.ParseLevel(cfg.LogLevel))
	if dotenvErr != nil {
		log.Warn("failed to load .env", "error", dotenvErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL, database.Options{Retries: 1, Backoff: time.Second}, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		pool.Close()
		log.Error("failed to configure migration runner", "error", err)
		os.Exit(1)
	}
	defer runner.Close()

	switch *command {
	case "up":
		err = runner.Ensure(ctx)
	case "status":
		err = runner.Status(ctx)
	case "down":
		err = runner.Down(ctx, *target)
	default:
		log.Error("unsupported command", "command", *command)
		runner.Close()
		os.Exit(2)
	}
	if err != nil {
		log.Error("migration command failed", "command", *command, "error", err)
		runner.Close()
		os.Exit(1)
	}

	log.Info("migration command completed", "command", *command)
}
