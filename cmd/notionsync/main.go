package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"notionsync/internal/app"
	"notionsync/internal/config"
	"notionsync/internal/logging"
	"notionsync/internal/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf(".env error: %v", err)
	}

	cfg, err := config.Load(os.Getenv("NOTIONSYNC_CONFIG"))
	if err != nil {
		log.Printf("config error: %v", err)
		return 1
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		log.Printf("logger error: %v", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting Notion sync...")
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("sync could not start", zap.Error(err))
		return 1
	}
	defer a.Close()

	summary, runErr := a.Run(ctx)
	if err := report.Write(os.Stdout, summary); err != nil {
		logger.Warn("could not print summary", zap.Error(err))
	}
	if runErr != nil {
		logger.Error("sync aborted", zap.Error(runErr))
		return 1
	}
	if summary.Errors > 0 {
		return 1
	}
	return 0
}
