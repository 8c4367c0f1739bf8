// ====================================
// File: cmd/coinfun/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/bot"
	"github.com/rovshanmuradov/coinfun/internal/config"
	"github.com/rovshanmuradov/coinfun/internal/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "coinfun: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() { _ = logger.Sync(log) }()

	log.Info("🚀 Starting coinfun",
		zap.String("program_id", cfg.ProgramID),
		zap.String("ledger", cfg.Ledger.Driver),
		zap.String("api", cfg.API.Listen))

	runner, err := bot.NewRunner(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			log.Error("Shutdown finished with errors", zap.Error(err))
		}
	}()

	if err := runner.Run(ctx); err != nil {
		return err
	}
	log.Info("👋 coinfun stopped")
	return nil
}
