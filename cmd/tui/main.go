package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/coinfun/internal/bot"
	"github.com/rovshanmuradov/coinfun/internal/config"
	"github.com/rovshanmuradov/coinfun/internal/logger"
	"github.com/rovshanmuradov/coinfun/internal/ui"
	"github.com/rovshanmuradov/coinfun/internal/ui/state"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	spillPath := flag.String("log-spill", "", "File for log entries evicted from the on-screen buffer")
	flag.Parse()

	if err := run(*configPath, *spillPath); err != nil {
		fmt.Fprintf(os.Stderr, "coinfun-tui: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, spillPath string) error {
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	buffer, err := logger.NewLogBuffer(500, spillPath)
	if err != nil {
		return err
	}
	defer buffer.Close()

	// консоль занята TUI, логи идут в файл и в буфер
	logCfg := cfg.Logger()
	logCfg.Quiet = true
	log, err := logger.New(logCfg, buffer.Core(zapcore.InfoLevel))
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() { _ = logger.Sync(log) }()

	runner, err := bot.NewRunner(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := runner.Close(); err != nil {
			log.Error("Shutdown finished with errors", zap.Error(err))
		}
	}()

	feed := ui.NewFeed(1024)
	feed.Attach(runner.Bus())
	defer feed.Close()

	ctx, cancel := context.WithCancel(rootCtx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	model := ui.NewModel(runner.Engine(), buffer, feed, state.NewTradeCache(200, log), ui.Options{})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(gctx))

	g.Go(func() error {
		return runner.Run(gctx)
	})
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return err
		}
		return nil
	})
	return g.Wait()
}
