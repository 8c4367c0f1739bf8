// internal/bot/runner.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/coinfun/internal/admin"
	"github.com/rovshanmuradov/coinfun/internal/api"
	"github.com/rovshanmuradov/coinfun/internal/authority"
	"github.com/rovshanmuradov/coinfun/internal/config"
	"github.com/rovshanmuradov/coinfun/internal/events"
	"github.com/rovshanmuradov/coinfun/internal/export"
	"github.com/rovshanmuradov/coinfun/internal/ledger"
	"github.com/rovshanmuradov/coinfun/internal/metrics"
	"github.com/rovshanmuradov/coinfun/internal/settlement"
	"github.com/rovshanmuradov/coinfun/internal/storage"
	"github.com/rovshanmuradov/coinfun/internal/storage/sqldb"
	"github.com/rovshanmuradov/coinfun/internal/task"
	"github.com/rovshanmuradov/coinfun/internal/wallet"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Runner owns every long-lived component of the service.
type Runner struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    *ledger.Store
	bus      *events.Bus
	metrics  *metrics.Collector
	engine   *settlement.Engine
	admin    *admin.Service
	history  storage.Storage
	indexer  *storage.Indexer
	journal  *export.Journal
	wallets  map[string]*wallet.Wallet
	tasks    []*task.Task
	shutdown *ShutdownHandler
}

// NewRunner opens the ledger and the optional trade history and wires the
// settlement engine to the event bus.
func NewRunner(cfg *config.Config, logger *zap.Logger) (_ *Runner, err error) {
	programID, err := cfg.Program()
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:      cfg,
		logger:   logger,
		wallets:  make(map[string]*wallet.Wallet),
		shutdown: NewShutdownHandler(logger, shutdownTimeout),
	}
	defer func() {
		if err != nil {
			_ = r.Close()
		}
	}()

	switch cfg.Ledger.Driver {
	case config.LedgerLevelDB:
		r.store, err = ledger.Open(cfg.Ledger.Path, logger)
	default:
		r.store, err = ledger.OpenMemory(logger)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	r.shutdown.Add("ledger", r.store)

	r.bus = events.NewBus(logger, cfg.EventBuffer)
	r.metrics = metrics.NewCollector()
	program := authority.NewProgram(programID)
	r.engine = settlement.NewEngine(r.store, program, r.bus, r.metrics, logger)
	r.admin = admin.NewService(r.store, program, r.bus, r.metrics, logger, admin.Options{
		VaultMinBalance: cfg.Curve.VaultMinBalance,
	})

	if cfg.Storage.Driver != "" {
		r.history, err = sqldb.NewStorage(cfg.Storage.Driver, cfg.Storage.DSN, logger)
		if err != nil {
			return nil, err
		}
		r.shutdown.Add("history", r.history)
		if err = r.history.RunMigrations(); err != nil {
			return nil, err
		}
		r.indexer = storage.NewIndexer(r.history, logger)
		r.indexer.Attach(r.bus)
		r.shutdown.AddFunc("indexer", func() error {
			r.indexer.Detach()
			return nil
		})
	}

	if cfg.JournalFile != "" {
		r.journal, err = export.OpenJournal(cfg.JournalFile)
		if err != nil {
			return nil, err
		}
		r.shutdown.Add("journal", r.journal)
		r.bus.Subscribe(events.TradeExecuted, r.journal)
	}

	// шина закрывается первой, чтобы подписчики успели дописать события
	r.shutdown.AddFunc("event bus", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return r.bus.Shutdown(ctx)
	})

	if cfg.WalletsFile != "" {
		if r.wallets, err = wallet.LoadWallets(cfg.WalletsFile); err != nil {
			return nil, err
		}
		logger.Info("Wallets loaded", zap.Int("count", len(r.wallets)))
	}
	if cfg.TasksFile != "" {
		if r.tasks, err = task.NewManager(logger).LoadTasksYAML(cfg.TasksFile); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Runner) Engine() *settlement.Engine         { return r.engine }
func (r *Runner) Admin() *admin.Service              { return r.admin }
func (r *Runner) Bus() *events.Bus                   { return r.bus }
func (r *Runner) Metrics() *metrics.Collector        { return r.metrics }
func (r *Runner) Ledger() *ledger.Store              { return r.store }
func (r *Runner) History() storage.Storage           { return r.history }
func (r *Runner) Tasks() []*task.Task                { return r.tasks }
func (r *Runner) Wallets() map[string]*wallet.Wallet { return r.wallets }

// Run bootstraps the ledger when enabled, starts the configured HTTP
// listeners and executes the loaded tasks. With no listener configured Run
// returns once the tasks are done; otherwise it serves until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r.cfg.Bootstrap.Enabled {
		if err := r.Bootstrap(ctx); err != nil {
			return fmt.Errorf("bootstrap failed: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if r.cfg.API.Listen != "" {
		r.serve(gctx, g, "api", &http.Server{
			Addr:              r.cfg.API.Listen,
			Handler:           api.New(r.engine, r.history, r.logger).Handler(),
			ReadHeaderTimeout: readHeaderTimeout,
		})
	}
	if r.cfg.Metrics.Listen != "" {
		router := chi.NewRouter()
		router.Handle("/metrics", r.metrics.Handler())
		r.serve(gctx, g, "metrics", &http.Server{
			Addr:              r.cfg.Metrics.Listen,
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		})
	}
	if len(r.tasks) > 0 {
		g.Go(func() error {
			r.RunTasks(gctx)
			return nil
		})
	}

	return g.Wait()
}

func (r *Runner) serve(ctx context.Context, g *errgroup.Group, name string, srv *http.Server) {
	logger := r.logger.With(zap.String("server", name), zap.String("addr", srv.Addr))
	g.Go(func() error {
		logger.Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown failed", zap.Error(err))
		}
		return nil
	})
}

// RunTasks executes every loaded task on the worker pool and returns the
// outcomes once all workers finish.
func (r *Runner) RunTasks(ctx context.Context) []Result {
	taskCh := make(chan *task.Task, len(r.tasks))
	for _, t := range r.tasks {
		taskCh <- t
	}
	close(taskCh)

	numWorkers := r.cfg.Workers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	r.logger.Info("Starting execution", zap.Int("workers", numWorkers), zap.Int("tasks", len(r.tasks)))

	pool := NewWorkerPool(ctx, r.logger, r.engine, r.wallets, taskCh, r.bus, r.metrics, RetryConfig{
		MaxRetries: r.cfg.Retries,
		MaxElapsed: r.cfg.RetryMaxElapsed(),
	})
	pool.Start(numWorkers)
	pool.Wait()

	results := pool.Results()
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	r.logger.Info("All workers finished",
		zap.Int("succeeded", len(results)-failed),
		zap.Int("failed", failed))
	return results
}

// Close releases every component in reverse order of creation.
func (r *Runner) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return r.shutdown.Shutdown(ctx)
}
