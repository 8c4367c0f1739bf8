// internal/bot/worker.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/curve"
	"github.com/rovshanmuradov/coinfun/internal/events"
	"github.com/rovshanmuradov/coinfun/internal/ledger"
	"github.com/rovshanmuradov/coinfun/internal/metrics"
	"github.com/rovshanmuradov/coinfun/internal/settlement"
	"github.com/rovshanmuradov/coinfun/internal/task"
	"github.com/rovshanmuradov/coinfun/internal/wallet"
)

// Trader quotes and settles signed orders.
type Trader interface {
	Quote(mint solana.PublicKey, side curve.Side, amount uint64) (settlement.Quote, error)
	Execute(ctx context.Context, order settlement.Order) (settlement.Receipt, error)
}

// Publisher delivers operation events.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// RetryConfig bounds retries of trades that hit a busy curve.
type RetryConfig struct {
	MaxRetries      int
	MaxElapsed      time.Duration
	InitialInterval time.Duration
}

// Result is the outcome of one task.
type Result struct {
	Task     *task.Task
	Receipt  settlement.Receipt
	Attempts int
	Err      error
}

type WorkerPool struct {
	wg       sync.WaitGroup
	ctx      context.Context
	tasks    <-chan *task.Task
	logger   *zap.Logger
	trader   Trader
	wallets  map[string]*wallet.Wallet
	eventBus Publisher
	metrics  *metrics.Collector
	retry    RetryConfig

	mu      sync.Mutex
	results []Result
}

// NewWorkerPool creates a pool. eventBus and collector may be nil.
func NewWorkerPool(
	ctx context.Context,
	logger *zap.Logger,
	trader Trader,
	wallets map[string]*wallet.Wallet,
	tasks <-chan *task.Task,
	eventBus Publisher,
	collector *metrics.Collector,
	retry RetryConfig,
) *WorkerPool {
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 20 * time.Millisecond
	}
	return &WorkerPool{
		ctx:      ctx,
		logger:   logger.Named("workers"),
		tasks:    tasks,
		trader:   trader,
		wallets:  wallets,
		eventBus: eventBus,
		metrics:  collector,
		retry:    retry,
	}
}

func (wp *WorkerPool) Start(n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		wp.wg.Add(1)
		go wp.worker(i + 1)
	}
}

func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

// Results returns the outcomes recorded so far.
func (wp *WorkerPool) Results() []Result {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	out := make([]Result, len(wp.results))
	copy(out, wp.results)
	return out
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	logger := wp.logger.With(zap.Int("worker_id", id))
	logger.Debug("Worker started")

	for {
		select {
		case <-wp.ctx.Done():
			logger.Info("Worker shutting down due to context cancellation")
			return
		case t, ok := <-wp.tasks:
			if !ok {
				logger.Info("Task channel closed")
				return
			}
			wp.handleTask(wp.ctx, t, logger)
		}
	}
}

func (wp *WorkerPool) handleTask(ctx context.Context, t *task.Task, logger *zap.Logger) {
	logger = logger.With(zap.String("task", t.TaskName), zap.String("mint", t.Mint.String()))
	wp.publish(ctx, events.OperationStartedEvent{
		BaseEvent:  events.NewBase(events.OperationStarted),
		TaskID:     t.ID,
		TaskName:   t.TaskName,
		Operation:  string(t.Operation),
		WalletName: t.WalletName,
		TokenMint:  t.Mint.String(),
	})

	rcpt, attempts, err := wp.execute(ctx, t, logger)
	wp.mu.Lock()
	wp.results = append(wp.results, Result{Task: t, Receipt: rcpt, Attempts: attempts, Err: err})
	wp.mu.Unlock()

	if err != nil {
		if settlement.IsUserError(err) {
			logger.Warn("Task rejected", zap.Int("attempts", attempts), zap.Error(err))
		} else {
			logger.Error("Task execution failed", zap.Int("attempts", attempts), zap.Error(err))
		}
		wp.publish(ctx, events.OperationFailedEvent{
			BaseEvent:  events.NewBase(events.OperationFailed),
			TaskID:     t.ID,
			TaskName:   t.TaskName,
			Operation:  string(t.Operation),
			WalletName: t.WalletName,
			TokenMint:  t.Mint.String(),
			Error:      err,
		})
		return
	}

	logger.Info("Task executed successfully",
		zap.Uint64("native_amount", rcpt.NativeAmount),
		zap.Uint64("token_amount", rcpt.TokenAmount),
		zap.Int("attempts", attempts))
	wp.publish(ctx, events.OperationCompletedEvent{
		BaseEvent:  events.NewBase(events.OperationCompleted),
		TaskID:     t.ID,
		TaskName:   t.TaskName,
		Operation:  string(t.Operation),
		WalletName: t.WalletName,
		TokenMint:  t.Mint.String(),
		Result:     rcpt,
	})
}

// execute quotes the task, bounds it by the task's slippage, signs it and
// settles it. Only a busy curve is retried.
func (wp *WorkerPool) execute(ctx context.Context, t *task.Task, logger *zap.Logger) (settlement.Receipt, int, error) {
	w := wp.wallets[t.WalletName]
	if w == nil {
		return settlement.Receipt{}, 0, fmt.Errorf("wallet %q not found", t.WalletName)
	}
	side, err := t.Operation.Side()
	if err != nil {
		return settlement.Receipt{}, 0, err
	}

	q, err := wp.trader.Quote(t.Mint, side, t.Amount)
	if err != nil {
		return settlement.Receipt{}, 0, fmt.Errorf("quote: %w", err)
	}
	order, err := w.SignOrder(settlement.TradeRequest{
		Mint:   t.Mint,
		Trader: w.PublicKey,
		Side:   side,
		Amount: t.Amount,
		MinOut: t.Slippage().MinAmountOut(q.Output()),
		Nonce:  w.NextNonce(),
	})
	if err != nil {
		return settlement.Receipt{}, 0, err
	}

	attempts := 0
	operation := func() (settlement.Receipt, error) {
		attempts++
		rcpt, err := wp.trader.Execute(ctx, order)
		if err != nil && !errors.Is(err, ledger.ErrCurveBusy) {
			return rcpt, backoff.Permanent(err)
		}
		return rcpt, err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = wp.retry.InitialInterval
	policy.MaxInterval = wp.retry.InitialInterval * 10

	notify := func(err error, next time.Duration) {
		if wp.metrics != nil {
			wp.metrics.RecordRetry()
		}
		logger.Debug("Curve busy, retrying", zap.Error(err), zap.Duration("backoff", next))
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(wp.retry.MaxRetries) + 1),
		backoff.WithNotify(notify),
	}
	if wp.retry.MaxElapsed > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(wp.retry.MaxElapsed))
	}
	rcpt, err := backoff.Retry(ctx, operation, opts...)
	return rcpt, attempts, err
}

func (wp *WorkerPool) publish(ctx context.Context, e events.Event) {
	if wp.eventBus == nil {
		return
	}
	if err := wp.eventBus.Publish(ctx, e); err != nil {
		wp.logger.Debug("Operation event dropped", zap.String("type", string(e.Type())), zap.Error(err))
	}
}
