// internal/settlement/engine.go
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/authority"
	"github.com/rovshanmuradov/coinfun/internal/curve"
	"github.com/rovshanmuradov/coinfun/internal/events"
	"github.com/rovshanmuradov/coinfun/internal/ledger"
	"github.com/rovshanmuradov/coinfun/internal/metrics"
)

// notifyTimeout bounds how long a committed trade waits for queue space on the bus.
const notifyTimeout = 5 * time.Second

// Publisher delivers notifications after a trade commits.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Receipt describes a committed trade.
type Receipt struct {
	Mint          solana.PublicKey
	Trader        solana.PublicKey
	Side          curve.Side
	NativeAmount  uint64
	TokenAmount   uint64
	PlatformFee   uint64
	ReserveFee    uint64
	ReserveTokens uint64
	State         curve.State
	Graduated     bool
}

// Engine prices trades against a curve and settles them on the ledger in a
// single transaction.
type Engine struct {
	store   *ledger.Store
	program *authority.Program
	bus     Publisher
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewEngine wires an engine. bus and collector may be nil.
func NewEngine(store *ledger.Store, program *authority.Program, bus Publisher, collector *metrics.Collector, logger *zap.Logger) *Engine {
	return &Engine{
		store:   store,
		program: program,
		bus:     bus,
		metrics: collector,
		logger:  logger.Named("settlement"),
	}
}

// claim marks a signed order as used inside the settling transaction.
type claim func(tx *ledger.Tx) error

// Execute authenticates a signed order and settles it. An order that has
// already been settled is rejected with ErrUnauthorized.
func (e *Engine) Execute(ctx context.Context, order Order) (Receipt, error) {
	req := order.Request
	if err := order.Authenticate(); err != nil {
		e.observe(req.Side, req.Mint, time.Now(), err)
		return Receipt{}, err
	}
	msg, err := order.Message()
	if err != nil {
		return Receipt{}, err
	}
	use := func(tx *ledger.Tx) error {
		return tx.UseMessage(order.Credential.Signer, msg)
	}

	var rcpt Receipt
	switch req.Side {
	case curve.SideBuy:
		rcpt, err = e.buy(ctx, req.Trader, req.Mint, req.Amount, req.MinOut, use)
	case curve.SideSell:
		rcpt, err = e.sell(ctx, req.Trader, req.Mint, req.Amount, req.MinOut, use)
	default:
		return Receipt{}, fmt.Errorf("unknown trade side %s", req.Side)
	}
	if errors.Is(err, ledger.ErrMessageReplayed) {
		return Receipt{}, fmt.Errorf("%w: %w", authority.ErrUnauthorized, err)
	}
	return rcpt, err
}

// Buy spends solIn native units of an already authenticated trader.
func (e *Engine) Buy(ctx context.Context, trader, mint solana.PublicKey, solIn, minTokensOut uint64) (Receipt, error) {
	return e.buy(ctx, trader, mint, solIn, minTokensOut, nil)
}

// Sell sells tokensIn tokens of an already authenticated trader.
func (e *Engine) Sell(ctx context.Context, trader, mint solana.PublicKey, tokensIn, minSolOut uint64) (Receipt, error) {
	return e.sell(ctx, trader, mint, tokensIn, minSolOut, nil)
}

func (e *Engine) begin(mint solana.PublicKey, use claim) (*ledger.Tx, error) {
	tx, err := e.store.Begin(mint)
	if err != nil {
		return nil, err
	}
	if use != nil {
		if err := use(tx); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	return tx, nil
}

func (e *Engine) buy(ctx context.Context, trader, mint solana.PublicKey, solIn, minTokensOut uint64, use claim) (rcpt Receipt, err error) {
	start := time.Now()
	defer func() { e.observe(curve.SideBuy, mint, start, err) }()

	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	tx, err := e.begin(mint, use)
	if err != nil {
		return Receipt{}, err
	}
	defer tx.Rollback()

	g, st, vault, err := e.load(tx, mint)
	if err != nil {
		return Receipt{}, err
	}

	next, res, err := curve.Buy(st, g.Fees(), solIn, minTokensOut)
	if err != nil {
		return Receipt{}, e.wrap(mint, err)
	}

	inflow, err := res.VaultInflow()
	if err != nil {
		return Receipt{}, err
	}
	err = e.apply(mint, curve.SideBuy, []step{
		{"platform fee", false, func() error {
			return tx.Transfer(ledger.NativeAsset, trader, g.FeeRecipient, res.PlatformFee, trader)
		}},
		{"native to curve", false, func() error {
			return tx.Transfer(ledger.NativeAsset, trader, vault, inflow, trader)
		}},
		{"tokens to trader", true, func() error {
			return tx.Transfer(mint, vault, trader, res.TokensOut, vault)
		}},
		{"tokens to reserve", true, func() error {
			return tx.Transfer(mint, vault, g.ReserveAuthority, res.ReserveTokens, vault)
		}},
	})
	if err != nil {
		return Receipt{}, err
	}

	next, graduated := curve.Graduate(next, g.GraduationThreshold)
	if err := tx.PutCurve(next); err != nil {
		return Receipt{}, err
	}
	if err := tx.Commit(); err != nil {
		return Receipt{}, fmt.Errorf("buy commit: %w", err)
	}

	rcpt = Receipt{
		Mint:          mint,
		Trader:        trader,
		Side:          curve.SideBuy,
		NativeAmount:  solIn,
		TokenAmount:   res.TokensOut,
		PlatformFee:   res.PlatformFee,
		ReserveFee:    res.ReserveFee,
		ReserveTokens: res.ReserveTokens,
		State:         next,
		Graduated:     graduated,
	}
	e.logger.Info("Buy settled",
		zap.String("mint", mint.String()),
		zap.String("trader", trader.String()),
		zap.Uint64("sol_in", solIn),
		zap.Uint64("tokens_out", res.TokensOut),
		zap.Uint64("platform_fee", res.PlatformFee),
		zap.Uint64("reserve_fee", res.ReserveFee),
		zap.Uint64("reserve_tokens", res.ReserveTokens),
		zap.Bool("graduated", graduated))

	e.notify(ctx, rcpt, vault)
	return rcpt, nil
}

func (e *Engine) sell(ctx context.Context, trader, mint solana.PublicKey, tokensIn, minSolOut uint64, use claim) (rcpt Receipt, err error) {
	start := time.Now()
	defer func() { e.observe(curve.SideSell, mint, start, err) }()

	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	tx, err := e.begin(mint, use)
	if err != nil {
		return Receipt{}, err
	}
	defer tx.Rollback()

	g, st, vault, err := e.load(tx, mint)
	if err != nil {
		return Receipt{}, err
	}

	next, res, err := curve.Sell(st, g.Fees(), tokensIn, minSolOut)
	if err != nil {
		return Receipt{}, e.wrap(mint, err)
	}

	outflow, err := res.VaultOutflow()
	if err != nil {
		return Receipt{}, err
	}
	// The vault cannot sign a transfer, so its native leg is adjusted directly.
	err = e.apply(mint, curve.SideSell, []step{
		{"debit curve", true, func() error {
			return tx.AdjustBalance(ledger.Record{Asset: ledger.NativeAsset, Owner: vault}, ledger.Debit(outflow))
		}},
		{"platform fee", false, func() error {
			return tx.AdjustBalance(ledger.Record{Asset: ledger.NativeAsset, Owner: g.FeeRecipient}, ledger.Credit(res.PlatformFee))
		}},
		{"native to trader", false, func() error {
			return tx.AdjustBalance(ledger.Record{Asset: ledger.NativeAsset, Owner: trader}, ledger.Credit(res.NetOut))
		}},
		{"tokens to curve", false, func() error {
			return tx.Transfer(mint, trader, vault, tokensIn, trader)
		}},
		{"tokens to reserve", true, func() error {
			return tx.Transfer(mint, vault, g.ReserveAuthority, res.ReserveTokens, vault)
		}},
	})
	if err != nil {
		return Receipt{}, err
	}

	if err := tx.PutCurve(next); err != nil {
		return Receipt{}, err
	}
	if err := tx.Commit(); err != nil {
		return Receipt{}, fmt.Errorf("sell commit: %w", err)
	}

	rcpt = Receipt{
		Mint:          mint,
		Trader:        trader,
		Side:          curve.SideSell,
		NativeAmount:  res.NetOut,
		TokenAmount:   tokensIn,
		PlatformFee:   res.PlatformFee,
		ReserveFee:    res.ReserveFee,
		ReserveTokens: res.ReserveTokens,
		State:         next,
	}
	e.logger.Info("Sell settled",
		zap.String("mint", mint.String()),
		zap.String("trader", trader.String()),
		zap.Uint64("tokens_in", tokensIn),
		zap.Uint64("gross_out", res.GrossOut),
		zap.Uint64("net_out", res.NetOut),
		zap.Uint64("platform_fee", res.PlatformFee),
		zap.Uint64("reserve_fee", res.ReserveFee),
		zap.Uint64("reserve_tokens", res.ReserveTokens))

	e.notify(ctx, rcpt, vault)
	return rcpt, nil
}

func (e *Engine) load(tx *ledger.Tx, mint solana.PublicKey) (curve.Global, curve.State, solana.PublicKey, error) {
	g, err := tx.Global()
	if err != nil {
		return curve.Global{}, curve.State{}, solana.PublicKey{}, err
	}
	st, err := tx.Curve(mint)
	if err != nil {
		return curve.Global{}, curve.State{}, solana.PublicKey{}, err
	}
	vault, err := e.program.CurveAuthority(mint)
	if err != nil {
		return curve.Global{}, curve.State{}, solana.PublicKey{}, err
	}
	return g, st, vault, nil
}

// step is one balance movement of a settlement.
type step struct {
	name      string
	fromVault bool
	run       func() error
}

// apply runs steps in order and stops at the first failure. A curve vault
// holding less than its records claim is an integrity fault.
func (e *Engine) apply(mint solana.PublicKey, side curve.Side, steps []step) error {
	for _, s := range steps {
		err := s.run()
		if err == nil {
			continue
		}
		err = fmt.Errorf("%s %s: %w", side, s.name, err)
		if s.fromVault && errors.Is(err, ledger.ErrInsufficientBalance) {
			return &IntegrityError{Mint: mint, Err: err}
		}
		return err
	}
	return nil
}

// wrap turns a backing shortfall into an IntegrityError.
func (e *Engine) wrap(mint solana.PublicKey, err error) error {
	if errors.Is(err, curve.ErrInsufficientBacking) {
		return &IntegrityError{Mint: mint, Err: err}
	}
	return err
}

func (e *Engine) notify(ctx context.Context, r Receipt, vault solana.PublicKey) {
	if e.metrics != nil {
		e.metrics.RecordSettlement(r.Side.String(), r.Mint.String(), r.NativeAmount,
			r.PlatformFee, r.ReserveFee, r.ReserveTokens, r.State.RealNativeReserves)
		if r.Graduated {
			e.metrics.RecordGraduation()
		}
	}
	if e.bus == nil {
		return
	}
	// сделка уже записана: уход клиента не должен терять уведомления
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	trade := events.TradeEvent{
		BaseEvent:             events.NewBase(events.TradeExecuted),
		Mint:                  r.Mint,
		Trader:                r.Trader,
		Side:                  r.Side.String(),
		NativeAmount:          r.NativeAmount,
		TokenAmount:           r.TokenAmount,
		PlatformFee:           r.PlatformFee,
		ReserveFee:            r.ReserveFee,
		ReserveTokens:         r.ReserveTokens,
		VirtualNativeReserves: r.State.VirtualNativeReserves,
		VirtualTokenReserves:  r.State.VirtualTokenReserves,
		RealNativeReserves:    r.State.RealNativeReserves,
		RealTokenReserves:     r.State.RealTokenReserves,
	}
	if err := e.bus.Publish(ctx, trade); err != nil {
		e.logger.Error("Failed to publish trade", zap.String("mint", r.Mint.String()), zap.Error(err))
	}
	if !r.Graduated {
		return
	}
	complete := events.CurveCompleteEvent{
		BaseEvent:      events.NewBase(events.CurveCompleted),
		Mint:           r.Mint,
		CurveAuthority: vault,
	}
	if err := e.bus.Publish(ctx, complete); err != nil {
		e.logger.Error("Failed to publish graduation", zap.String("mint", r.Mint.String()), zap.Error(err))
	}
}

func (e *Engine) observe(side curve.Side, mint solana.PublicKey, start time.Time, err error) {
	st := status(err)
	if e.metrics != nil {
		e.metrics.RecordTrade(side.String(), st, time.Since(start))
	}

	fields := []zap.Field{
		zap.String("mint", mint.String()),
		zap.String("side", side.String()),
		zap.Error(err),
	}
	switch st {
	case metrics.StatusSuccess:
	case metrics.StatusRejected, metrics.StatusBusy:
		e.logger.Warn("Trade rejected", fields...)
	case metrics.StatusIntegrity:
		if e.metrics != nil {
			e.metrics.RecordIntegrityFault(mint.String())
		}
		e.logger.Error("Trade aborted: curve integrity fault", fields...)
	default:
		e.logger.Error("Trade failed", fields...)
	}
}
