// internal/admin/service.go
package admin

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

const publishTimeout = 5 * time.Second

// Publisher delivers notifications.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Options tune the service.
type Options struct {
	// VaultMinBalance is the native amount a curve vault is funded with at
	// creation and keeps after a withdrawal.
	VaultMinBalance uint64
}

// Service implements config, asset creation and custody operations.
type Service struct {
	store   *ledger.Store
	program *authority.Program
	bus     Publisher
	metrics *metrics.Collector
	logger  *zap.Logger
	opts    Options
}

// NewService creates the administration service. bus and collector may be nil.
func NewService(store *ledger.Store, program *authority.Program, bus Publisher, collector *metrics.Collector, logger *zap.Logger, opts Options) *Service {
	return &Service{
		store:   store,
		program: program,
		bus:     bus,
		metrics: collector,
		logger:  logger.Named("admin"),
		opts:    opts,
	}
}

func (s *Service) begin(scope func() (solana.PublicKey, error)) (*ledger.Tx, error) {
	key, err := scope()
	if err != nil {
		return nil, err
	}
	return s.store.Begin(key)
}

// verify checks that cred signs the canonical message for req and returns it.
func verify(cred authority.Credential, domain string, req interface{}) ([]byte, error) {
	msg, err := authority.Message(domain, req)
	if err != nil {
		return nil, err
	}
	if err := cred.Verify(msg); err != nil {
		return nil, fmt.Errorf("%w: %v", authority.ErrUnauthorized, err)
	}
	return msg, nil
}

// use marks msg as consumed within tx.
func use(tx *ledger.Tx, cred authority.Credential, msg []byte) error {
	return replayed(tx.UseMessage(cred.Signer, msg))
}

func commit(tx *ledger.Tx) error {
	return replayed(tx.Commit())
}

// replayed reports a reused signed message as ErrUnauthorized.
func replayed(err error) error {
	if errors.Is(err, ledger.ErrMessageReplayed) {
		return fmt.Errorf("%w: %w", authority.ErrUnauthorized, err)
	}
	return err
}

// authorize loads the config, checks that cred signed req as its authority
// and consumes the signed message.
func (s *Service) authorize(tx *ledger.Tx, cred authority.Credential, domain string, req interface{}) (curve.Global, error) {
	msg, err := verify(cred, domain, req)
	if err != nil {
		return curve.Global{}, err
	}
	g, err := tx.Global()
	if err != nil {
		return curve.Global{}, err
	}
	if err := cred.RequireSigner(g.Authority); err != nil {
		return curve.Global{}, err
	}
	if err := use(tx, cred, msg); err != nil {
		return curve.Global{}, err
	}
	return g, nil
}

// InitializeConfig creates the global config. The signer becomes its authority.
func (s *Service) InitializeConfig(ctx context.Context, cred authority.Credential, params ConfigParams) (curve.Global, error) {
	msg, err := verify(cred, DomainInitialize, params)
	if err != nil {
		return curve.Global{}, err
	}
	tx, err := s.begin(s.program.GlobalAddress)
	if err != nil {
		return curve.Global{}, err
	}
	defer tx.Rollback()

	if _, err := tx.Global(); err == nil {
		return curve.Global{}, ErrAlreadyInitialized
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return curve.Global{}, err
	}
	if err := use(tx, cred, msg); err != nil {
		return curve.Global{}, err
	}

	reserve, err := s.program.ReserveAuthority()
	if err != nil {
		return curve.Global{}, err
	}
	g := params.apply(curve.Global{ReserveAuthority: reserve})
	g.Authority = cred.Signer
	if err := g.Validate(); err != nil {
		return curve.Global{}, err
	}
	if err := tx.PutGlobal(g); err != nil {
		return curve.Global{}, err
	}
	if err := commit(tx); err != nil {
		return curve.Global{}, err
	}

	s.logger.Info("Global config initialized",
		zap.String("authority", g.Authority.String()),
		zap.String("fee_recipient", g.FeeRecipient.String()),
		zap.String("reserve_authority", g.ReserveAuthority.String()),
		zap.Uint64("platform_fee_bps", g.PlatformFeeBps),
		zap.Uint64("reserve_fee_bps", g.ReserveFeeBps))
	return g, nil
}

// UpdateConfig replaces every config field except the reserve authority.
func (s *Service) UpdateConfig(ctx context.Context, cred authority.Credential, params ConfigParams) (curve.Global, error) {
	tx, err := s.begin(s.program.GlobalAddress)
	if err != nil {
		return curve.Global{}, err
	}
	defer tx.Rollback()

	g, err := s.authorize(tx, cred, DomainUpdateConfig, params)
	if err != nil {
		return curve.Global{}, err
	}
	g = params.apply(g)
	if err := g.Validate(); err != nil {
		return curve.Global{}, err
	}
	if err := tx.PutGlobal(g); err != nil {
		return curve.Global{}, err
	}
	if err := commit(tx); err != nil {
		return curve.Global{}, err
	}

	s.logger.Info("Global config updated",
		zap.String("authority", g.Authority.String()),
		zap.Uint64("platform_fee_bps", g.PlatformFeeBps),
		zap.Uint64("reserve_fee_bps", g.ReserveFeeBps),
		zap.Uint64("graduation_threshold", g.GraduationThreshold))
	return g, nil
}

// CreateAsset instantiates a curve for a new mint. The signer is the creator
// and pays the vault's minimum balance. The whole supply is minted into the
// curve vault.
func (s *Service) CreateAsset(ctx context.Context, cred authority.Credential, req CreateAssetRequest) (curve.State, error) {
	msg, err := verify(cred, DomainCreateAsset, req)
	if err != nil {
		return curve.State{}, err
	}
	if req.Mint.IsZero() {
		return curve.State{}, fmt.Errorf("mint address is required")
	}
	creator := cred.Signer

	tx, err := s.store.Begin(req.Mint)
	if err != nil {
		return curve.State{}, err
	}
	defer tx.Rollback()

	if _, err := tx.Curve(req.Mint); err == nil {
		return curve.State{}, fmt.Errorf("%w: %s", ErrAssetExists, req.Mint)
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return curve.State{}, err
	}
	if err := use(tx, cred, msg); err != nil {
		return curve.State{}, err
	}

	g, err := tx.Global()
	if err != nil {
		return curve.State{}, err
	}
	vault, err := s.program.CurveAuthority(req.Mint)
	if err != nil {
		return curve.State{}, err
	}

	st := g.NewCurve(req.Mint, creator)
	if err := tx.Transfer(ledger.NativeAsset, creator, vault, s.opts.VaultMinBalance, creator); err != nil {
		return curve.State{}, fmt.Errorf("fund curve vault: %w", err)
	}
	if err := tx.AdjustBalance(ledger.Record{Asset: req.Mint, Owner: vault}, ledger.Credit(g.TotalSupply)); err != nil {
		return curve.State{}, fmt.Errorf("mint supply: %w", err)
	}
	if err := tx.PutCurve(st); err != nil {
		return curve.State{}, err
	}
	meta := ledger.Metadata{Mint: req.Mint, Name: req.Name, Symbol: req.Symbol, URI: req.URI, Decimals: curve.TokenDecimals}
	if err := tx.PutMetadata(meta); err != nil {
		return curve.State{}, err
	}
	if err := commit(tx); err != nil {
		return curve.State{}, err
	}

	s.logger.Info("Asset created",
		zap.String("mint", req.Mint.String()),
		zap.String("creator", creator.String()),
		zap.String("symbol", req.Symbol),
		zap.Uint64("total_supply", g.TotalSupply))
	if s.metrics != nil {
		s.metrics.RecordAssetCreated()
	}
	s.publish(ctx, events.AssetCreatedEvent{
		BaseEvent: events.NewBase(events.AssetCreated),
		Mint:      req.Mint,
		Creator:   creator,
		Name:      req.Name,
		Symbol:    req.Symbol,
		URI:       req.URI,
	})
	return st, nil
}

// DepositToReserve moves tokens from the authority into the shared reserve.
func (s *Service) DepositToReserve(ctx context.Context, cred authority.Credential, req ReserveRequest) error {
	if req.Amount == 0 {
		return ErrNothingToWithdraw
	}
	tx, err := s.begin(s.program.ReserveAuthority)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	g, err := s.authorize(tx, cred, DomainDepositReserve, req)
	if err != nil {
		return err
	}
	if err := tx.Transfer(req.Mint, g.Authority, g.ReserveAuthority, req.Amount, cred.Signer); err != nil {
		return fmt.Errorf("deposit to reserve: %w", err)
	}
	if err := commit(tx); err != nil {
		return err
	}
	s.logger.Info("Deposited to reserve", zap.String("mint", req.Mint.String()), zap.Uint64("amount", req.Amount))
	return nil
}

// WithdrawFromCurve drains a graduated curve's vault to the authority,
// leaving the vault's minimum native balance. The curve record is unchanged.
func (s *Service) WithdrawFromCurve(ctx context.Context, cred authority.Credential, req WithdrawRequest) (Withdrawal, error) {
	tx, err := s.store.Begin(req.Mint)
	if err != nil {
		return Withdrawal{}, err
	}
	defer tx.Rollback()

	g, err := s.authorize(tx, cred, DomainWithdrawCurve, req)
	if err != nil {
		return Withdrawal{}, err
	}
	st, err := tx.Curve(req.Mint)
	if err != nil {
		return Withdrawal{}, err
	}
	if !st.Complete {
		return Withdrawal{}, fmt.Errorf("%w: %s", ErrCurveNotComplete, req.Mint)
	}
	vault, err := s.program.CurveAuthority(req.Mint)
	if err != nil {
		return Withdrawal{}, err
	}

	var w Withdrawal
	if w.Tokens, err = tx.Balance(req.Mint, vault); err != nil {
		return Withdrawal{}, err
	}
	native, err := tx.Balance(ledger.NativeAsset, vault)
	if err != nil {
		return Withdrawal{}, err
	}
	if native > s.opts.VaultMinBalance {
		w.Native = native - s.opts.VaultMinBalance
	}

	if err := tx.Transfer(req.Mint, vault, g.Authority, w.Tokens, vault); err != nil {
		return Withdrawal{}, fmt.Errorf("withdraw tokens: %w", err)
	}
	if err := tx.Transfer(ledger.NativeAsset, vault, g.Authority, w.Native, vault); err != nil {
		return Withdrawal{}, fmt.Errorf("withdraw native: %w", err)
	}
	if err := commit(tx); err != nil {
		return Withdrawal{}, err
	}

	s.logger.Info("Withdrew graduated curve",
		zap.String("mint", req.Mint.String()),
		zap.Uint64("tokens", w.Tokens),
		zap.Uint64("native", w.Native))
	return w, nil
}

// WithdrawFromReserve moves reserve tokens to the authority.
func (s *Service) WithdrawFromReserve(ctx context.Context, cred authority.Credential, req ReserveRequest) error {
	tx, err := s.begin(s.program.ReserveAuthority)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	g, err := s.authorize(tx, cred, DomainWithdrawReserve, req)
	if err != nil {
		return err
	}
	balance, err := tx.Balance(req.Mint, g.ReserveAuthority)
	if err != nil {
		return err
	}
	if balance == 0 || req.Amount == 0 || req.Amount > balance {
		return fmt.Errorf("%w: reserve holds %d, requested %d", ErrNothingToWithdraw, balance, req.Amount)
	}
	if err := tx.Transfer(req.Mint, g.ReserveAuthority, g.Authority, req.Amount, g.ReserveAuthority); err != nil {
		return fmt.Errorf("withdraw from reserve: %w", err)
	}
	if err := commit(tx); err != nil {
		return err
	}
	s.logger.Info("Withdrew from reserve", zap.String("mint", req.Mint.String()), zap.Uint64("amount", req.Amount))
	return nil
}

// Airdrop credits native units to owner. Only for local and test ledgers.
func (s *Service) Airdrop(ctx context.Context, owner solana.PublicKey, amount uint64) error {
	tx, err := s.store.Begin(owner)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := tx.AdjustBalance(ledger.Record{Asset: ledger.NativeAsset, Owner: owner}, ledger.Credit(amount)); err != nil {
		return err
	}
	if err := commit(tx); err != nil {
		return err
	}
	s.logger.Debug("Airdrop", zap.String("owner", owner.String()), zap.Uint64("amount", amount))
	return nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	if s.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.bus.Publish(ctx, e); err != nil {
		s.logger.Error("Failed to publish event", zap.String("event_type", string(e.Type())), zap.Error(err))
	}
}
