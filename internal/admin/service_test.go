package admin

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/authority"
	"github.com/rovshanmuradov/coinfun/internal/curve"
	"github.com/rovshanmuradov/coinfun/internal/events"
	"github.com/rovshanmuradov/coinfun/internal/ledger"
)

type recorder struct{ events []events.Event }

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

type fixture struct {
	svc     *Service
	store   *ledger.Store
	program *authority.Program
	bus     *recorder
	admin   solana.PrivateKey
	params  ConfigParams
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := ledger.OpenMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{
		store:   store,
		program: authority.NewProgram(solana.NewWallet().PublicKey()),
		bus:     &recorder{},
		admin:   solana.NewWallet().PrivateKey,
	}
	f.svc = NewService(store, f.program, f.bus, nil, zap.NewNop(), Options{VaultMinBalance: 1_000})
	f.params = ConfigParams{
		Authority:                    f.admin.PublicKey(),
		FeeRecipient:                 solana.NewWallet().PublicKey(),
		InitialVirtualTokenReserves:  1_073_000_000_000_000,
		InitialVirtualNativeReserves: 30_000_000_000,
		TotalSupply:                  1_000_000_000_000_000,
		PlatformFeeBps:               100,
		ReserveFeeBps:                100,
		GraduationThreshold:          85_000_000_000,
	}
	return f
}

func (f *fixture) sign(t *testing.T, key solana.PrivateKey, domain string, v interface{}) authority.Credential {
	t.Helper()
	cred, err := authority.SignMessage(key, domain, v)
	require.NoError(t, err)
	return cred
}

func (f *fixture) init(t *testing.T) curve.Global {
	t.Helper()
	g, err := f.svc.InitializeConfig(context.Background(), f.sign(t, f.admin, DomainInitialize, f.params), f.params)
	require.NoError(t, err)
	return g
}

func (f *fixture) create(t *testing.T, creator solana.PrivateKey) solana.PublicKey {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.svc.Airdrop(ctx, creator.PublicKey(), 10_000))
	req := CreateAssetRequest{Mint: solana.NewWallet().PublicKey(), Name: "Coin", Symbol: "CN", URI: "ipfs://coin"}
	_, err := f.svc.CreateAsset(ctx, f.sign(t, creator, DomainCreateAsset, req), req)
	require.NoError(t, err)
	return req.Mint
}

func TestInitializeConfig(t *testing.T) {
	f := newFixture(t)
	g := f.init(t)

	reserve, err := f.program.ReserveAuthority()
	require.NoError(t, err)
	assert.Equal(t, reserve, g.ReserveAuthority)
	assert.Equal(t, f.admin.PublicKey(), g.Authority)

	stored, err := f.store.Global()
	require.NoError(t, err)
	assert.Equal(t, g, stored)

	_, err = f.svc.InitializeConfig(context.Background(), f.sign(t, f.admin, DomainInitialize, f.params), f.params)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestInitializeConfigRejectsFeesAboveCap(t *testing.T) {
	f := newFixture(t)
	f.params.PlatformFeeBps, f.params.ReserveFeeBps = 2_000, 1_001

	_, err := f.svc.InitializeConfig(context.Background(), f.sign(t, f.admin, DomainInitialize, f.params), f.params)
	assert.ErrorIs(t, err, curve.ErrFeeTooHigh)

	_, err = f.store.Global()
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestUpdateConfig(t *testing.T) {
	f := newFixture(t)
	before := f.init(t)
	ctx := context.Background()

	update := f.params
	update.PlatformFeeBps, update.ReserveFeeBps = 2_000, 1_000
	update.Authority = solana.NewWallet().PublicKey()

	stranger := solana.NewWallet().PrivateKey
	_, err := f.svc.UpdateConfig(ctx, f.sign(t, stranger, DomainUpdateConfig, update), update)
	assert.ErrorIs(t, err, authority.ErrUnauthorized)

	_, err = f.svc.UpdateConfig(ctx, f.sign(t, f.admin, DomainInitialize, update), update)
	assert.ErrorIs(t, err, authority.ErrUnauthorized, "credential for another operation")

	tooHigh := update
	tooHigh.ReserveFeeBps = 1_001
	_, err = f.svc.UpdateConfig(ctx, f.sign(t, f.admin, DomainUpdateConfig, tooHigh), tooHigh)
	assert.ErrorIs(t, err, curve.ErrFeeTooHigh)

	g, err := f.svc.UpdateConfig(ctx, f.sign(t, f.admin, DomainUpdateConfig, update), update)
	require.NoError(t, err)
	assert.Equal(t, update.Authority, g.Authority)
	assert.Equal(t, uint64(3_000), g.PlatformFeeBps+g.ReserveFeeBps)
	assert.Equal(t, before.ReserveAuthority, g.ReserveAuthority)
}

func TestCreateAsset(t *testing.T) {
	f := newFixture(t)
	g := f.init(t)
	creator := solana.NewWallet().PrivateKey
	mint := f.create(t, creator)

	st, err := f.store.Curve(mint)
	require.NoError(t, err)
	assert.Equal(t, g.TotalSupply, st.RealTokenReserves)
	assert.Zero(t, st.RealNativeReserves)
	assert.Equal(t, g.InitialVirtualNativeReserves, st.VirtualNativeReserves)
	assert.Equal(t, creator.PublicKey(), st.Creator)
	assert.False(t, st.Complete)

	vault, err := f.program.CurveAuthority(mint)
	require.NoError(t, err)
	tokens, err := f.store.Balance(mint, vault)
	require.NoError(t, err)
	assert.Equal(t, g.TotalSupply, tokens)
	native, err := f.store.Balance(ledger.NativeAsset, vault)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), native)

	meta, err := f.store.Metadata(mint)
	require.NoError(t, err)
	assert.Equal(t, "CN", meta.Symbol)
	assert.Equal(t, uint8(curve.TokenDecimals), meta.Decimals)

	require.Len(t, f.bus.events, 1)
	created := f.bus.events[0].(events.AssetCreatedEvent)
	assert.Equal(t, mint, created.Mint)
	assert.Equal(t, creator.PublicKey(), created.Creator)

	req := CreateAssetRequest{Mint: mint, Name: "Again"}
	_, err = f.svc.CreateAsset(context.Background(), f.sign(t, creator, DomainCreateAsset, req), req)
	assert.ErrorIs(t, err, ErrAssetExists)
}

func TestCreateAssetRequiresConfig(t *testing.T) {
	f := newFixture(t)
	creator := solana.NewWallet().PrivateKey
	req := CreateAssetRequest{Mint: solana.NewWallet().PublicKey()}
	_, err := f.svc.CreateAsset(context.Background(), f.sign(t, creator, DomainCreateAsset, req), req)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestWithdrawFromCurveRequiresGraduation(t *testing.T) {
	f := newFixture(t)
	g := f.init(t)
	mint := f.create(t, solana.NewWallet().PrivateKey)
	ctx := context.Background()
	req := WithdrawRequest{Mint: mint}

	_, err := f.svc.WithdrawFromCurve(ctx, f.sign(t, f.admin, DomainWithdrawCurve, req), req)
	assert.ErrorIs(t, err, ErrCurveNotComplete)

	// graduate the curve and put some native in its vault
	vault, err := f.program.CurveAuthority(mint)
	require.NoError(t, err)
	tx, err := f.store.Begin(mint)
	require.NoError(t, err)
	st, err := tx.Curve(mint)
	require.NoError(t, err)
	st.Complete = true
	require.NoError(t, tx.PutCurve(st))
	require.NoError(t, tx.AdjustBalance(ledger.Record{Asset: ledger.NativeAsset, Owner: vault}, ledger.Credit(5_000)))
	require.NoError(t, tx.Commit())

	_, err = f.svc.WithdrawFromCurve(ctx, f.sign(t, solana.NewWallet().PrivateKey, DomainWithdrawCurve, req), req)
	assert.ErrorIs(t, err, authority.ErrUnauthorized)

	w, err := f.svc.WithdrawFromCurve(ctx, f.sign(t, f.admin, DomainWithdrawCurve, req), req)
	require.NoError(t, err)
	assert.Equal(t, Withdrawal{Tokens: g.TotalSupply, Native: 5_000}, w)

	native, err := f.store.Balance(ledger.NativeAsset, vault)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), native, "vault keeps its minimum balance")

	got, err := f.store.Balance(mint, g.Authority)
	require.NoError(t, err)
	assert.Equal(t, g.TotalSupply, got)

	after, err := f.store.Curve(mint)
	require.NoError(t, err)
	assert.Equal(t, st, after)
}

func TestReserveDepositAndWithdraw(t *testing.T) {
	f := newFixture(t)
	g := f.init(t)
	mint := f.create(t, solana.NewWallet().PrivateKey)
	ctx := context.Background()

	// give the authority some tokens from the curve vault
	vault, err := f.program.CurveAuthority(mint)
	require.NoError(t, err)
	tx, err := f.store.Begin(mint)
	require.NoError(t, err)
	require.NoError(t, tx.Transfer(mint, vault, g.Authority, 500, vault))
	require.NoError(t, tx.Commit())

	zero := ReserveRequest{Mint: mint}
	assert.ErrorIs(t, f.svc.DepositToReserve(ctx, f.sign(t, f.admin, DomainDepositReserve, zero), zero), ErrNothingToWithdraw)
	assert.ErrorIs(t, f.svc.WithdrawFromReserve(ctx, f.sign(t, f.admin, DomainWithdrawReserve, zero), zero), ErrNothingToWithdraw)

	dep := ReserveRequest{Mint: mint, Amount: 300}
	require.NoError(t, f.svc.DepositToReserve(ctx, f.sign(t, f.admin, DomainDepositReserve, dep), dep))

	tests := []struct {
		name   string
		amount uint64
		want   error
	}{
		{"zero", 0, ErrNothingToWithdraw},
		{"more than held", 301, ErrNothingToWithdraw},
		{"part", 100, nil},
		{"rest", 200, nil},
		{"empty reserve", 1, ErrNothingToWithdraw},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ReserveRequest{Mint: mint, Amount: tt.amount}
			err := f.svc.WithdrawFromReserve(ctx, f.sign(t, f.admin, DomainWithdrawReserve, req), req)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	got, err := f.store.Balance(mint, g.Authority)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), got)
}

func TestSignedAdminRequestsAreAcceptedOnce(t *testing.T) {
	f := newFixture(t)
	g := f.init(t)
	mint := f.create(t, solana.NewWallet().PrivateKey)
	ctx := context.Background()

	vault, err := f.program.CurveAuthority(mint)
	require.NoError(t, err)
	tx, err := f.store.Begin(mint)
	require.NoError(t, err)
	require.NoError(t, tx.Transfer(mint, vault, g.Authority, 500, vault))
	require.NoError(t, tx.Commit())

	dep := ReserveRequest{Mint: mint, Amount: 400, Nonce: 1}
	depCred := f.sign(t, f.admin, DomainDepositReserve, dep)
	require.NoError(t, f.svc.DepositToReserve(ctx, depCred, dep))
	assert.ErrorIs(t, f.svc.DepositToReserve(ctx, depCred, dep), authority.ErrUnauthorized)

	w := ReserveRequest{Mint: mint, Amount: 100, Nonce: 1}
	wCred := f.sign(t, f.admin, DomainWithdrawReserve, w)
	require.NoError(t, f.svc.WithdrawFromReserve(ctx, wCred, w))
	assert.ErrorIs(t, f.svc.WithdrawFromReserve(ctx, wCred, w), authority.ErrUnauthorized)

	got, err := f.store.Balance(mint, g.ReserveAuthority)
	require.NoError(t, err)
	assert.Equal(t, uint64(300), got)

	w.Nonce = 2
	require.NoError(t, f.svc.WithdrawFromReserve(ctx, f.sign(t, f.admin, DomainWithdrawReserve, w), w))

	// повтор старого обновления не откатывает конфиг
	lowFees := f.params
	lowFees.Nonce = 1
	lowCred := f.sign(t, f.admin, DomainUpdateConfig, lowFees)
	_, err = f.svc.UpdateConfig(ctx, lowCred, lowFees)
	require.NoError(t, err)

	highFees := f.params
	highFees.PlatformFeeBps, highFees.Nonce = 500, 2
	_, err = f.svc.UpdateConfig(ctx, f.sign(t, f.admin, DomainUpdateConfig, highFees), highFees)
	require.NoError(t, err)

	_, err = f.svc.UpdateConfig(ctx, lowCred, lowFees)
	assert.ErrorIs(t, err, authority.ErrUnauthorized)
	stored, err := f.store.Global()
	require.NoError(t, err)
	assert.Equal(t, uint64(500), stored.PlatformFeeBps)
}
