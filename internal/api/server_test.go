package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/admin"
	"github.com/rovshanmuradov/coinfun/internal/authority"
	"github.com/rovshanmuradov/coinfun/internal/curve"
	"github.com/rovshanmuradov/coinfun/internal/ledger"
	"github.com/rovshanmuradov/coinfun/internal/settlement"
	"github.com/rovshanmuradov/coinfun/internal/storage"
	"github.com/rovshanmuradov/coinfun/internal/storage/models"
	"github.com/rovshanmuradov/coinfun/internal/storage/sqldb"
)

type testEnv struct {
	server *httptest.Server
	admin  *admin.Service
	store  *ledger.Store
	mint   solana.PublicKey
}

func newTestEnv(t *testing.T, history storage.Storage) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := ledger.OpenMemory(zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	program := authority.NewProgram(solana.NewWallet().PublicKey())
	svc := admin.NewService(store, program, nil, nil, zap.NewNop(), admin.Options{})
	engine := settlement.NewEngine(store, program, nil, nil, zap.NewNop())

	owner := solana.NewWallet().PrivateKey
	params := admin.ConfigParams{
		Authority:                    owner.PublicKey(),
		FeeRecipient:                 solana.NewWallet().PublicKey(),
		InitialVirtualTokenReserves:  1_000_000_000,
		InitialVirtualNativeReserves: 30_000_000_000,
		TotalSupply:                  800_000_000,
		GraduationThreshold:          1_000_000_000_000,
	}
	cred, err := authority.SignMessage(owner, admin.DomainInitialize, params)
	require.NoError(t, err)
	_, err = svc.InitializeConfig(ctx, cred, params)
	require.NoError(t, err)

	creator := solana.NewWallet().PrivateKey
	req := admin.CreateAssetRequest{Mint: solana.NewWallet().PublicKey(), Name: "Test", Symbol: "TST"}
	cred, err = authority.SignMessage(creator, admin.DomainCreateAsset, req)
	require.NoError(t, err)
	_, err = svc.CreateAsset(ctx, cred, req)
	require.NoError(t, err)

	srv := httptest.NewServer(New(engine, history, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, admin: svc, store: store, mint: req.Mint}
}

func (e *testEnv) get(t *testing.T, path string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *testEnv) post(t *testing.T, body interface{}, out interface{}) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+"/trades", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func signedTrade(t *testing.T, key solana.PrivateKey, req settlement.TradeRequest) tradeRequest {
	t.Helper()
	order, err := settlement.SignOrder(key, req)
	require.NoError(t, err)
	return tradeRequest{
		Mint:      req.Mint.String(),
		Trader:    req.Trader.String(),
		Side:      req.Side.String(),
		Amount:    req.Amount,
		MinOut:    req.MinOut,
		Nonce:     req.Nonce,
		Signature: order.Credential.Signature.String(),
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCurveEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)

	var c curveResponse
	require.Equal(t, http.StatusOK, env.get(t, "/curves/"+env.mint.String(), &c))
	assert.Equal(t, env.mint.String(), c.Mint)
	assert.Equal(t, uint64(800_000_000), c.RealTokenReserves)
	assert.Equal(t, "active", c.Phase)
	assert.Zero(t, c.Progress)

	var all []curveResponse
	require.Equal(t, http.StatusOK, env.get(t, "/curves", &all))
	assert.Len(t, all, 1)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/curves/not-a-key", nil))
	var e errorResponse
	assert.Equal(t, http.StatusNotFound, env.get(t, "/curves/"+solana.NewWallet().PublicKey().String(), &e))
	assert.NotEmpty(t, e.Error)
}

func TestQuoteEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	base := "/curves/" + env.mint.String() + "/quote"

	var q quoteResponse
	require.Equal(t, http.StatusOK, env.get(t, base+"?side=buy&amount=1000000000", &q))
	assert.Equal(t, uint64(32_258_064), q.TokenAmount)
	assert.Equal(t, uint64(1_000_000_000), q.NativeAmount)

	assert.Equal(t, http.StatusBadRequest, env.get(t, base+"?side=hold&amount=1", nil))
	assert.Equal(t, http.StatusBadRequest, env.get(t, base+"?side=buy&amount=-1", nil))
	assert.Equal(t, http.StatusBadRequest, env.get(t, base+"?side=buy&amount=0", nil))
}

func TestSubmitTrade(t *testing.T) {
	env := newTestEnv(t, nil)
	trader := solana.NewWallet().PrivateKey
	require.NoError(t, env.admin.Airdrop(context.Background(), trader.PublicKey(), 2_000_000_000))

	req := settlement.TradeRequest{
		Mint:   env.mint,
		Trader: trader.PublicKey(),
		Side:   curve.SideBuy,
		Amount: 1_000_000_000,
		MinOut: 32_258_064,
		Nonce:  3,
	}

	tests := []struct {
		name   string
		body   tradeRequest
		status int
	}{
		{
			name: "signed by someone else",
			body: func() tradeRequest {
				b := signedTrade(t, solana.NewWallet().PrivateKey, req)
				b.Trader = trader.PublicKey().String()
				return b
			}(),
			status: http.StatusUnauthorized,
		},
		{
			name: "zero amount",
			body: func() tradeRequest {
				r := req
				r.Amount = 0
				return signedTrade(t, trader, r)
			}(),
			status: http.StatusBadRequest,
		},
		{
			name: "slippage",
			body: func() tradeRequest {
				r := req
				r.MinOut = 32_258_065
				return signedTrade(t, trader, r)
			}(),
			status: http.StatusBadRequest,
		},
		{
			name: "sell more than held",
			body: func() tradeRequest {
				r := req
				r.Side = curve.SideSell
				r.Amount = 10
				r.MinOut = 0
				return signedTrade(t, trader, r)
			}(),
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "malformed signature",
			body:   tradeRequest{Mint: env.mint.String(), Trader: trader.PublicKey().String(), Side: "buy", Amount: 1, Signature: "zz"},
			status: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, env.post(t, tt.body, nil))
		})
	}

	var rcpt receiptResponse
	body := signedTrade(t, trader, req)
	require.Equal(t, http.StatusOK, env.post(t, body, &rcpt))
	assert.Equal(t, uint64(32_258_064), rcpt.TokenAmount)
	assert.Equal(t, "buy", rcpt.Side)
	assert.Equal(t, uint64(1_000_000_000), rcpt.Curve.RealNativeReserves)
	assert.False(t, rcpt.Graduated)

	// повторная отправка той же подписи
	assert.Equal(t, http.StatusUnauthorized, env.post(t, body, nil))
	native, err := env.store.Balance(ledger.NativeAsset, trader.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), native)
}

func TestListTrades(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, env.get(t, "/trades", nil))

	history, err := sqldb.NewStorage(sqldb.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, history.RunMigrations())
	t.Cleanup(func() { _ = history.Close() })

	ctx := context.Background()
	for i, mint := range []string{"A", "A", "B"} {
		require.NoError(t, history.SaveTrade(ctx, &models.Trade{
			EventID:      fmt.Sprintf("e%d", i),
			Mint:         mint,
			Trader:       "t",
			Side:         "buy",
			NativeAmount: uint64(100 * (i + 1)),
			ExecutedAt:   time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	env = newTestEnv(t, history)
	var trades []tradeResponse
	require.Equal(t, http.StatusOK, env.get(t, "/trades?mint=A", &trades))
	require.Len(t, trades, 2)
	assert.Equal(t, uint64(200), trades[0].NativeAmount)

	require.Equal(t, http.StatusOK, env.get(t, "/trades?limit=1", &trades))
	assert.Len(t, trades, 1)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/trades?limit=x", nil))
}
