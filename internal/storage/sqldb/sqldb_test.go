package sqldb

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/events"
	"github.com/rovshanmuradov/coinfun/internal/storage"
	"github.com/rovshanmuradov/coinfun/internal/storage/models"
)

func newTestStorage(t *testing.T) storage.Storage {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	s, err := NewStorage(DriverSQLite, dsn, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.RunMigrations())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func trade(id, mint, side string, native uint64, at time.Time) *models.Trade {
	return &models.Trade{
		EventID:      id,
		Mint:         mint,
		Trader:       "trader",
		Side:         side,
		NativeAmount: native,
		TokenAmount:  native * 10,
		PlatformFee:  native / 100,
		ExecutedAt:   at,
	}
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewStorage("mysql", "", zap.NewNop())
	assert.Error(t, err)
}

func TestTradeAmountsRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	tr := trade("big", "A", "buy", 1_000_000_000, time.Now().UTC())
	tr.VirtualToken = 1_073_000_000_000_000
	tr.RealToken = math.MaxInt64
	require.NoError(t, s.SaveTrade(ctx, tr))

	got, err := s.ListTrades(ctx, storage.TradeFilter{Mint: "A"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1_000_000_000), got[0].NativeAmount)
	assert.Equal(t, uint64(1_073_000_000_000_000), got[0].VirtualToken)
	assert.Equal(t, uint64(math.MaxInt64), got[0].RealToken)
	assert.Zero(t, got[0].ReserveFee)
}

func TestTradesFilterAndStats(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveTrade(ctx, trade("e1", "A", "buy", 1000, base)))
	require.NoError(t, s.SaveTrade(ctx, trade("e2", "A", "sell", 400, base.Add(time.Minute))))
	require.NoError(t, s.SaveTrade(ctx, trade("e3", "B", "buy", 700, base.Add(2*time.Minute))))
	// повтор события не создает дубликат
	require.NoError(t, s.SaveTrade(ctx, trade("e1", "A", "buy", 1000, base)))

	all, err := s.ListTrades(ctx, storage.TradeFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "e3", all[0].EventID, "newest first")

	onlyA, err := s.ListTrades(ctx, storage.TradeFilter{Mint: "A"})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	sells, err := s.ListTrades(ctx, storage.TradeFilter{Side: "sell"})
	require.NoError(t, err)
	require.Len(t, sells, 1)
	assert.Equal(t, uint64(400), sells[0].NativeAmount)

	window, err := s.ListTrades(ctx, storage.TradeFilter{From: base.Add(30 * time.Second), To: base.Add(90 * time.Second)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "e2", window[0].EventID)

	limited, err := s.ListTrades(ctx, storage.TradeFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "e2", limited[0].EventID)

	stats, err := s.AssetStats(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TradeCount)
	assert.Equal(t, int64(1), stats.BuyCount)
	assert.Equal(t, int64(1), stats.SellCount)
	assert.Equal(t, uint64(1400), stats.NativeVolume)
	assert.Equal(t, uint64(14), stats.PlatformFees)

	empty, err := s.AssetStats(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, empty.TradeCount)
}

func TestAssetLifecycle(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetAsset(ctx, "A")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.True(t, errors.Is(s.MarkGraduated(ctx, "A", "auth", time.Now()), storage.ErrNotFound))

	require.NoError(t, s.SaveAsset(ctx, &models.Asset{Mint: "A", Creator: "C", Name: "Alpha", Symbol: "ALP"}))
	require.NoError(t, s.SaveAsset(ctx, &models.Asset{Mint: "A", Creator: "other"}))

	got, err := s.GetAsset(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "C", got.Creator)
	assert.False(t, got.Graduated)

	at := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkGraduated(ctx, "A", "auth", at))
	got, err = s.GetAsset(ctx, "A")
	require.NoError(t, err)
	assert.True(t, got.Graduated)
	assert.Equal(t, "auth", got.CurveAuthority)
	require.NotNil(t, got.GraduatedAt)
	assert.True(t, at.Equal(*got.GraduatedAt))
}

func TestIndexerPersistsNotifications(t *testing.T) {
	s := newTestStorage(t)
	bus := events.NewBus(zap.NewNop(), 16)
	defer bus.Shutdown(context.Background())

	ix := storage.NewIndexer(s, zap.NewNop())
	ix.Attach(bus)

	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	ctx := context.Background()

	require.NoError(t, bus.PublishSync(ctx, events.AssetCreatedEvent{
		BaseEvent: events.NewBase(events.AssetCreated),
		Mint:      mint, Creator: creator, Name: "Alpha", Symbol: "ALP",
	}))
	require.NoError(t, bus.PublishSync(ctx, events.TradeEvent{
		BaseEvent: events.NewBase(events.TradeExecuted),
		Mint:      mint, Trader: creator, Side: "buy",
		NativeAmount: 5000, TokenAmount: 42, PlatformFee: 50,
	}))
	require.NoError(t, bus.PublishSync(ctx, events.CurveCompleteEvent{
		BaseEvent: events.NewBase(events.CurveCompleted),
		Mint:      mint, CurveAuthority: authority,
	}))

	trades, err := s.ListTrades(ctx, storage.TradeFilter{Mint: mint.String()})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, uint64(42), trades[0].TokenAmount)

	asset, err := s.GetAsset(ctx, mint.String())
	require.NoError(t, err)
	assert.True(t, asset.Graduated)
	assert.Equal(t, authority.String(), asset.CurveAuthority)

	ix.Detach()
	require.NoError(t, bus.PublishSync(ctx, events.TradeEvent{
		BaseEvent: events.NewBase(events.TradeExecuted),
		Mint:      mint, Trader: creator, Side: "sell",
	}))
	trades, err = s.ListTrades(ctx, storage.TradeFilter{Mint: mint.String()})
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}
