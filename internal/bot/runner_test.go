package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/config"
	"github.com/rovshanmuradov/coinfun/internal/ledger"
	"github.com/rovshanmuradov/coinfun/internal/storage"
	"github.com/rovshanmuradov/coinfun/internal/wallet"
)

const tasksTemplate = `tasks:
  - task_name: buy-1
    wallet: alice
    operation: buy
    mint: %[1]s
    amount: 1000000000
  - task_name: sell-1
    wallet: alice
    operation: sell
    mint: %[1]s
    amount: 1000000000
`

func localConfig(t *testing.T) (*config.Config, solana.PublicKey, *wallet.Wallet) {
	t.Helper()
	dir := t.TempDir()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.API.Listen = ""
	cfg.Metrics.Listen = ""
	cfg.Workers = 1
	cfg.Storage.Driver = config.StorageSQLite
	cfg.Storage.DSN = filepath.Join(dir, "history.db")
	cfg.JournalFile = filepath.Join(dir, "journal.csv")
	cfg.Bootstrap.Enabled = true

	alice, err := wallet.Generate("alice")
	require.NoError(t, err)
	cfg.WalletsFile = filepath.Join(dir, "wallets.csv")
	require.NoError(t, wallet.SaveWallets(cfg.WalletsFile, map[string]*wallet.Wallet{"alice": alice}))

	mint := solana.NewWallet().PublicKey()
	cfg.TasksFile = filepath.Join(dir, "tasks.yaml")
	require.NoError(t, os.WriteFile(cfg.TasksFile, []byte(fmt.Sprintf(tasksTemplate, mint)), 0o644))
	return cfg, mint, alice
}

func TestRunnerExecutesTasksOnBootstrappedLedger(t *testing.T) {
	cfg, mint, alice := localConfig(t)

	r, err := NewRunner(cfg, zap.NewNop())
	require.NoError(t, err)
	defer r.Close()

	require.Len(t, r.Tasks(), 2)
	require.NoError(t, r.Run(context.Background()))

	// оператор сгенерирован и создал кривую
	require.Contains(t, r.Wallets(), cfg.Bootstrap.Operator)
	view, err := r.Engine().Curve(mint)
	require.NoError(t, err)
	assert.True(t, view.State.Creator.Equals(r.Wallets()[cfg.Bootstrap.Operator].PublicKey))

	held, err := r.Ledger().Balance(mint, alice.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, view.State.Distributed(), held)

	native, err := r.Ledger().Balance(ledger.NativeAsset, alice.PublicKey)
	require.NoError(t, err)
	assert.Less(t, native, cfg.Bootstrap.Airdrop)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Bus().Shutdown(ctx))

	trades, err := r.History().ListTrades(ctx, storage.TradeFilter{Mint: mint.String()})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "sell", trades[0].Side)
	assert.Equal(t, "buy", trades[1].Side)

	asset, err := r.History().GetAsset(ctx, mint.String())
	require.NoError(t, err)
	assert.False(t, asset.Graduated)

	require.NoError(t, r.Close())
	journal, err := os.ReadFile(cfg.JournalFile)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(journal)), "\n"), 3)
}

func TestBootstrapIsRepeatable(t *testing.T) {
	cfg, mint, _ := localConfig(t)
	cfg.Storage.Driver = ""
	cfg.JournalFile = ""

	r, err := NewRunner(cfg, zap.NewNop())
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	require.NoError(t, r.Bootstrap(ctx))
	first, err := r.Ledger().Curve(mint)
	require.NoError(t, err)

	require.NoError(t, r.Bootstrap(ctx))
	second, err := r.Ledger().Curve(mint)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	curves, err := r.Engine().Curves()
	require.NoError(t, err)
	assert.Len(t, curves, 1)
}

func TestNewRunnerReleasesResourcesOnError(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *config.Config, dir string)
	}{
		{
			name: "missing tasks file",
			mutate: func(cfg *config.Config, dir string) {
				cfg.TasksFile = filepath.Join(dir, "missing.yaml")
			},
		},
		{
			name: "missing wallets file",
			mutate: func(cfg *config.Config, dir string) {
				cfg.WalletsFile = filepath.Join(dir, "missing.csv")
			},
		},
		{
			name: "unsupported storage driver",
			mutate: func(cfg *config.Config, _ string) {
				cfg.Storage.Driver = "mysql"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _, _ := localConfig(t)
			dir := t.TempDir()
			cfg.Ledger.Driver = config.LedgerLevelDB
			cfg.Ledger.Path = filepath.Join(dir, "ledger")
			tt.mutate(cfg, dir)

			var (
				r   *Runner
				err error
			)
			require.NotPanics(t, func() {
				r, err = NewRunner(cfg, zap.NewNop())
			})
			require.Error(t, err)
			assert.Nil(t, r)

			// файл блокировки leveldb освобождён
			store, err := ledger.Open(cfg.Ledger.Path, zap.NewNop())
			require.NoError(t, err)
			require.NoError(t, store.Close())
		})
	}
}
