package task

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/coinfun/internal/curve"
	"github.com/rovshanmuradov/coinfun/internal/types"
)

func writeTasks(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadTasksYAML(t *testing.T) {
	mint := solana.NewWallet().PublicKey().String()
	path := writeTasks(t, `
tasks:
  - task_name: open
    wallet: main
    operation: buy
    mint: `+mint+`
    amount: 1000000000
    slippage_bps: 50
  - task_name: close
    wallet: main
    operation: sell
    asset: `+mint+`
    amount: 5000
  - task_name: bad-op
    wallet: main
    operation: snipe
    mint: `+mint+`
    amount: 1
  - task_name: zero
    wallet: main
    operation: buy
    mint: `+mint+`
    amount: 0
  - task_name: bad-mint
    wallet: main
    operation: buy
    mint: xyz
    amount: 1
  - task_name: too-loose
    wallet: main
    operation: buy
    mint: `+mint+`
    amount: 1
    slippage_bps: 20000
`)

	tasks, err := NewManager(zap.NewNop()).LoadTasksYAML(path)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, "open", tasks[0].TaskName)
	assert.Equal(t, uint64(50), tasks[0].SlippageBps)
	side, err := tasks[0].Operation.Side()
	require.NoError(t, err)
	assert.Equal(t, curve.SideBuy, side)

	assert.Equal(t, OperationSell, tasks[1].Operation)
	assert.Equal(t, mint, tasks[1].Mint.String(), "asset is an alias for mint")
	assert.Equal(t, uint64(DefaultSlippageBps), tasks[1].SlippageBps)
	assert.Equal(t, types.SlippageConfig{Type: types.SlippageBps, Value: DefaultSlippageBps}, tasks[1].Slippage())
}

func TestLoadTasksYAMLErrors(t *testing.T) {
	m := NewManager(zap.NewNop())

	_, err := m.LoadTasksYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = m.LoadTasksYAML(writeTasks(t, "tasks: []\n"))
	assert.ErrorContains(t, err, "no tasks found")

	_, err = m.LoadTasksYAML(writeTasks(t, "tasks:\n  - task_name: x\n    operation: buy\n"))
	assert.ErrorContains(t, err, "no valid tasks")

	_, err = m.LoadTasksYAML(writeTasks(t, "tasks: [unclosed\n"))
	assert.ErrorContains(t, err, "parse YAML")
}
