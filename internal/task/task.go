// =============================================
// File: internal/task/task.go
// =============================================
package task

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/coinfun/internal/curve"
	"github.com/rovshanmuradov/coinfun/internal/types"
)

// OperationType defines the supported operation types
type OperationType string

const (
	OperationBuy  OperationType = "buy"
	OperationSell OperationType = "sell"
)

// Side maps the operation onto a curve trade side.
func (o OperationType) Side() (curve.Side, error) {
	return curve.ParseSide(string(o))
}

// Task is one scripted trade. For buys Amount is native units to spend,
// for sells it is the number of tokens to sell.
type Task struct {
	ID          int
	TaskName    string
	WalletName  string
	Operation   OperationType
	Mint        solana.PublicKey
	Amount      uint64
	SlippageBps uint64
	CreatedAt   time.Time
}

// Validate checks if the task has valid parameters
func (t *Task) Validate() error {
	if t.TaskName == "" {
		return fmt.Errorf("task name cannot be empty")
	}
	if t.WalletName == "" {
		return fmt.Errorf("wallet name cannot be empty")
	}
	if t.Mint.IsZero() {
		return fmt.Errorf("mint cannot be empty")
	}
	if _, err := t.Operation.Side(); err != nil {
		return fmt.Errorf("invalid operation: %s", t.Operation)
	}
	if t.Amount == 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	return t.Slippage().Validate()
}

// Slippage is the bound applied to the task's quote.
func (t *Task) Slippage() types.SlippageConfig {
	return types.SlippageConfig{Type: types.SlippageBps, Value: t.SlippageBps}
}
