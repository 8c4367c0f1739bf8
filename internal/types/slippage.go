// internal/types/slippage.go
package types

import (
	"fmt"

	"github.com/holiman/uint256"
)

// SlippageType определяет тип политики проскальзывания
type SlippageType string

const (
	// SlippageFixed использует фиксированное значение minAmountOut
	SlippageFixed SlippageType = "fixed"
	// SlippageBps допускает отклонение от котировки в базисных пунктах
	SlippageBps SlippageType = "bps"
	// SlippageNone не использует ограничение minAmountOut
	SlippageNone SlippageType = "none"
)

const maxBps = 10_000

// SlippageConfig конфигурирует политику проскальзывания
type SlippageConfig struct {
	Type SlippageType `json:"type" yaml:"type"`
	// Value: для fixed точный minAmountOut, для bps допуск (100 = 1%)
	Value uint64 `json:"value" yaml:"value"`
}

// Validate проверяет параметры политики.
func (c SlippageConfig) Validate() error {
	switch c.Type {
	case SlippageFixed, SlippageNone:
		return nil
	case SlippageBps:
		if c.Value > maxBps {
			return fmt.Errorf("slippage %d bps exceeds %d", c.Value, maxBps)
		}
		return nil
	default:
		return fmt.Errorf("unknown slippage type %q", c.Type)
	}
}

// MinAmountOut вычисляет minAmountOut для ожидаемого выхода котировки.
// Результат округляется вниз, чтобы котировка всегда проходила.
func (c SlippageConfig) MinAmountOut(expected uint64) uint64 {
	switch c.Type {
	case SlippageFixed:
		return c.Value
	case SlippageBps:
		if c.Value >= maxBps {
			return 0
		}
		v := new(uint256.Int).Mul(uint256.NewInt(expected), uint256.NewInt(maxBps-c.Value))
		return v.Div(v, uint256.NewInt(maxBps)).Uint64()
	default:
		return 0
	}
}
