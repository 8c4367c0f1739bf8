// =============================
// File: internal/curve/errors.go
// =============================
package curve

import (
	"errors"
	"fmt"
)

var (
	ErrArithmeticOverflow  = errors.New("arithmetic overflow")
	ErrArithmeticUnderflow = errors.New("arithmetic underflow")
	ErrCurveComplete       = errors.New("bonding curve is complete")
	ErrZeroAmount          = errors.New("amount must be greater than zero")
	ErrSlippageExceeded    = errors.New("slippage exceeded")

	// ErrInsufficientBacking means the real reserves cannot cover an output the
	// virtual reserves allow. It indicates corrupted state, not a user error.
	ErrInsufficientBacking = errors.New("real reserves cannot cover output")

	ErrFeeTooHigh                       = errors.New("fee basis points cannot exceed 3000 (30%)")
	ErrInvalidTokenReserveConfiguration = errors.New("invalid token reserve configuration")
)

// SlippageExceededError carries the bound the caller asked for and the amount
// the curve would actually produce.
type SlippageExceededError struct {
	Side    Side
	Minimum uint64
	Actual  uint64
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded on %s: minimum %d, actual %d", e.Side, e.Minimum, e.Actual)
}

func (e *SlippageExceededError) Is(target error) bool {
	return target == ErrSlippageExceeded
}
