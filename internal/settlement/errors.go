// internal/settlement/errors.go
package settlement

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/coinfun/internal/authority"
	"github.com/rovshanmuradov/coinfun/internal/curve"
	"github.com/rovshanmuradov/coinfun/internal/ledger"
	"github.com/rovshanmuradov/coinfun/internal/metrics"
)

// IntegrityError marks a trade aborted because the curve's records are
// inconsistent with its custody. It is never retried.
type IntegrityError struct {
	Mint solana.PublicKey
	Err  error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("curve %s integrity fault: %v", e.Mint, e.Err)
}

func (e *IntegrityError) Unwrap() error { return e.Err }

// IsUserError reports whether err was caused by the request rather than by
// the system: the trader can fix it by resubmitting different parameters.
func IsUserError(err error) bool {
	var integrity *IntegrityError
	if errors.As(err, &integrity) {
		return false
	}
	switch {
	case errors.Is(err, curve.ErrSlippageExceeded),
		errors.Is(err, curve.ErrCurveComplete),
		errors.Is(err, curve.ErrZeroAmount),
		errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrNotFound),
		errors.Is(err, ledger.ErrMessageReplayed),
		errors.Is(err, authority.ErrUnauthorized),
		errors.Is(err, authority.ErrInvalidSignature):
		return true
	}
	return false
}

// status maps a trade error to its metrics label.
func status(err error) string {
	var integrity *IntegrityError
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.As(err, &integrity):
		return metrics.StatusIntegrity
	case errors.Is(err, ledger.ErrCurveBusy):
		return metrics.StatusBusy
	case IsUserError(err):
		return metrics.StatusRejected
	default:
		return metrics.StatusFailed
	}
}
