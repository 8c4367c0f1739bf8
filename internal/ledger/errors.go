// internal/ledger/errors.go
package ledger

import "errors"

var (
	ErrNotFound            = errors.New("ledger record not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAuthorityInvalid    = errors.New("authority does not control the source record")
	ErrBalanceOverflow     = errors.New("balance overflow")
	ErrMessageReplayed     = errors.New("signed message already used")

	// ErrCurveBusy is returned by Begin when another transaction holds the
	// scope. Callers may retry.
	ErrCurveBusy = errors.New("curve is locked by another transaction")
	ErrTxClosed  = errors.New("transaction already committed or rolled back")

	ErrCorruptRecord = errors.New("corrupt ledger record")
)
