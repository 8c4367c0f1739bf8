// internal/admin/errors.go
package admin

import "errors"

var (
	ErrNothingToWithdraw  = errors.New("nothing to withdraw")
	ErrCurveNotComplete   = errors.New("curve has not graduated")
	ErrAlreadyInitialized = errors.New("global config already initialized")
	ErrAssetExists        = errors.New("asset already exists")
)
