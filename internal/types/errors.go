package types

import "errors"

var (
	// ErrDataUnavailable means the snapshot was missing or partial; the symbol
	// is skipped for the cycle.
	ErrDataUnavailable = errors.New("market data unavailable")
	ErrRiskRejected    = errors.New("trade rejected by risk limits")
	// ErrExecutionFailed covers adapter errors and timeouts.
	ErrExecutionFailed = errors.New("order execution failed")
	ErrInternal        = errors.New("internal error")
)
