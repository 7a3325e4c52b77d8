package finance

import "errors"

var (
	// ErrShapeMismatch reports weights or columns that do not line up.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrEmptySeries reports a table without rows.
	ErrEmptySeries = errors.New("empty series")
	// ErrInvalidAmount reports an initial contribution that is not a non-negative number.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrUpstreamFetch wraps any failure of the market data provider.
	ErrUpstreamFetch = errors.New("upstream fetch failure")
)
