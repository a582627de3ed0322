package expression

import "errors"

var (
	// ErrEmptyWindow reports a window with zero cells. Aggregation
	// cannot proceed: no partial table is produced.
	ErrEmptyWindow = errors.New("expression: empty window")

	// ErrInsufficientData reports a background table with fewer than
	// two finite values, leaving the noise estimate undefined.
	ErrInsufficientData = errors.New("expression: insufficient data")
)
