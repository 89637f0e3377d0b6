package domain

import "errors"

// Sentinel errors for the two failure classes the engine distinguishes.
// Callers wrap them with fmt.Errorf("...: %w", ...) and match with
// errors.Is.
var (
	// ErrConfiguration marks structurally invalid configuration:
	// unsupported method names, missing variable or category config,
	// malformed dates.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrData marks unusable input data: a required column absent from
	// the source table, or an empty sample after filtering.
	ErrData = errors.New("invalid data")
)
