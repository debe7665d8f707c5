package domain

import "errors"

var (
	// ErrUnknownActivity indicates a (category, activity_type) pair with no emission factor.
	ErrUnknownActivity = errors.New("unknown activity type")
	// ErrInvalidQuantity indicates a negative or non-finite quantity in a submission entry.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidBaseline indicates a negative baseline handed to the scoring engine.
	ErrInvalidBaseline = errors.New("invalid baseline")
	// ErrEmptyWindow is returned by the strict aggregator when no records fall in range.
	ErrEmptyWindow = errors.New("no records in window")
)
