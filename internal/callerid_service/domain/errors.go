package domain

import "errors"

var (
	// ErrNotFound indicates that no row exists for the number.
	ErrNotFound = errors.New("caller record not found")
	// ErrPersistence wraps any store read or write failure.
	ErrPersistence = errors.New("caller store failure")
	// ErrInvalidNumber is returned when a number normalizes to nothing.
	ErrInvalidNumber = errors.New("invalid caller number")
	// ErrLookupTransient marks a remote lookup that was skipped or cut short
	// (throttled, cancelled). Its outcome must not be stored.
	ErrLookupTransient = errors.New("caller lookup temporarily unavailable")
)
