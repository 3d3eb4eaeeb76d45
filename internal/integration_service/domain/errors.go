package domain

import "errors"

var (
	// ErrNotFound indicates that no conversation link exists.
	ErrNotFound = errors.New("conversation link not found")
	// ErrUnknownPolicyKey is returned when writing a flag the policy does not have.
	ErrUnknownPolicyKey = errors.New("unknown privacy policy key")
)
