package domain

import (
	"context"
	"time"
)

// CallerRiskRepository persists CallerRiskRecord rows keyed by normalized number.
type CallerRiskRepository interface {
	// GetByNumber returns ErrNotFound when no row exists.
	GetByNumber(ctx context.Context, normalizedNumber string) (*CallerRiskRecord, error)
	Upsert(ctx context.Context, record *CallerRiskRecord) error
	// SetUserBlocked updates only is_user_blocked and updated_at.
	SetUserBlocked(ctx context.Context, normalizedNumber string, blocked bool, updatedAt time.Time) error
}

// SpamProfileRepository persists the spam block list.
type SpamProfileRepository interface {
	// GetByNumber returns ErrNotFound when no row exists.
	GetByNumber(ctx context.Context, normalizedNumber string) (*SpamProfile, error)
	Upsert(ctx context.Context, profile *SpamProfile) error
}

// RemoteCallerLookup queries an external caller-ID provider. Any error is a
// lookup failure to be absorbed by the caller.
type RemoteCallerLookup interface {
	Lookup(ctx context.Context, normalizedNumber string) (*CallerLookupResult, error)
}
