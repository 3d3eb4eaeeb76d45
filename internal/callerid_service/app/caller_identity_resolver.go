package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/jdialer/commhub/internal/callerid_service/domain"
	"github.com/jdialer/commhub/internal/core_domain"
)

const (
	// DefaultRecordTTL is how long a stored record is trusted without a remote refresh.
	DefaultRecordTTL = 24 * time.Hour
	// DefaultResolveTimeout bounds one shared store read plus remote lookup.
	DefaultResolveTimeout = 30 * time.Second
)

// CallerIdentityResolver answers caller-ID questions from three tiers:
// the in-memory LRU, the persistent store, then the remote provider.
type CallerIdentityResolver struct {
	repo   domain.CallerRiskRepository
	remote domain.RemoteCallerLookup
	cache  *RiskCache
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	flight  singleflight.Group
	logger  *slog.Logger
}

// NewCallerIdentityResolver creates a resolver. remote may be nil, in which case
// every lookup counts as a remote failure. A non-positive ttl uses DefaultRecordTTL.
func NewCallerIdentityResolver(
	repo domain.CallerRiskRepository,
	remote domain.RemoteCallerLookup,
	cache *RiskCache,
	ttl time.Duration,
	logger *slog.Logger,
) *CallerIdentityResolver {
	if ttl <= 0 {
		ttl = DefaultRecordTTL
	}
	if cache == nil {
		cache = NewRiskCache(DefaultRiskCacheCapacity)
	}
	return &CallerIdentityResolver{
		repo:    repo,
		remote:  remote,
		cache:   cache,
		ttl:     ttl,
		timeout: DefaultResolveTimeout,
		now:     time.Now,
		logger:  logger.With("component", "caller_identity_resolver"),
	}
}

// WithClock replaces the resolver's time source.
func (r *CallerIdentityResolver) WithClock(now func() time.Time) *CallerIdentityResolver {
	r.now = now
	return r
}

// Evaluate returns the decision for rawNumber. Remote failures are absorbed;
// only store failures are returned, wrapping domain.ErrPersistence.
// A number that normalizes to nothing yields the default decision and touches no tier.
func (r *CallerIdentityResolver) Evaluate(ctx context.Context, rawNumber string) (domain.CallerIdDecision, error) {
	normalized := core_domain.NormalizeNumber(rawNumber)
	if normalized == "" {
		return domain.DefaultDecision(normalized), nil
	}

	if decision, ok := r.cache.Get(normalized); ok {
		callerDecisionsCounter.WithLabelValues("memory").Inc()
		r.logger.DebugContext(ctx, "Caller decision served from memory", "number", normalized)
		return decision, nil
	}

	// Concurrent misses for the same number share one store read and remote lookup.
	// The shared work is detached from any single caller's cancellation and
	// bounded by the resolver timeout; each caller still stops waiting on its own ctx.
	ch := r.flight.DoChan(normalized, func() (interface{}, error) {
		sharedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()
		return r.resolveUncached(sharedCtx, normalized)
	})
	select {
	case <-ctx.Done():
		return domain.CallerIdDecision{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.CallerIdDecision{}, res.Err
		}
		if res.Shared {
			r.logger.DebugContext(ctx, "Caller decision shared with concurrent lookup", "number", normalized)
		}
		return res.Val.(domain.CallerIdDecision), nil
	}
}

func (r *CallerIdentityResolver) resolveUncached(ctx context.Context, normalized string) (domain.CallerIdDecision, error) {
	if decision, ok := r.cache.Get(normalized); ok {
		callerDecisionsCounter.WithLabelValues("memory").Inc()
		return decision, nil
	}

	record, err := r.loadRecord(ctx, normalized)
	if err != nil {
		return domain.CallerIdDecision{}, err
	}

	now := r.now()
	if record != nil && record.IsFresh(now, r.ttl) {
		decision := record.ToDecision()
		r.cache.Put(normalized, decision)
		callerDecisionsCounter.WithLabelValues("store").Inc()
		r.logger.DebugContext(ctx, "Caller decision served from store", "number", normalized)
		return decision, nil
	}

	result, transient := r.lookupRemote(ctx, normalized)
	if result != nil {
		decision := result.ToDecision(normalized)
		isSpam := decision.IsBlocked
		// Only Block clears a user block; a remote refresh keeps it.
		userBlocked := record != nil && record.IsUserBlocked
		if userBlocked {
			decision.ShouldAllow = false
			decision.IsBlocked = true
		}
		if err := r.persist(ctx, decision, isSpam, userBlocked, now); err != nil {
			return domain.CallerIdDecision{}, err
		}
		r.cache.Put(normalized, decision)
		callerDecisionsCounter.WithLabelValues("remote").Inc()
		r.logger.InfoContext(ctx, "Caller decision refreshed from remote",
			"number", normalized, "spam_score", decision.SpamScore, "blocked", decision.IsBlocked)
		return decision, nil
	}

	// A cut-short resolve stores nothing.
	if err := ctx.Err(); err != nil {
		return domain.CallerIdDecision{}, err
	}

	if record != nil {
		decision := record.ToDecision()
		r.cache.Put(normalized, decision)
		callerDecisionsCounter.WithLabelValues("stale").Inc()
		r.logger.WarnContext(ctx, "Remote lookup failed, serving stale caller record",
			"number", normalized, "last_checked_at", record.LastCheckedAt)
		return decision, nil
	}

	decision := domain.DefaultDecision(normalized)
	if transient {
		// Neither stored nor cached, so the next call retries the remote.
		callerDecisionsCounter.WithLabelValues("transient").Inc()
		r.logger.InfoContext(ctx, "Remote lookup unavailable, returning default without storing", "number", normalized)
		return decision, nil
	}
	if err := r.persist(ctx, decision, false, false, now); err != nil {
		return domain.CallerIdDecision{}, err
	}
	r.cache.Put(normalized, decision)
	callerDecisionsCounter.WithLabelValues("default").Inc()
	r.logger.InfoContext(ctx, "No caller profile available, stored default decision", "number", normalized)
	return decision, nil
}

// UpsertDecision writes decision through to the store and the cache.
func (r *CallerIdentityResolver) UpsertDecision(ctx context.Context, decision domain.CallerIdDecision) error {
	normalized := core_domain.NormalizeNumber(decision.NormalizedNumber)
	if normalized == "" {
		return domain.ErrInvalidNumber
	}
	decision.NormalizedNumber = normalized
	decision.SpamScore = domain.ClampScore(decision.SpamScore)

	if err := r.persist(ctx, decision, decision.IsBlocked, false, r.now()); err != nil {
		return err
	}
	r.flight.Forget(normalized)
	r.cache.Put(normalized, decision)
	return nil
}

// Block sets or clears the user block on rawNumber. It creates a manual-block
// row when none exists, otherwise it only flips the user flag. The cache entry
// is always invalidated.
func (r *CallerIdentityResolver) Block(ctx context.Context, rawNumber string, blocked bool) error {
	normalized := core_domain.NormalizeNumber(rawNumber)
	if normalized == "" {
		return domain.ErrInvalidNumber
	}
	defer func() {
		r.flight.Forget(normalized)
		r.cache.Remove(normalized)
	}()

	record, err := r.loadRecord(ctx, normalized)
	if err != nil {
		return err
	}

	now := r.now()
	if record == nil {
		score := 0
		if blocked {
			score = 100
		}
		reason := domain.ReasonManualBlock
		err = r.repo.Upsert(ctx, &domain.CallerRiskRecord{
			NormalizedNumber: normalized,
			IsSpam:           blocked,
			SpamScore:        score,
			Reason:           &reason,
			LastCheckedAt:    now,
			IsUserBlocked:    blocked,
			UpdatedAt:        now,
		})
	} else {
		err = r.repo.SetUserBlocked(ctx, normalized, blocked, now)
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to store caller block", "number", normalized, "blocked", blocked, "error", err)
		return fmt.Errorf("%w: block %s: %w", domain.ErrPersistence, normalized, err)
	}

	r.logger.InfoContext(ctx, "Caller block updated", "number", normalized, "blocked", blocked, "created", record == nil)
	return nil
}

func (r *CallerIdentityResolver) loadRecord(ctx context.Context, normalized string) (*domain.CallerRiskRecord, error) {
	record, err := r.repo.GetByNumber(ctx, normalized)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to read caller record", "number", normalized, "error", err)
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrPersistence, normalized, err)
	}
	return record, nil
}

// lookupRemote returns nil on any failure. transient reports a failure whose
// default outcome must not be stored: throttling or a context that ended.
func (r *CallerIdentityResolver) lookupRemote(ctx context.Context, normalized string) (result *domain.CallerLookupResult, transient bool) {
	if r.remote == nil {
		remoteLookupFailuresCounter.Inc()
		return nil, false
	}
	start := time.Now()
	result, err := r.remote.Lookup(ctx, normalized)
	remoteLookupDurationHist.Observe(time.Since(start).Seconds())
	if err != nil || result == nil {
		remoteLookupFailuresCounter.Inc()
		transient = errors.Is(err, domain.ErrLookupTransient) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		r.logger.WarnContext(ctx, "Remote caller lookup failed", "number", normalized, "transient", transient, "error", err)
		return nil, transient
	}
	return result, false
}

func (r *CallerIdentityResolver) persist(ctx context.Context, decision domain.CallerIdDecision, isSpam, userBlocked bool, now time.Time) error {
	record := &domain.CallerRiskRecord{
		NormalizedNumber: decision.NormalizedNumber,
		DisplayName:      decision.DisplayName,
		City:             decision.City,
		Carrier:          decision.Carrier,
		IsSpam:           isSpam,
		SpamScore:        decision.SpamScore,
		Reason:           decision.Reason,
		LastCheckedAt:    now,
		IsUserBlocked:    userBlocked,
		UpdatedAt:        now,
	}
	if err := r.repo.Upsert(ctx, record); err != nil {
		r.logger.ErrorContext(ctx, "Failed to store caller decision", "number", decision.NormalizedNumber, "error", err)
		return fmt.Errorf("%w: write %s: %w", domain.ErrPersistence, decision.NormalizedNumber, err)
	}
	return nil
}
