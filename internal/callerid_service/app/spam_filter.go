package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jdialer/commhub/internal/callerid_service/domain"
	"github.com/jdialer/commhub/internal/core_domain"
)

// SpamFilter classifies numbers against the spam block list.
type SpamFilter struct {
	repo   domain.SpamProfileRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewSpamFilter reads block-list profiles from repo. Classify never consults a
// remote source.
func NewSpamFilter(repo domain.SpamProfileRepository, logger *slog.Logger) *SpamFilter {
	return &SpamFilter{
		repo:   repo,
		now:    time.Now,
		logger: logger.With("component", "spam_filter"),
	}
}

// Classify returns the block-list verdict for rawNumber. Numbers without a
// profile are allowed.
func (f *SpamFilter) Classify(ctx context.Context, rawNumber string) (domain.SpamDecision, error) {
	normalized := core_domain.NormalizeNumber(rawNumber)
	if normalized == "" {
		return domain.SpamDecision{IsAllowed: true}, nil
	}

	profile, err := f.repo.GetByNumber(ctx, normalized)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.SpamDecision{IsAllowed: true}, nil
	}
	if err != nil {
		f.logger.ErrorContext(ctx, "Failed to read spam profile", "number", normalized, "error", err)
		return domain.SpamDecision{}, fmt.Errorf("%w: read spam profile %s: %w", domain.ErrPersistence, normalized, err)
	}

	switch {
	case profile.ShouldBlock:
		return domain.SpamDecision{IsAllowed: false, IsBlocked: true, Reason: profile.Reason}, nil
	case profile.ConfidenceScore >= domain.SpamWarnConfidence:
		return domain.SpamDecision{IsAllowed: true, ShouldWarn: true, Reason: profile.Reason}, nil
	default:
		return domain.SpamDecision{IsAllowed: true, Reason: profile.Reason}, nil
	}
}

// UpsertProfile normalizes and stores a spam profile.
func (f *SpamFilter) UpsertProfile(ctx context.Context, profile domain.SpamProfile) error {
	normalized := core_domain.NormalizeNumber(profile.NormalizedNumber)
	if normalized == "" {
		return domain.ErrInvalidNumber
	}
	profile.NormalizedNumber = normalized
	profile.ConfidenceScore = domain.ClampScore(profile.ConfidenceScore)
	profile.Reason = core_domain.NonBlank(profile.Reason)
	if strings.TrimSpace(profile.Source) == "" {
		profile.Source = "unknown"
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = f.now()
	}

	if err := f.repo.Upsert(ctx, &profile); err != nil {
		f.logger.ErrorContext(ctx, "Failed to store spam profile", "number", normalized, "error", err)
		return fmt.Errorf("%w: write spam profile %s: %w", domain.ErrPersistence, normalized, err)
	}
	f.logger.InfoContext(ctx, "Spam profile stored", "number", normalized, "should_block", profile.ShouldBlock, "source", profile.Source)
	return nil
}
