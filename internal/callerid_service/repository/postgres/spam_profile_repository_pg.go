package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jdialer/commhub/internal/callerid_service/domain"
	"github.com/jdialer/commhub/internal/platform/database"
)

type PgSpamProfileRepository struct {
	db     database.Querier
	logger *slog.Logger
}

func NewPgSpamProfileRepository(db database.Querier, logger *slog.Logger) domain.SpamProfileRepository {
	return &PgSpamProfileRepository{db: db, logger: logger.With("component", "spam_profile_repository_pg")}
}

const selectSpamProfileSQL = `SELECT normalized_number, confidence_score, reason, should_block, source, updated_at
FROM spam_profiles WHERE normalized_number = $1`

func (r *PgSpamProfileRepository) GetByNumber(ctx context.Context, normalizedNumber string) (*domain.SpamProfile, error) {
	var (
		p         domain.SpamProfile
		updatedMs int64
	)
	err := r.db.QueryRow(ctx, selectSpamProfileSQL, normalizedNumber).Scan(
		&p.NormalizedNumber, &p.ConfidenceScore, &p.Reason, &p.ShouldBlock, &p.Source, &updatedMs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Error reading spam profile", "number", normalizedNumber, "error", err)
		return nil, fmt.Errorf("reading spam profile: %w", err)
	}
	p.UpdatedAt = time.UnixMilli(updatedMs)
	return &p, nil
}

const upsertSpamProfileSQL = `INSERT INTO spam_profiles (normalized_number, confidence_score, reason, should_block, source, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (normalized_number) DO UPDATE SET
confidence_score = EXCLUDED.confidence_score, reason = EXCLUDED.reason, should_block = EXCLUDED.should_block,
source = EXCLUDED.source, updated_at = EXCLUDED.updated_at`

func (r *PgSpamProfileRepository) Upsert(ctx context.Context, p *domain.SpamProfile) error {
	_, err := r.db.Exec(ctx, upsertSpamProfileSQL,
		p.NormalizedNumber, p.ConfidenceScore, p.Reason, p.ShouldBlock, p.Source, p.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error upserting spam profile", "number", p.NormalizedNumber, "error", err)
		return fmt.Errorf("upserting spam profile: %w", err)
	}
	return nil
}
