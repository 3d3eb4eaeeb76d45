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

// Timestamps are stored as epoch milliseconds.

type PgCallerRiskRepository struct {
	db     database.Querier
	logger *slog.Logger
}

func NewPgCallerRiskRepository(db database.Querier, logger *slog.Logger) domain.CallerRiskRepository {
	return &PgCallerRiskRepository{db: db, logger: logger.With("component", "caller_risk_repository_pg")}
}

const selectCallerRiskSQL = `SELECT normalized_number, display_name, city, carrier, is_spam, spam_score, reason, last_checked_at, is_user_blocked, updated_at
FROM caller_risk_records WHERE normalized_number = $1`

func (r *PgCallerRiskRepository) GetByNumber(ctx context.Context, normalizedNumber string) (*domain.CallerRiskRecord, error) {
	var (
		rec           domain.CallerRiskRecord
		lastCheckedMs int64
		updatedMs     int64
	)
	err := r.db.QueryRow(ctx, selectCallerRiskSQL, normalizedNumber).Scan(
		&rec.NormalizedNumber, &rec.DisplayName, &rec.City, &rec.Carrier,
		&rec.IsSpam, &rec.SpamScore, &rec.Reason, &lastCheckedMs, &rec.IsUserBlocked, &updatedMs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Error reading caller risk record", "number", normalizedNumber, "error", err)
		return nil, fmt.Errorf("reading caller risk record: %w", err)
	}
	rec.LastCheckedAt = time.UnixMilli(lastCheckedMs)
	rec.UpdatedAt = time.UnixMilli(updatedMs)
	return &rec, nil
}

const upsertCallerRiskSQL = `INSERT INTO caller_risk_records
(normalized_number, display_name, city, carrier, is_spam, spam_score, reason, last_checked_at, is_user_blocked, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (normalized_number) DO UPDATE SET
display_name = EXCLUDED.display_name, city = EXCLUDED.city, carrier = EXCLUDED.carrier,
is_spam = EXCLUDED.is_spam, spam_score = EXCLUDED.spam_score, reason = EXCLUDED.reason,
last_checked_at = EXCLUDED.last_checked_at, is_user_blocked = EXCLUDED.is_user_blocked, updated_at = EXCLUDED.updated_at`

func (r *PgCallerRiskRepository) Upsert(ctx context.Context, rec *domain.CallerRiskRecord) error {
	_, err := r.db.Exec(ctx, upsertCallerRiskSQL,
		rec.NormalizedNumber, rec.DisplayName, rec.City, rec.Carrier,
		rec.IsSpam, rec.SpamScore, rec.Reason, rec.LastCheckedAt.UnixMilli(), rec.IsUserBlocked, rec.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error upserting caller risk record", "number", rec.NormalizedNumber, "error", err)
		return fmt.Errorf("upserting caller risk record: %w", err)
	}
	return nil
}

const setUserBlockedSQL = `UPDATE caller_risk_records SET is_user_blocked = $2, updated_at = $3 WHERE normalized_number = $1`

func (r *PgCallerRiskRepository) SetUserBlocked(ctx context.Context, normalizedNumber string, blocked bool, updatedAt time.Time) error {
	tag, err := r.db.Exec(ctx, setUserBlockedSQL, normalizedNumber, blocked, updatedAt.UnixMilli())
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating caller block flag", "number", normalizedNumber, "error", err)
		return fmt.Errorf("updating caller block flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
