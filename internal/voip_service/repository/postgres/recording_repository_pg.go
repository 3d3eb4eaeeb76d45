package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jdialer/commhub/internal/platform/database"
	"github.com/jdialer/commhub/internal/voip_service/domain"
)

// PgRecordingPolicyRepository keeps the recording policy in a single row.
type PgRecordingPolicyRepository struct {
	db     database.Querier
	logger *slog.Logger
}

func NewPgRecordingPolicyRepository(db database.Querier, logger *slog.Logger) domain.RecordingPolicyStore {
	return &PgRecordingPolicyRepository{db: db, logger: logger.With("component", "recording_policy_repository_pg")}
}

const selectRecordingPolicySQL = `SELECT recording_enabled, require_explicit_consent, auto_delete_after_days,
allow_cloud_backup, redact_metadata, notify_on_recording_start FROM recording_privacy_policy WHERE id = 1`

func (r *PgRecordingPolicyRepository) Policy(ctx context.Context) (domain.RecordingPrivacyPolicy, error) {
	var p domain.RecordingPrivacyPolicy
	err := r.db.QueryRow(ctx, selectRecordingPolicySQL).Scan(
		&p.RecordingEnabled, &p.RequireExplicitConsent, &p.AutoDeleteAfterDays,
		&p.AllowCloudBackup, &p.RedactMetadata, &p.NotifyOnRecordingStart,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DefaultRecordingPrivacyPolicy(), nil
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Error reading recording policy", "error", err)
		return domain.DefaultRecordingPrivacyPolicy(), fmt.Errorf("reading recording policy: %w", err)
	}
	return p, nil
}

const upsertRecordingPolicySQL = `INSERT INTO recording_privacy_policy (id, recording_enabled, require_explicit_consent,
auto_delete_after_days, allow_cloud_backup, redact_metadata, notify_on_recording_start)
VALUES (1, $1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
recording_enabled = EXCLUDED.recording_enabled, require_explicit_consent = EXCLUDED.require_explicit_consent,
auto_delete_after_days = EXCLUDED.auto_delete_after_days, allow_cloud_backup = EXCLUDED.allow_cloud_backup,
redact_metadata = EXCLUDED.redact_metadata, notify_on_recording_start = EXCLUDED.notify_on_recording_start`

// Save clamps AutoDeleteAfterDays before writing.
func (r *PgRecordingPolicyRepository) Save(ctx context.Context, p domain.RecordingPrivacyPolicy) error {
	p.AutoDeleteAfterDays = domain.ClampAutoDeleteDays(p.AutoDeleteAfterDays)
	if _, err := r.db.Exec(ctx, upsertRecordingPolicySQL,
		p.RecordingEnabled, p.RequireExplicitConsent, p.AutoDeleteAfterDays,
		p.AllowCloudBackup, p.RedactMetadata, p.NotifyOnRecordingStart,
	); err != nil {
		r.logger.ErrorContext(ctx, "Error saving recording policy", "error", err)
		return fmt.Errorf("saving recording policy: %w", err)
	}
	r.logger.InfoContext(ctx, "Recording policy updated", "recording_enabled", p.RecordingEnabled)
	return nil
}

type PgCallRecordingRepository struct {
	db     database.Querier
	logger *slog.Logger
}

func NewPgCallRecordingRepository(db database.Querier, logger *slog.Logger) domain.CallRecordingRepository {
	return &PgCallRecordingRepository{db: db, logger: logger.With("component", "call_recording_repository_pg")}
}

const insertCallRecordingSQL = `INSERT INTO call_recordings (recording_id, session_id, number, started_at) VALUES ($1, $2, $3, $4)`

func (r *PgCallRecordingRepository) Insert(ctx context.Context, rec domain.CallRecording) error {
	if _, err := r.db.Exec(ctx, insertCallRecordingSQL, rec.RecordingID, rec.SessionID, rec.Number, rec.StartedAt.UnixMilli()); err != nil {
		r.logger.ErrorContext(ctx, "Error inserting call recording", "recording_id", rec.RecordingID, "error", err)
		return fmt.Errorf("inserting call recording: %w", err)
	}
	return nil
}

const countCallRecordingsSinceSQL = `SELECT COUNT(*) FROM call_recordings WHERE started_at >= $1`

func (r *PgCallRecordingRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, countCallRecordingsSinceSQL, since.UnixMilli()).Scan(&n); err != nil {
		r.logger.ErrorContext(ctx, "Error counting call recordings", "error", err)
		return 0, fmt.Errorf("counting call recordings: %w", err)
	}
	return n, nil
}
