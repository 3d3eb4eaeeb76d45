package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/jdialer/commhub/internal/platform/database"
	"github.com/jdialer/commhub/internal/voip_service/domain"
)

type PgSipProfileRepository struct {
	db     database.Querier
	logger *slog.Logger
}

func NewPgSipProfileRepository(db database.Querier, logger *slog.Logger) domain.SipProfileRepository {
	return &PgSipProfileRepository{db: db, logger: logger.With("component", "sip_profile_repository_pg")}
}

const selectActiveSipProfileSQL = `SELECT profile_id, username, domain, transport, port, enabled FROM sip_profiles WHERE is_active = TRUE LIMIT 1`

func (r *PgSipProfileRepository) GetActive(ctx context.Context) (*domain.SipProfile, error) {
	var p domain.SipProfile
	err := r.db.QueryRow(ctx, selectActiveSipProfileSQL).Scan(&p.ProfileID, &p.Username, &p.Domain, &p.Transport, &p.Port, &p.Enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Error reading active SIP profile", "error", err)
		return nil, fmt.Errorf("reading active sip profile: %w", err)
	}
	return &p, nil
}

const (
	deactivateSipProfilesSQL = `UPDATE sip_profiles SET is_active = FALSE WHERE profile_id <> $1`
	upsertSipProfileSQL      = `INSERT INTO sip_profiles (profile_id, username, domain, transport, port, enabled, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (profile_id) DO UPDATE SET
username = EXCLUDED.username, domain = EXCLUDED.domain, transport = EXCLUDED.transport,
port = EXCLUDED.port, enabled = EXCLUDED.enabled, is_active = EXCLUDED.is_active`
)

func (r *PgSipProfileRepository) Save(ctx context.Context, p domain.SipProfile, active bool) error {
	if active {
		if _, err := r.db.Exec(ctx, deactivateSipProfilesSQL, p.ProfileID); err != nil {
			r.logger.ErrorContext(ctx, "Error deactivating SIP profiles", "error", err)
			return fmt.Errorf("deactivating sip profiles: %w", err)
		}
	}
	if _, err := r.db.Exec(ctx, upsertSipProfileSQL, p.ProfileID, p.Username, p.Domain, p.Transport, p.Port, p.Enabled, active); err != nil {
		r.logger.ErrorContext(ctx, "Error saving SIP profile", "profile_id", p.ProfileID, "error", err)
		return fmt.Errorf("saving sip profile: %w", err)
	}
	return nil
}
