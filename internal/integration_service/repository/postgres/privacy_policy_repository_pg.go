package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jdialer/commhub/internal/integration_service/domain"
	"github.com/jdialer/commhub/internal/platform/database"
)

// PgPrivacyPolicyRepository stores the privacy policy as key/value rows.
// Keys without a row keep their default value.
type PgPrivacyPolicyRepository struct {
	db     database.Querier
	logger *slog.Logger
}

func NewPgPrivacyPolicyRepository(db database.Querier, logger *slog.Logger) domain.PrivacyPolicyStore {
	return &PgPrivacyPolicyRepository{db: db, logger: logger.With("component", "privacy_policy_repository_pg")}
}

const selectPolicySQL = `SELECT policy_key, policy_value FROM integration_privacy_policy`

func (r *PgPrivacyPolicyRepository) Policy(ctx context.Context) (domain.IntegrationPrivacyPolicy, error) {
	policy := domain.DefaultIntegrationPrivacyPolicy()

	rows, err := r.db.Query(ctx, selectPolicySQL)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error reading privacy policy", "error", err)
		return policy, fmt.Errorf("reading privacy policy: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value bool
		)
		if err := rows.Scan(&key, &value); err != nil {
			return policy, fmt.Errorf("scanning privacy policy row: %w", err)
		}
		if !policy.Set(key, value) {
			r.logger.WarnContext(ctx, "Ignoring unknown privacy policy key", "key", key)
		}
	}
	if err := rows.Err(); err != nil {
		return policy, fmt.Errorf("iterating privacy policy: %w", err)
	}
	return policy, nil
}

const upsertPolicyFlagSQL = `INSERT INTO integration_privacy_policy (policy_key, policy_value) VALUES ($1, $2)
ON CONFLICT (policy_key) DO UPDATE SET policy_value = EXCLUDED.policy_value`

func (r *PgPrivacyPolicyRepository) SetFlag(ctx context.Context, key string, value bool) error {
	var probe domain.IntegrationPrivacyPolicy
	if !probe.Set(key, value) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownPolicyKey, key)
	}
	if _, err := r.db.Exec(ctx, upsertPolicyFlagSQL, key, value); err != nil {
		r.logger.ErrorContext(ctx, "Error saving privacy policy flag", "key", key, "error", err)
		return fmt.Errorf("saving privacy policy flag: %w", err)
	}
	r.logger.InfoContext(ctx, "Privacy policy flag updated", "key", key, "value", value)
	return nil
}
