package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jdialer/commhub/internal/integration_service/domain"
	"github.com/jdialer/commhub/internal/platform/database"
)

const defaultResolvedBy = "manual"

type PgConversationLinkRepository struct {
	db     database.Querier
	logger *slog.Logger
	now    func() time.Time
}

func NewPgConversationLinkRepository(db database.Querier, logger *slog.Logger) domain.ConversationLinkRepository {
	return &PgConversationLinkRepository{
		db:     db,
		logger: logger.With("component", "conversation_link_repository_pg"),
		now:    time.Now,
	}
}

const linkColumns = `link_id, contact_id, platform, handle, resolved_by, is_enabled, is_blocked, updated_at`

const selectLinkSQL = `SELECT ` + linkColumns + `
FROM external_conversation_links WHERE contact_id = $1 AND platform = $2`

func (r *PgConversationLinkRepository) GetLink(ctx context.Context, contactID int64, platform string) (*domain.ConversationLink, error) {
	l, err := scanLink(r.db.QueryRow(ctx, selectLinkSQL, contactID, strings.ToLower(platform)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.ErrorContext(ctx, "Error reading conversation link", "contact_id", contactID, "platform", platform, "error", err)
		return nil, fmt.Errorf("reading conversation link: %w", err)
	}
	return l, nil
}

const upsertLinkSQL = `INSERT INTO external_conversation_links (` + linkColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (contact_id, platform) DO UPDATE SET
handle = EXCLUDED.handle, resolved_by = EXCLUDED.resolved_by, is_enabled = EXCLUDED.is_enabled,
is_blocked = EXCLUDED.is_blocked, updated_at = EXCLUDED.updated_at`

// Upsert stores one link per contact and platform. The link id of an
// existing row is kept.
func (r *PgConversationLinkRepository) Upsert(ctx context.Context, link domain.ConversationLink) error {
	if link.LinkID == "" {
		link.LinkID = uuid.NewString()
	}
	if link.ResolvedBy == "" {
		link.ResolvedBy = defaultResolvedBy
	}
	if link.UpdatedAt.IsZero() {
		link.UpdatedAt = r.now()
	}
	_, err := r.db.Exec(ctx, upsertLinkSQL,
		link.LinkID, link.ContactID, strings.ToLower(link.Platform), link.Handle, link.ResolvedBy,
		link.IsEnabled, link.IsBlocked, link.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error upserting conversation link", "contact_id", link.ContactID, "platform", link.Platform, "error", err)
		return fmt.Errorf("upserting conversation link: %w", err)
	}
	return nil
}

const deleteLinkSQL = `DELETE FROM external_conversation_links WHERE contact_id = $1 AND platform = $2`

func (r *PgConversationLinkRepository) Clear(ctx context.Context, contactID int64, platform string) error {
	if _, err := r.db.Exec(ctx, deleteLinkSQL, contactID, strings.ToLower(platform)); err != nil {
		r.logger.ErrorContext(ctx, "Error clearing conversation link", "contact_id", contactID, "platform", platform, "error", err)
		return fmt.Errorf("clearing conversation link: %w", err)
	}
	return nil
}

const listLinksSQL = `SELECT ` + linkColumns + `
FROM external_conversation_links WHERE contact_id = $1 ORDER BY platform`

func (r *PgConversationLinkRepository) ListForContact(ctx context.Context, contactID int64) ([]domain.ConversationLink, error) {
	rows, err := r.db.Query(ctx, listLinksSQL, contactID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing conversation links", "contact_id", contactID, "error", err)
		return nil, fmt.Errorf("listing conversation links: %w", err)
	}
	defer rows.Close()

	links := []domain.ConversationLink{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning conversation link: %w", err)
		}
		links = append(links, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversation links: %w", err)
	}
	return links, nil
}

func scanLink(row pgx.Row) (*domain.ConversationLink, error) {
	var (
		l         domain.ConversationLink
		updatedMs int64
	)
	if err := row.Scan(&l.LinkID, &l.ContactID, &l.Platform, &l.Handle, &l.ResolvedBy, &l.IsEnabled, &l.IsBlocked, &updatedMs); err != nil {
		return nil, err
	}
	l.UpdatedAt = time.UnixMilli(updatedMs)
	return &l, nil
}
