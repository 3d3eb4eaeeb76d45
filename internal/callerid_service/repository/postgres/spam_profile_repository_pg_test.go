package postgres

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdialer/commhub/internal/callerid_service/domain"
)

func TestPgSpamProfileRepository(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.UnixMilli(1_700_000_000_000)
	reason := "reported by 40 users"

	t.Run("GetByNumber_Found", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgSpamProfileRepository(mockPool, logger)

		rows := mockPool.NewRows([]string{"normalized_number", "confidence_score", "reason", "should_block", "source", "updated_at"}).
			AddRow("+98912", 75, &reason, false, "feed", now.UnixMilli())
		mockPool.ExpectQuery(regexp.QuoteMeta(selectSpamProfileSQL)).WithArgs("+98912").WillReturnRows(rows)

		p, err := repo.GetByNumber(context.Background(), "+98912")
		require.NoError(t, err)
		assert.Equal(t, 75, p.ConfidenceScore)
		assert.Equal(t, reason, *p.Reason)
		assert.Equal(t, "feed", p.Source)
		assert.True(t, now.Equal(p.UpdatedAt))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("GetByNumber_NotFound", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgSpamProfileRepository(mockPool, logger)

		mockPool.ExpectQuery(regexp.QuoteMeta(selectSpamProfileSQL)).WithArgs("1").WillReturnError(pgx.ErrNoRows)

		_, err = repo.GetByNumber(context.Background(), "1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Upsert", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgSpamProfileRepository(mockPool, logger)

		p := &domain.SpamProfile{NormalizedNumber: "+98912", ConfidenceScore: 90, Reason: &reason, ShouldBlock: true, Source: "feed", UpdatedAt: now}
		mockPool.ExpectExec(regexp.QuoteMeta(upsertSpamProfileSQL)).
			WithArgs("+98912", 90, &reason, true, "feed", now.UnixMilli()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, repo.Upsert(context.Background(), p))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
