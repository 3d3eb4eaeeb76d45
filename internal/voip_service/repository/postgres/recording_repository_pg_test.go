package postgres

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdialer/commhub/internal/voip_service/domain"
)

func TestPgRecordingPolicyRepository_Policy(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	columns := []string{"recording_enabled", "require_explicit_consent", "auto_delete_after_days",
		"allow_cloud_backup", "redact_metadata", "notify_on_recording_start"}

	t.Run("Stored", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgRecordingPolicyRepository(mockPool, logger)

		mockPool.ExpectQuery(regexp.QuoteMeta(selectRecordingPolicySQL)).
			WillReturnRows(mockPool.NewRows(columns).AddRow(true, false, 7, true, false, false))

		p, err := repo.Policy(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.RecordingPrivacyPolicy{
			RecordingEnabled:    true,
			AutoDeleteAfterDays: 7,
			AllowCloudBackup:    true,
		}, p)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NothingStoredGivesDefaults", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgRecordingPolicyRepository(mockPool, logger)

		mockPool.ExpectQuery(regexp.QuoteMeta(selectRecordingPolicySQL)).WillReturnError(pgx.ErrNoRows)

		p, err := repo.Policy(context.Background())
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultRecordingPrivacyPolicy(), p)
		assert.False(t, p.RecordingEnabled)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("QueryError", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgRecordingPolicyRepository(mockPool, logger)

		dbErr := errors.New("connection reset")
		mockPool.ExpectQuery(regexp.QuoteMeta(selectRecordingPolicySQL)).WillReturnError(dbErr)

		_, err = repo.Policy(context.Background())
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPgRecordingPolicyRepository_Save(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name     string
		days     int
		wantDays int
	}{
		{"InRange", 14, 14},
		{"ZeroClampedUp", 0, domain.MinAutoDeleteDays},
		{"HugeClampedDown", 10000, domain.MaxAutoDeleteDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPool, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mockPool.Close()
			repo := NewPgRecordingPolicyRepository(mockPool, logger)

			p := domain.DefaultRecordingPrivacyPolicy()
			p.RecordingEnabled = true
			p.AutoDeleteAfterDays = tt.days

			mockPool.ExpectExec(regexp.QuoteMeta(upsertRecordingPolicySQL)).
				WithArgs(true, true, tt.wantDays, false, true, true).
				WillReturnResult(pgxmock.NewResult("INSERT", 1))

			require.NoError(t, repo.Save(context.Background(), p))
			assert.NoError(t, mockPool.ExpectationsWereMet())
		})
	}
}

func TestPgCallRecordingRepository(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	startedAt := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)

	t.Run("Insert", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgCallRecordingRepository(mockPool, logger)

		mockPool.ExpectExec(regexp.QuoteMeta(insertCallRecordingSQL)).
			WithArgs("rec-1", "session-1", "*****12", startedAt.UnixMilli()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.Insert(context.Background(), domain.CallRecording{
			RecordingID: "rec-1", SessionID: "session-1", Number: "*****12", StartedAt: startedAt,
		})
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("CountSince", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		repo := NewPgCallRecordingRepository(mockPool, logger)

		mockPool.ExpectQuery(regexp.QuoteMeta(countCallRecordingsSinceSQL)).
			WithArgs(startedAt.UnixMilli()).
			WillReturnRows(mockPool.NewRows([]string{"count"}).AddRow(39))

		n, err := repo.CountSince(context.Background(), startedAt)
		require.NoError(t, err)
		assert.Equal(t, 39, n)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
