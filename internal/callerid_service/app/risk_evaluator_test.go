package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdialer/commhub/internal/callerid_service/domain"
)

type stubDecisionSource struct {
	decision domain.CallerIdDecision
	err      error
}

func (s stubDecisionSource) Evaluate(context.Context, string) (domain.CallerIdDecision, error) {
	return s.decision, s.err
}

type stubSpamClassifier struct {
	decision domain.SpamDecision
	err      error
}

func (s stubSpamClassifier) Classify(context.Context, string) (domain.SpamDecision, error) {
	return s.decision, s.err
}

func TestComposeProfile(t *testing.T) {
	t.Run("SpamBlockOverridesAllow", func(t *testing.T) {
		p := ComposeProfile(
			domain.CallerIdDecision{ShouldAllow: true, Reason: strPtr("carrier lookup")},
			domain.SpamDecision{IsBlocked: true, Reason: strPtr("block list")},
		)
		assert.False(t, p.ShouldAllow)
		assert.False(t, p.ShouldWarn)
		assert.Equal(t, "carrier lookup | block list", *p.Reason)
	})

	t.Run("EitherWarns", func(t *testing.T) {
		p := ComposeProfile(domain.CallerIdDecision{ShouldAllow: true}, domain.SpamDecision{IsAllowed: true, ShouldWarn: true})
		assert.True(t, p.ShouldAllow)
		assert.True(t, p.ShouldWarn)
		assert.Nil(t, p.Reason)
	})

	t.Run("BlankReasonsDropped", func(t *testing.T) {
		p := ComposeProfile(domain.CallerIdDecision{Reason: strPtr("  ")}, domain.SpamDecision{Reason: strPtr("x")})
		assert.Equal(t, "x", *p.Reason)
	})
}

func TestGradeRisk(t *testing.T) {
	tests := []struct {
		name       string
		allow      bool
		score      int
		callerWarn bool
		wantLevel  domain.RiskLevel
		wantAction domain.RiskAction
		wantWarn   bool
	}{
		{"NotAllowedIsCritical", false, 10, false, domain.RiskCritical, domain.ActionBlock, false},
		{"HighScore", true, 80, false, domain.RiskHigh, domain.ActionWarn, true},
		{"MediumLowerBound", true, 45, false, domain.RiskMedium, domain.ActionAllow, false},
		{"MediumInWarnBand", true, 65, true, domain.RiskMedium, domain.ActionAllow, true},
		{"Low", true, 44, false, domain.RiskLow, domain.ActionAllow, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caller := domain.CallerIdDecision{ShouldAllow: tt.allow, IsBlocked: !tt.allow, ShouldWarn: tt.callerWarn, SpamScore: tt.score}
			p := ComposeProfile(caller, domain.SpamDecision{IsAllowed: true})
			r := GradeRisk(p)
			assert.Equal(t, tt.wantLevel, r.RiskLevel)
			assert.Equal(t, tt.wantAction, r.Action)
			assert.Equal(t, tt.wantWarn, r.ShouldWarn)
			assert.Equal(t, !tt.allow, r.IsBlocked)
		})
	}
}

func TestGradeRisk_BlockListHitKeepsCallerBlockFlag(t *testing.T) {
	p := ComposeProfile(
		domain.CallerIdDecision{NormalizedNumber: "+1", ShouldAllow: true, SpamScore: 20},
		domain.SpamDecision{IsBlocked: true, Reason: strPtr("operator list")},
	)
	r := GradeRisk(p)
	assert.Equal(t, domain.RiskCritical, r.RiskLevel)
	assert.Equal(t, domain.ActionBlock, r.Action)
	assert.False(t, r.IsBlocked)

	p = ComposeProfile(
		domain.CallerIdDecision{NormalizedNumber: "+1", ShouldAllow: false, IsBlocked: true, SpamScore: 95},
		domain.SpamDecision{IsAllowed: true},
	)
	assert.True(t, GradeRisk(p).IsBlocked)
}

func TestGradeRisk_ReasonsAreDistinct(t *testing.T) {
	p := ComposeProfile(
		domain.CallerIdDecision{ShouldAllow: true, City: strPtr("Tehran"), Carrier: strPtr(" MCI "), Reason: strPtr("city=Tehran")},
		domain.SpamDecision{IsAllowed: true},
	)
	r := GradeRisk(p)
	assert.Equal(t, []string{"city=Tehran", "carrier=MCI"}, r.Reasons)
}

func TestCallerRiskEvaluator_EvaluateRisk(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Composes", func(t *testing.T) {
		e := NewCallerRiskEvaluator(
			stubDecisionSource{decision: domain.CallerIdDecision{NormalizedNumber: "+1", ShouldAllow: true, SpamScore: 85}},
			stubSpamClassifier{decision: domain.SpamDecision{IsAllowed: true}},
			logger,
		)
		r, err := e.EvaluateRisk(context.Background(), "+1")
		require.NoError(t, err)
		assert.Equal(t, "+1", r.NormalizedNumber)
		assert.Equal(t, domain.RiskHigh, r.RiskLevel)
		assert.Equal(t, []string{}, r.Reasons)
	})

	t.Run("PropagatesStoreErrors", func(t *testing.T) {
		storeErr := errors.New("store down")
		e := NewCallerRiskEvaluator(stubDecisionSource{}, stubSpamClassifier{err: storeErr}, logger)
		_, err := e.EvaluateRisk(context.Background(), "+1")
		assert.ErrorIs(t, err, storeErr)
	})
}
