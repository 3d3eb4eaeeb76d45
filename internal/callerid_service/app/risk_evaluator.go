package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jdialer/commhub/internal/callerid_service/domain"
)

// CallerDecisionSource yields caller-ID decisions.
type CallerDecisionSource interface {
	Evaluate(ctx context.Context, rawNumber string) (domain.CallerIdDecision, error)
}

// SpamClassifier yields block-list decisions.
type SpamClassifier interface {
	Classify(ctx context.Context, rawNumber string) (domain.SpamDecision, error)
}

const reasonSeparator = " | "

// CallerRiskEvaluator combines the caller-ID decision with the spam block list.
type CallerRiskEvaluator struct {
	callers CallerDecisionSource
	spam    SpamClassifier
	logger  *slog.Logger
}

// NewCallerRiskEvaluator grades callers from both sources. Errors from either
// source are returned unchanged.
func NewCallerRiskEvaluator(callers CallerDecisionSource, spam SpamClassifier, logger *slog.Logger) *CallerRiskEvaluator {
	return &CallerRiskEvaluator{
		callers: callers,
		spam:    spam,
		logger:  logger.With("component", "caller_risk_evaluator"),
	}
}

// EvaluateProfile returns the composite allow/warn verdict.
func (e *CallerRiskEvaluator) EvaluateProfile(ctx context.Context, rawNumber string) (domain.CallerProfileDecision, error) {
	caller, err := e.callers.Evaluate(ctx, rawNumber)
	if err != nil {
		return domain.CallerProfileDecision{}, err
	}
	spam, err := e.spam.Classify(ctx, rawNumber)
	if err != nil {
		return domain.CallerProfileDecision{}, err
	}
	return ComposeProfile(caller, spam), nil
}

// EvaluateRisk grades rawNumber and recommends an action.
func (e *CallerRiskEvaluator) EvaluateRisk(ctx context.Context, rawNumber string) (domain.CallerRiskProfile, error) {
	profile, err := e.EvaluateProfile(ctx, rawNumber)
	if err != nil {
		return domain.CallerRiskProfile{}, err
	}
	risk := GradeRisk(profile)
	riskLevelCounter.WithLabelValues(string(risk.RiskLevel)).Inc()
	e.logger.DebugContext(ctx, "Caller risk evaluated",
		"number", risk.NormalizedNumber, "level", risk.RiskLevel, "action", risk.Action)
	return risk, nil
}

// ComposeProfile merges a caller-ID decision with a spam decision.
func ComposeProfile(caller domain.CallerIdDecision, spam domain.SpamDecision) domain.CallerProfileDecision {
	var parts []string
	for _, r := range []*string{caller.Reason, spam.Reason} {
		if r != nil && strings.TrimSpace(*r) != "" {
			parts = append(parts, strings.TrimSpace(*r))
		}
	}
	var reason *string
	if joined := strings.Join(parts, reasonSeparator); joined != "" {
		reason = &joined
	}
	return domain.CallerProfileDecision{
		Caller:      caller,
		Spam:        spam,
		ShouldAllow: caller.ShouldAllow && !spam.IsBlocked,
		ShouldWarn:  spam.ShouldWarn || caller.ShouldWarn,
		Reason:      reason,
	}
}

// GradeRisk maps a composite decision onto a risk level and action. HIGH risk
// also raises the warning, on top of the caller-ID warn band.
//
// IsBlocked is the caller-ID verdict alone. A block-list hit shows up as
// RiskCritical and ActionBlock but leaves IsBlocked false.
func GradeRisk(profile domain.CallerProfileDecision) domain.CallerRiskProfile {
	score := profile.Caller.SpamScore

	var level domain.RiskLevel
	switch {
	case !profile.ShouldAllow:
		level = domain.RiskCritical
	case score >= domain.BlockScore:
		level = domain.RiskHigh
	case score >= domain.MediumRiskScore:
		level = domain.RiskMedium
	default:
		level = domain.RiskLow
	}

	action := domain.ActionAllow
	switch level {
	case domain.RiskCritical:
		action = domain.ActionBlock
	case domain.RiskHigh:
		action = domain.ActionWarn
	}

	reasons := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	add := func(s string) {
		if _, dup := seen[s]; dup {
			return
		}
		seen[s] = struct{}{}
		reasons = append(reasons, s)
	}
	if profile.Reason != nil {
		add(*profile.Reason)
	}
	if c := profile.Caller.City; c != nil && strings.TrimSpace(*c) != "" {
		add("city=" + strings.TrimSpace(*c))
	}
	if c := profile.Caller.Carrier; c != nil && strings.TrimSpace(*c) != "" {
		add("carrier=" + strings.TrimSpace(*c))
	}

	return domain.CallerRiskProfile{
		NormalizedNumber: profile.Caller.NormalizedNumber,
		RiskLevel:        level,
		SpamScore:        score,
		IsBlocked:        profile.Caller.IsBlocked,
		ShouldWarn:       profile.ShouldWarn || level == domain.RiskHigh,
		Reasons:          reasons,
		Action:           action,
	}
}
