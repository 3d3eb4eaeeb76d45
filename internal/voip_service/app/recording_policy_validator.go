package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jdialer/commhub/internal/voip_service/domain"
)

// RecordingPolicyValidator decides whether a call may be recorded. Rules run in
// order and the first failing one denies: recording enabled, caller ID long
// enough, explicit consent, then the daily quota.
type RecordingPolicyValidator struct {
	policies   domain.RecordingPolicyStore
	recordings domain.CallRecordingRepository
	limits     domain.RecordingLimits
	location   *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

// NewRecordingPolicyValidator counts the daily quota from midnight in loc;
// a nil loc means time.Local.
func NewRecordingPolicyValidator(
	policies domain.RecordingPolicyStore,
	recordings domain.CallRecordingRepository,
	limits domain.RecordingLimits,
	loc *time.Location,
	logger *slog.Logger,
) *RecordingPolicyValidator {
	if loc == nil {
		loc = time.Local
	}
	return &RecordingPolicyValidator{
		policies:   policies,
		recordings: recordings,
		limits:     limits,
		location:   loc,
		now:        time.Now,
		logger:     logger.With("component", "recording_policy_validator"),
	}
}

// Validate returns the decision for session. Storage failures are returned as
// errors and never read as an allow.
func (v *RecordingPolicyValidator) Validate(ctx context.Context, session domain.RecordingSession) (domain.RecordingDecision, error) {
	decision, _, err := v.validate(ctx, session)
	if err != nil {
		recordingDecisionsCounter.WithLabelValues("error").Inc()
		return nil, err
	}
	v.observe(ctx, session, decision)
	return decision, nil
}

// Start validates session and, when allowed, logs the recording so it counts
// against today's quota.
func (v *RecordingPolicyValidator) Start(ctx context.Context, session domain.RecordingSession) (domain.RecordingDecision, *domain.CallRecording, error) {
	decision, policy, err := v.validate(ctx, session)
	if err != nil {
		recordingDecisionsCounter.WithLabelValues("error").Inc()
		return nil, nil, err
	}
	v.observe(ctx, session, decision)
	if _, ok := decision.(domain.RecordingAllowed); !ok {
		return decision, nil, nil
	}

	number := domain.RecordingCallerID(session.Number)
	if policy.RedactMetadata {
		number = MaskCallerID(number)
	}
	rec := domain.CallRecording{
		RecordingID: uuid.NewString(),
		SessionID:   session.SessionID,
		Number:      number,
		StartedAt:   v.now(),
	}
	if err := v.recordings.Insert(ctx, rec); err != nil {
		return nil, nil, fmt.Errorf("logging recording start: %w", err)
	}
	v.logger.InfoContext(ctx, "Recording started", "session_id", session.SessionID, "recording_id", rec.RecordingID)
	return decision, &rec, nil
}

func (v *RecordingPolicyValidator) validate(ctx context.Context, session domain.RecordingSession) (domain.RecordingDecision, domain.RecordingPrivacyPolicy, error) {
	policy, err := v.policies.Policy(ctx)
	if err != nil {
		return nil, policy, fmt.Errorf("loading recording policy: %w", err)
	}
	if !policy.RecordingEnabled {
		return denied(domain.DenialRecordingDisabled, domain.ReasonRecordingDisabled), policy, nil
	}
	if len(domain.RecordingCallerID(session.Number)) < v.limits.MinCallerIDLength {
		return denied(domain.DenialCallerIDTooShort, domain.ReasonCallerIDTooShort), policy, nil
	}
	if policy.RequireExplicitConsent && !session.UserConsented {
		return denied(domain.DenialConsentRequired, domain.ReasonConsentRequired), policy, nil
	}

	today, err := v.recordings.CountSince(ctx, v.startOfDay())
	if err != nil {
		return nil, policy, fmt.Errorf("counting today's recordings: %w", err)
	}
	if today >= v.limits.MaxRecordingsPerDay {
		return denied(domain.DenialDailyLimitReached, domain.ReasonDailyLimitReached), policy, nil
	}
	return domain.RecordingAllowed{}, policy, nil
}

func (v *RecordingPolicyValidator) startOfDay() time.Time {
	now := v.now().In(v.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.location)
}

func (v *RecordingPolicyValidator) observe(ctx context.Context, session domain.RecordingSession, decision domain.RecordingDecision) {
	switch d := decision.(type) {
	case domain.RecordingDenied:
		recordingDecisionsCounter.WithLabelValues(string(d.Code)).Inc()
		v.logger.InfoContext(ctx, "Recording denied", "session_id", session.SessionID, "code", d.Code)
	default:
		recordingDecisionsCounter.WithLabelValues("allowed").Inc()
	}
}

func denied(code domain.RecordingDenialCode, reason string) domain.RecordingDenied {
	return domain.RecordingDenied{Code: code, Reason: reason}
}

// MaskCallerID hides all but the last two characters of id.
func MaskCallerID(id string) string {
	if len(id) <= 2 {
		return strings.Repeat("*", len(id))
	}
	return strings.Repeat("*", len(id)-2) + id[len(id)-2:]
}
