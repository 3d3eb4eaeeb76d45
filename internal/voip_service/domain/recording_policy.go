package domain

import (
	"context"
	"strings"
	"time"
)

// RecordingPrivacyPolicy is the user's call-recording consent configuration.
type RecordingPrivacyPolicy struct {
	RecordingEnabled       bool `json:"recording_enabled"`
	RequireExplicitConsent bool `json:"require_explicit_consent"`
	AutoDeleteAfterDays    int  `json:"auto_delete_after_days"`
	AllowCloudBackup       bool `json:"allow_cloud_backup"`
	RedactMetadata         bool `json:"redact_metadata"`
	NotifyOnRecordingStart bool `json:"notify_on_recording_start"`
}

// DefaultRecordingPrivacyPolicy keeps recording off until the user opts in.
func DefaultRecordingPrivacyPolicy() RecordingPrivacyPolicy {
	return RecordingPrivacyPolicy{
		RecordingEnabled:       false,
		RequireExplicitConsent: true,
		AutoDeleteAfterDays:    30,
		AllowCloudBackup:       false,
		RedactMetadata:         true,
		NotifyOnRecordingStart: true,
	}
}

const (
	MinAutoDeleteDays = 1
	MaxAutoDeleteDays = 365
)

// ClampAutoDeleteDays bounds the retention to [MinAutoDeleteDays, MaxAutoDeleteDays].
func ClampAutoDeleteDays(days int) int {
	return max(MinAutoDeleteDays, min(MaxAutoDeleteDays, days))
}

// RecordingLimits are the compliance limits that are not user-editable.
type RecordingLimits struct {
	MaxRecordingsPerDay int
	MinCallerIDLength   int
}

func DefaultRecordingLimits() RecordingLimits {
	return RecordingLimits{MaxRecordingsPerDay: 40, MinCallerIDLength: 3}
}

// RecordingSession is a call the user asked to record.
type RecordingSession struct {
	SessionID     string `json:"session_id"`
	Number        string `json:"number"`
	UserConsented bool   `json:"user_consented"`
}

// RecordingCallerID keeps the digits and '+' of number. Unlike NormalizeNumber
// it does not strip a leading zero, so the length check sees what was dialled.
func RecordingCallerID(number string) string {
	var b strings.Builder
	for _, r := range number {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// RecordingDenialCode identifies which rule refused a recording.
type RecordingDenialCode string

const (
	DenialRecordingDisabled RecordingDenialCode = "recording_disabled"
	DenialCallerIDTooShort  RecordingDenialCode = "caller_id_too_short"
	DenialConsentRequired   RecordingDenialCode = "consent_required"
	DenialDailyLimitReached RecordingDenialCode = "daily_limit_reached"
)

const (
	ReasonRecordingDisabled = "Call recording disabled in privacy settings"
	ReasonCallerIDTooShort  = "Caller id too short for compliance policy"
	ReasonConsentRequired   = "Caller consent required"
	ReasonDailyLimitReached = "Recording limit reached for today"
)

// RecordingDecision is RecordingAllowed or RecordingDenied.
type RecordingDecision interface {
	isRecordingDecision()
}

type RecordingAllowed struct{}

type RecordingDenied struct {
	Code   RecordingDenialCode `json:"code"`
	Reason string              `json:"reason"`
}

func (RecordingAllowed) isRecordingDecision() {}
func (RecordingDenied) isRecordingDecision()  {}

// CallRecording is one started recording, as counted by the daily quota.
type CallRecording struct {
	RecordingID string    `json:"recording_id"`
	SessionID   string    `json:"session_id"`
	Number      string    `json:"number"`
	StartedAt   time.Time `json:"started_at"`
}

// RecordingPolicyStore persists the RecordingPrivacyPolicy.
type RecordingPolicyStore interface {
	// Policy returns DefaultRecordingPrivacyPolicy when nothing is stored.
	Policy(ctx context.Context) (RecordingPrivacyPolicy, error)
	Save(ctx context.Context, policy RecordingPrivacyPolicy) error
}

// CallRecordingRepository records started recordings.
type CallRecordingRepository interface {
	Insert(ctx context.Context, rec CallRecording) error
	// CountSince counts recordings started at or after since.
	CountSince(ctx context.Context, since time.Time) (int, error)
}
