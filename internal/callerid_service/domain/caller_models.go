package domain

import (
	"time"
)

const (
	// WarnScoreMin and WarnScoreMax bound the caller-ID warn band (inclusive).
	WarnScoreMin = 60
	WarnScoreMax = 79
	// BlockScore is the spam score at which a caller is blocked.
	BlockScore = 80
	// MediumRiskScore is the lower bound of MEDIUM risk.
	MediumRiskScore = 45
	// SpamWarnConfidence is the spam profile confidence that raises a warning.
	SpamWarnConfidence = 70

	ReasonProfileUnavailable = "Caller profile not available"
	ReasonManualBlock        = "Manual block"
)

// CallerIdDecision is the allow/warn/block verdict for one normalized number.
type CallerIdDecision struct {
	NormalizedNumber string  `json:"normalized_number"`
	ShouldAllow      bool    `json:"should_allow"`
	ShouldWarn       bool    `json:"should_warn"`
	IsBlocked        bool    `json:"is_blocked"`
	DisplayName      *string `json:"display_name,omitempty"`
	City             *string `json:"city,omitempty"`
	Carrier          *string `json:"carrier,omitempty"`
	Reason           *string `json:"reason,omitempty"`
	SpamScore        int     `json:"spam_score"`
}

// CallerRiskRecord is a row of the caller risk store.
type CallerRiskRecord struct {
	NormalizedNumber string
	DisplayName      *string
	City             *string
	Carrier          *string
	IsSpam           bool
	SpamScore        int
	Reason           *string
	LastCheckedAt    time.Time
	IsUserBlocked    bool
	UpdatedAt        time.Time
}

// ToDecision converts a stored record into a decision.
func (r CallerRiskRecord) ToDecision() CallerIdDecision {
	blocked := r.IsSpam || r.IsUserBlocked
	return CallerIdDecision{
		NormalizedNumber: r.NormalizedNumber,
		ShouldAllow:      !blocked,
		ShouldWarn:       InWarnBand(r.SpamScore),
		IsBlocked:        blocked,
		DisplayName:      r.DisplayName,
		City:             r.City,
		Carrier:          r.Carrier,
		Reason:           r.Reason,
		SpamScore:        r.SpamScore,
	}
}

// IsFresh reports whether the record was checked less than ttl before now.
func (r CallerRiskRecord) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.LastCheckedAt) < ttl
}

// CallerLookupResult is what the remote caller-ID provider reports.
type CallerLookupResult struct {
	DisplayName *string
	City        *string
	Carrier     *string
	Reason      *string
	IsSpam      bool
	SpamScore   int
}

// ToDecision merges a remote lookup into a decision.
func (l CallerLookupResult) ToDecision(normalized string) CallerIdDecision {
	return CallerIdDecision{
		NormalizedNumber: normalized,
		ShouldAllow:      l.SpamScore < BlockScore && !l.IsSpam,
		ShouldWarn:       InWarnBand(l.SpamScore),
		IsBlocked:        l.IsSpam || l.SpamScore >= BlockScore,
		DisplayName:      l.DisplayName,
		City:             l.City,
		Carrier:          l.Carrier,
		Reason:           l.Reason,
		SpamScore:        l.SpamScore,
	}
}

// DefaultDecision is returned when nothing is known about a number.
func DefaultDecision(normalized string) CallerIdDecision {
	reason := ReasonProfileUnavailable
	return CallerIdDecision{
		NormalizedNumber: normalized,
		ShouldAllow:      true,
		Reason:           &reason,
	}
}

// InWarnBand reports whether score falls in the warn band.
func InWarnBand(score int) bool {
	return score >= WarnScoreMin && score <= WarnScoreMax
}

// ClampScore bounds a spam score to [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// SpamProfile is a row of the spam block-list store.
type SpamProfile struct {
	NormalizedNumber string    `json:"normalized_number"`
	ConfidenceScore  int       `json:"confidence_score"`
	Reason           *string   `json:"reason,omitempty"`
	ShouldBlock      bool      `json:"should_block"`
	Source           string    `json:"source"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SpamDecision is the block-list classifier verdict.
type SpamDecision struct {
	IsAllowed  bool    `json:"is_allowed"`
	ShouldWarn bool    `json:"should_warn"`
	IsBlocked  bool    `json:"is_blocked"`
	Reason     *string `json:"reason,omitempty"`
}

// RiskLevel grades a caller.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskAction is the recommended handling for a risk level.
type RiskAction string

const (
	ActionAllow RiskAction = "allow"
	ActionWarn  RiskAction = "warn"
	ActionBlock RiskAction = "block"
)

// CallerProfileDecision composes the caller-ID decision with the spam decision.
type CallerProfileDecision struct {
	Caller      CallerIdDecision `json:"caller"`
	Spam        SpamDecision     `json:"spam"`
	ShouldAllow bool             `json:"should_allow"`
	ShouldWarn  bool             `json:"should_warn"`
	Reason      *string          `json:"reason,omitempty"`
}

// CallerRiskProfile is the graded view of a caller.
type CallerRiskProfile struct {
	NormalizedNumber string     `json:"normalized_number"`
	RiskLevel        RiskLevel  `json:"risk_level"`
	SpamScore        int        `json:"spam_score"`
	IsBlocked        bool       `json:"is_blocked"` // caller-ID verdict only
	ShouldWarn       bool       `json:"should_warn"`
	Reasons          []string   `json:"reasons"`
	Action           RiskAction `json:"action"`
}
