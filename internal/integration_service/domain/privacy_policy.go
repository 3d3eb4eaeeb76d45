package domain

import "context"

// Keys of the integration_privacy_policy table.
const (
	KeyAllowThirdPartyIntegrations = "allow_third_party_integrations"
	KeyAllowThirdPartyMessaging    = "allow_third_party_messaging"
	KeyAllowThirdPartyCalls        = "allow_third_party_calls"
	KeyAllowWhatsApp               = "allow_whatsapp"
	KeyAllowTelegram               = "allow_telegram"
	KeyAllowSignal                 = "allow_signal"
	KeyAllowEmail                  = "allow_email"
	KeyAllowMessageMedia           = "allow_message_media"
	KeyRequireExplicitConsent      = "require_explicit_consent"
	KeyRedactOutboundIdentity      = "redact_outbound_identity"
)

// IntegrationPrivacyPolicy is the user's consent configuration for external apps.
type IntegrationPrivacyPolicy struct {
	AllowThirdPartyIntegrations bool `json:"allow_third_party_integrations"`
	AllowThirdPartyMessaging    bool `json:"allow_third_party_messaging"`
	AllowThirdPartyCalls        bool `json:"allow_third_party_calls"`
	AllowWhatsApp               bool `json:"allow_whatsapp"`
	AllowTelegram               bool `json:"allow_telegram"`
	AllowSignal                 bool `json:"allow_signal"`
	AllowEmail                  bool `json:"allow_email"`
	AllowMessageMedia           bool `json:"allow_message_media"`
	RequireExplicitConsent      bool `json:"require_explicit_consent"` // stored and reported only; EvaluatePolicy ignores it
	RedactOutboundIdentity      bool `json:"redact_outbound_identity"`
}

// DefaultIntegrationPrivacyPolicy allows everything except media sharing.
func DefaultIntegrationPrivacyPolicy() IntegrationPrivacyPolicy {
	return IntegrationPrivacyPolicy{
		AllowThirdPartyIntegrations: true,
		AllowThirdPartyMessaging:    true,
		AllowThirdPartyCalls:        true,
		AllowWhatsApp:               true,
		AllowTelegram:               true,
		AllowSignal:                 true,
		AllowEmail:                  true,
		AllowMessageMedia:           false,
		RequireExplicitConsent:      true,
		RedactOutboundIdentity:      true,
	}
}

// Set assigns the flag stored under key. Unknown keys are ignored and reported false.
func (p *IntegrationPrivacyPolicy) Set(key string, value bool) bool {
	switch key {
	case KeyAllowThirdPartyIntegrations:
		p.AllowThirdPartyIntegrations = value
	case KeyAllowThirdPartyMessaging:
		p.AllowThirdPartyMessaging = value
	case KeyAllowThirdPartyCalls:
		p.AllowThirdPartyCalls = value
	case KeyAllowWhatsApp:
		p.AllowWhatsApp = value
	case KeyAllowTelegram:
		p.AllowTelegram = value
	case KeyAllowSignal:
		p.AllowSignal = value
	case KeyAllowEmail:
		p.AllowEmail = value
	case KeyAllowMessageMedia:
		p.AllowMessageMedia = value
	case KeyRequireExplicitConsent:
		p.RequireExplicitConsent = value
	case KeyRedactOutboundIdentity:
		p.RedactOutboundIdentity = value
	default:
		return false
	}
	return true
}

// IntegrationPolicyDecision is PolicyAllowed or PolicyBlocked.
type IntegrationPolicyDecision interface {
	isPolicyDecision()
}

type PolicyAllowed struct{}

type PolicyBlocked struct {
	Reason string
}

func (PolicyAllowed) isPolicyDecision() {}
func (PolicyBlocked) isPolicyDecision() {}

type PrivacyPolicyProvider interface {
	Policy(ctx context.Context) (IntegrationPrivacyPolicy, error)
}

// PrivacyPolicyStore persists individual policy flags.
type PrivacyPolicyStore interface {
	PrivacyPolicyProvider
	SetFlag(ctx context.Context, key string, value bool) error
}
