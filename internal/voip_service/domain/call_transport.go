package domain

import (
	"context"
	"errors"
	"strings"
)

// TransportType is how a call leaves the device.
type TransportType string

const (
	TransportTelecom      TransportType = "TELECOM"
	TransportSIP          TransportType = "SIP"
	TransportFallbackDial TransportType = "FALLBACK_DIAL"
	TransportBlocked      TransportType = "BLOCKED"
)

const (
	ReasonInvalidTarget      = "Invalid dial target"
	ReasonNotDefaultDialer   = "Not default dialer role"
	ReasonDialerRoleRequired = "App not registered as default dialer"
	ReasonSelfManagedTelecom = "Using Telecom ConnectionService"
	ReasonDirectTelecom      = "Using direct fallback telecom dial"
	ReasonTelecomUnavailable = "Telecom unavailable"
	sipProfileReasonPrefix   = "Using SIP profile "
)

// SipProfileReason is the reason recorded when a SIP profile carries the call.
func SipProfileReason(profileID string) string {
	return sipProfileReasonPrefix + profileID
}

// ErrNotFound is returned by SipProfileRepository when no profile is active.
var ErrNotFound = errors.New("sip profile not found")

// CallTransportDecision is the chosen transport for one dial attempt.
type CallTransportDecision struct {
	Address       string        `json:"address"`
	TransportType TransportType `json:"transport_type"`
	Reason        string        `json:"reason"`
	UseSipURI     bool          `json:"use_sip_uri"`
	Routed        bool          `json:"routed"`
}

// TelecomPolicy controls which transports the resolver may choose.
type TelecomPolicy struct {
	AllowSipWhenEnabled  bool
	AllowTelecomFallback bool
	RequireDefaultDialer bool
	AllowFallbackDial    bool
	RequireValidAddress  bool
}

// DefaultTelecomPolicy enables every option.
func DefaultTelecomPolicy() TelecomPolicy {
	return TelecomPolicy{
		AllowSipWhenEnabled:  true,
		AllowTelecomFallback: true,
		RequireDefaultDialer: true,
		AllowFallbackDial:    true,
		RequireValidAddress:  true,
	}
}

// SipProfile is a SIP account usable for outbound calls.
type SipProfile struct {
	ProfileID string `json:"profile_id"`
	Username  string `json:"username"`
	Domain    string `json:"domain"`
	Transport string `json:"transport"`
	Port      int    `json:"port"`
	Enabled   bool   `json:"enabled"`
}

// DefaultSipProfile is the disabled placeholder used when none is configured.
func DefaultSipProfile() SipProfile {
	return SipProfile{ProfileID: "default", Transport: "UDP", Port: 5060}
}

// Usable reports whether calls can be routed over this profile.
func (p SipProfile) Usable() bool {
	return p.Enabled && strings.TrimSpace(p.Domain) != "" && strings.TrimSpace(p.Username) != ""
}

// TelecomRole describes the app's standing with the platform telecom stack.
type TelecomRole struct {
	IsDefaultDialer       bool `json:"is_default_dialer"`
	SelfManagedRegistered bool `json:"self_managed_registered"`
}

// DialRequest is handed to the platform dispatcher.
type DialRequest struct {
	Address       string        `json:"address"`
	TransportType TransportType `json:"transport_type"`
	UseSipURI     bool          `json:"use_sip_uri"`
}

// SipProfileRepository returns the active SIP profile.
type SipProfileRepository interface {
	// GetActive returns ErrNotFound when no profile is active.
	GetActive(ctx context.Context) (*SipProfile, error)
	// Save stores profile and, when active is true, makes it the only active one.
	Save(ctx context.Context, profile SipProfile, active bool) error
}

// TelecomRoleProvider reports the app's telecom role.
type TelecomRoleProvider interface {
	TelecomRole(ctx context.Context) (TelecomRole, error)
}

// CallDispatcher places a call on the platform.
type CallDispatcher interface {
	Dial(ctx context.Context, req DialRequest) error
}
