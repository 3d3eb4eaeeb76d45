package domain

import (
	"context"
	"time"

	"github.com/jdialer/commhub/internal/core_domain"
)

// Platform ids of the built-in adapters.
const (
	PlatformWhatsApp         = "whatsapp"
	PlatformWhatsAppBusiness = "whatsapp_business"
	PlatformTelegram         = "telegram"
	PlatformSignal           = "signal"
	PlatformEmail            = "email"
)

// CommunicationAppAdapter launches one external communication platform.
type CommunicationAppAdapter interface {
	ID() string
	SupportedActions() []core_domain.AdapterAction
	// Priority orders adapters for the same action, highest first.
	Priority() int
	// CanHandle may query the device and should be treated as slow I/O.
	CanHandle(ctx context.Context, target core_domain.CommunicationTarget) bool
	Launch(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, text *string) core_domain.IntentResult
}

// RouteProfile describes how a platform would carry a contact right now,
// without launching anything.
type RouteProfile struct {
	Platform            string  `json:"platform"`
	CanLaunch           bool    `json:"can_launch"`
	SelectedPackage     *string `json:"selected_package,omitempty"`
	SupportsCall        bool    `json:"supports_call"`
	UseBusinessEndpoint bool    `json:"use_business_endpoint,omitempty"`
	Reason              string  `json:"reason"`
}

// RouteProfiler is implemented by adapters that can describe their route.
type RouteProfiler interface {
	RouteProfile(ctx context.Context, target core_domain.CommunicationTarget) RouteProfile
}

// Supports reports whether adapter lists action among its supported actions.
func Supports(adapter CommunicationAppAdapter, action core_domain.AdapterAction) bool {
	for _, a := range adapter.SupportedActions() {
		if a == action {
			return true
		}
	}
	return false
}

// LaunchIntent is a deep link handed to the device.
type LaunchIntent struct {
	Platform string            `json:"platform"`
	Action   string            `json:"action"` // VIEW, SENDTO
	URI      string            `json:"uri"`
	Package  *string           `json:"package,omitempty"`
	Extras   map[string]string `json:"extras,omitempty"`
	Chooser  *string           `json:"chooser,omitempty"`
}

const (
	IntentActionView   = "VIEW"
	IntentActionSendTo = "SENDTO"
)

// IntentLauncher starts a LaunchIntent on the device.
type IntentLauncher interface {
	Launch(ctx context.Context, intent LaunchIntent) error
}

// PackageChecker reports whether an app package is installed on the device.
type PackageChecker interface {
	IsInstalled(ctx context.Context, packageName string) (bool, error)
}

// ConversationLink records that a contact was reached on a platform before.
type ConversationLink struct {
	LinkID     string    `json:"link_id"`
	ContactID  int64     `json:"contact_id"`
	Platform   string    `json:"platform"`
	Handle     string    `json:"handle"`
	ResolvedBy string    `json:"resolved_by"`
	IsEnabled  bool      `json:"is_enabled"`
	IsBlocked  bool      `json:"is_blocked"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Eligible reports whether the router may use this link.
func (l ConversationLink) Eligible() bool {
	return l.IsEnabled && !l.IsBlocked
}

type ConversationLinkRepository interface {
	// GetLink returns ErrNotFound when the contact has no link for platform.
	GetLink(ctx context.Context, contactID int64, platform string) (*ConversationLink, error)
	Upsert(ctx context.Context, link ConversationLink) error
	Clear(ctx context.Context, contactID int64, platform string) error
	ListForContact(ctx context.Context, contactID int64) ([]ConversationLink, error)
}
