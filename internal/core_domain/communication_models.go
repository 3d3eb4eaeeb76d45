package core_domain

import (
	"strings"
)

// AdapterAction is the kind of outbound communication being launched.
type AdapterAction string

const (
	ActionCall    AdapterAction = "CALL"
	ActionMessage AdapterAction = "MESSAGE"
	ActionEmail   AdapterAction = "EMAIL"
)

// ParseAdapterAction accepts the action names case-insensitively.
func ParseAdapterAction(s string) (AdapterAction, bool) {
	switch AdapterAction(strings.ToUpper(strings.TrimSpace(s))) {
	case ActionCall:
		return ActionCall, true
	case ActionMessage:
		return ActionMessage, true
	case ActionEmail:
		return ActionEmail, true
	}
	return "", false
}

// CommunicationTarget describes who is being contacted.
type CommunicationTarget struct {
	ContactID    *int64   `json:"contact_id,omitempty"`
	ContactName  string   `json:"contact_name"`
	PhoneNumber  *string  `json:"phone_number,omitempty"`
	EmailAddress *string  `json:"email_address,omitempty"`
	MediaURIs    []string `json:"media_uris,omitempty"`
}

// Phone returns the trimmed phone number or "".
func (t CommunicationTarget) Phone() string {
	if t.PhoneNumber == nil {
		return ""
	}
	return strings.TrimSpace(*t.PhoneNumber)
}

// Email returns the trimmed email address or "".
func (t CommunicationTarget) Email() string {
	if t.EmailAddress == nil {
		return ""
	}
	return strings.TrimSpace(*t.EmailAddress)
}

// HasMedia reports whether the target carries media attachments.
func (t CommunicationTarget) HasMedia() bool {
	return len(t.MediaURIs) > 0
}

// NormalizeNumber keeps the digits of raw and a leading '+'. A '+' anywhere
// else is dropped, so NormalizeNumber(NormalizeNumber(x)) == NormalizeNumber(x).
func NormalizeNumber(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// NonBlank returns a trimmed copy of s, or nil when s is nil or blank.
func NonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
