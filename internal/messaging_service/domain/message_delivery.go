package domain

import (
	"context"
	"time"
)

// MessageMode is the transport that carries an outbound message.
type MessageMode string

const (
	ModeSMS MessageMode = "SMS"
	ModeMMS MessageMode = "MMS"
	ModeRCS MessageMode = "RCS"
)

const (
	ReasonInvalidRecipient   = "Invalid recipient"
	ReasonOverSmsThreshold   = "Message exceeds SMS threshold"
	ReasonAttachmentsPresent = "Attachments present"
	ReasonLongFormBody       = "Long-form thread body requires MMS"
	ReasonRcsDefaultApp      = "Default SMS/RCS app reports capability"
	ReasonRcsCarrier         = "Carrier transport supports RCS"
	ReasonPolicyPrefersSms   = "Policy prefers SMS fallback"
	ReasonRcsNotAvailable    = "RCS not available"
)

// MessageDeliveryPolicy tunes how the delivery mode is picked.
type MessageDeliveryPolicy struct {
	PreferRcs                       bool
	FallbackToSmsWhenRcsUnavailable bool
	PreferRcsForShortMessages       bool
	MaxSmsCharacters                int
	MmsFallbackLength               int
	RequiresAttachmentAsMms         bool
}

func DefaultMessageDeliveryPolicy() MessageDeliveryPolicy {
	return MessageDeliveryPolicy{
		PreferRcs:                       true,
		FallbackToSmsWhenRcsUnavailable: true,
		PreferRcsForShortMessages:       true,
		MaxSmsCharacters:                620,
		MmsFallbackLength:               1500,
		RequiresAttachmentAsMms:         true,
	}
}

// MessageDeliveryDecision is the chosen mode for one outbound message.
type MessageDeliveryDecision struct {
	Recipient              string      `json:"recipient"`
	Mode                   MessageMode `json:"mode"`
	UseFallbackMms         bool        `json:"use_fallback_mms"`
	SecureChannelPreferred bool        `json:"secure_channel_preferred"`
	Reason                 string      `json:"reason"`
}

// RcsCapability is what the default messaging app and carrier report about RCS.
type RcsCapability struct {
	EnabledByDefaultSmsApp    bool      `json:"enabled_by_default_sms_app"`
	AvailableAsCarrierService bool      `json:"available_as_carrier_service"`
	DefaultSmsPackageName     *string   `json:"default_sms_package_name,omitempty"`
	SupportsRcsMmsFallback    bool      `json:"supports_rcs_mms_fallback"`
	RcsServicePackage         *string   `json:"rcs_service_package,omitempty"`
	DetectedAt                time.Time `json:"detected_at"`
}

// Usable reports whether either the default app or the carrier offers RCS.
func (c RcsCapability) Usable() bool {
	return c.EnabledByDefaultSmsApp || c.AvailableAsCarrierService
}

// RcsCapabilityProvider reports the current RCS capability.
type RcsCapabilityProvider interface {
	RcsCapability(ctx context.Context) (RcsCapability, error)
}

// OutboundMessageJob is published for the delivery workers.
type OutboundMessageJob struct {
	JobID         string                  `json:"job_id"`
	Recipient     string                  `json:"recipient"`
	Text          *string                 `json:"text,omitempty"`
	ThreadID      *string                 `json:"thread_id,omitempty"`
	Attachments   []MessageAttachmentMeta `json:"attachments,omitempty"`
	Decision      MessageDeliveryDecision `json:"decision"`
	SubmittedAtMs int64                   `json:"submitted_at_ms"`
}
