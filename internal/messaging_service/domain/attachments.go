package domain

import (
	"context"
	"fmt"
)

const (
	ReasonAttachmentLimit      = "Attachment limit exceeded"
	ReasonNotInspectable       = "One or more media items cannot be inspected"
	ReasonMissingMime          = "Missing MIME type for attachment"
	ReasonTypeNotPermitted     = "Attachment type not permitted by policy"
	ReasonSourceNotPermitted   = "Attachment source is not permitted"
	ReasonImageTooLarge        = "Image exceeds allowed dimensions"
	ReasonCombinedQuotaReached = "Combined attachments exceed policy quota"
)

// AttachmentTooLargeReason names the oversized attachment.
func AttachmentTooLargeReason(uri string) string {
	return "Attachment too large: " + uri
}

// UnsupportedTypeReason names the rejected MIME type.
func UnsupportedTypeReason(mime string) string {
	return "Unsupported attachment type: " + mime
}

// MessageAttachmentMeta is what inspecting a media URI yields.
type MessageAttachmentMeta struct {
	URI      string  `json:"uri"`
	FileName *string `json:"file_name,omitempty"`
	MimeType *string `json:"mime_type,omitempty"`
	Bytes    int64   `json:"bytes"`
	Width    *int    `json:"width,omitempty"`
	Height   *int    `json:"height,omitempty"`
}

// AttachmentPolicy bounds what may be sent as message media.
type AttachmentPolicy struct {
	MaxAttachments            int
	MaxSingleAttachmentBytes  int64
	MaxTotalBytes             int64
	MaxImageWidth             int
	MaxImageHeight            int
	AllowedMimePrefixes       []string
	DisallowDocumentByDefault bool
	DisallowedSchemes         []string
}

func DefaultAttachmentPolicy() AttachmentPolicy {
	return AttachmentPolicy{
		MaxAttachments:            8,
		MaxSingleAttachmentBytes:  10 * 1024 * 1024,
		MaxTotalBytes:             24 * 1024 * 1024,
		MaxImageWidth:             2048,
		MaxImageHeight:            2048,
		AllowedMimePrefixes:       []string{"image/", "video/", "audio/"},
		DisallowDocumentByDefault: true,
		DisallowedSchemes:         []string{"content://com.google.android.apps.nbu.paisaapi", "file:///proc"},
	}
}

// MessageAttachmentValidation is AttachmentsAccepted or AttachmentsRejected.
type MessageAttachmentValidation interface {
	isAttachmentValidation()
}

type AttachmentsAccepted struct {
	Attachments []MessageAttachmentMeta `json:"attachments"`
}

type AttachmentsRejected struct {
	Reason       string   `json:"reason"`
	RejectedURIs []string `json:"rejected_uris"`
	BlockedBytes *int64   `json:"blocked_bytes,omitempty"`
}

func (AttachmentsAccepted) isAttachmentValidation() {}
func (AttachmentsRejected) isAttachmentValidation() {}

// MediaInspector resolves metadata for media URIs. Items it cannot inspect are
// left out of the result.
type MediaInspector interface {
	Inspect(ctx context.Context, uris []string) ([]MessageAttachmentMeta, error)
}

// AttachmentRejectedError is returned when a send is refused by the attachment policy.
type AttachmentRejectedError struct {
	Rejection AttachmentsRejected
}

func (e *AttachmentRejectedError) Error() string {
	return fmt.Sprintf("attachments rejected: %s", e.Rejection.Reason)
}
