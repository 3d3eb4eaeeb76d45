package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	calleriddomain "github.com/jdialer/commhub/internal/callerid_service/domain"
	"github.com/jdialer/commhub/internal/core_domain"
	messagingdomain "github.com/jdialer/commhub/internal/messaging_service/domain"
	voipdomain "github.com/jdialer/commhub/internal/voip_service/domain"
)

// EvaluateCallerRequest is the body of POST /callers/evaluate.
type EvaluateCallerRequest struct {
	Number string `json:"number" validate:"required,max=64"`
}

// EvaluateCallerResponse carries the caller-ID verdict and the combined risk grade.
type EvaluateCallerResponse struct {
	Decision calleriddomain.CallerIdDecision  `json:"decision"`
	Risk     calleriddomain.CallerRiskProfile `json:"risk"`
}

// BlockCallerRequest is the body of PUT /callers/{number}/block.
type BlockCallerRequest struct {
	Blocked *bool `json:"blocked" validate:"required"`
}

// CallRequest is the body of POST /calls/resolve and POST /calls/place.
type CallRequest struct {
	Address   string `json:"address" validate:"max=256"`
	PreferSip bool   `json:"prefer_sip"`
}

// RecordingRequest is the body of POST /calls/recordings and POST /calls/recordings/validate.
type RecordingRequest struct {
	SessionID     string `json:"session_id" validate:"required,max=128"`
	Number        string `json:"number" validate:"max=64"`
	UserConsented bool   `json:"user_consented"`
}

// RecordingResponse renders a RecordingDecision. Recording is set once a
// recording was started.
type RecordingResponse struct {
	Status    string                         `json:"status"` // allowed, denied
	Code      voipdomain.RecordingDenialCode `json:"code,omitempty"`
	Reason    string                         `json:"reason,omitempty"`
	Recording *voipdomain.CallRecording      `json:"recording,omitempty"`
}

func newRecordingResponse(decision voipdomain.RecordingDecision, rec *voipdomain.CallRecording) RecordingResponse {
	if d, ok := decision.(voipdomain.RecordingDenied); ok {
		return RecordingResponse{Status: "denied", Code: d.Code, Reason: d.Reason}
	}
	return RecordingResponse{Status: "allowed", Recording: rec}
}

// MessageRequest is the body of POST /messages/resolve and POST /messages/send.
type MessageRequest struct {
	Recipient      string   `json:"recipient" validate:"max=64"`
	Text           *string  `json:"text,omitempty"`
	AttachmentURIs []string `json:"attachment_uris,omitempty" validate:"max=50,dive,required"`
	ThreadID       *string  `json:"thread_id,omitempty"`
}

// ValidateAttachmentsRequest is the body of POST /messages/attachments/validate.
type ValidateAttachmentsRequest struct {
	URIs []string `json:"uris" validate:"max=50,dive,required"`
}

// AttachmentValidationResponse flattens the accepted/rejected outcome.
type AttachmentValidationResponse struct {
	Status       string                                  `json:"status"` // accepted, rejected
	Attachments  []messagingdomain.MessageAttachmentMeta `json:"attachments,omitempty"`
	Reason       string                                  `json:"reason,omitempty"`
	RejectedURIs []string                                `json:"rejected_uris,omitempty"`
	BlockedBytes *int64                                  `json:"blocked_bytes,omitempty"`
}

func newAttachmentValidationResponse(v messagingdomain.MessageAttachmentValidation) AttachmentValidationResponse {
	switch res := v.(type) {
	case messagingdomain.AttachmentsRejected:
		return AttachmentValidationResponse{
			Status:       "rejected",
			Reason:       res.Reason,
			RejectedURIs: res.RejectedURIs,
			BlockedBytes: res.BlockedBytes,
		}
	case messagingdomain.AttachmentsAccepted:
		return AttachmentValidationResponse{Status: "accepted", Attachments: res.Attachments}
	default:
		return AttachmentValidationResponse{Status: "accepted"}
	}
}

// LaunchRequest is the body of POST /integrations/launch. A non-empty
// Platform launches that platform only.
type LaunchRequest struct {
	Action       string   `json:"action" validate:"required"`
	Platform     string   `json:"platform,omitempty" validate:"max=32"`
	ContactID    *int64   `json:"contact_id,omitempty"`
	ContactName  string   `json:"contact_name,omitempty"`
	PhoneNumber  *string  `json:"phone_number,omitempty"`
	EmailAddress *string  `json:"email_address,omitempty" validate:"omitempty,email"`
	MediaURIs    []string `json:"media_uris,omitempty" validate:"max=50,dive,required"`
	Text         *string  `json:"text,omitempty"`
}

func (r LaunchRequest) target() core_domain.CommunicationTarget {
	return core_domain.CommunicationTarget{
		ContactID:    r.ContactID,
		ContactName:  r.ContactName,
		PhoneNumber:  r.PhoneNumber,
		EmailAddress: r.EmailAddress,
		MediaURIs:    r.MediaURIs,
	}
}

// RouteProfilesRequest is the body of POST /integrations/routes.
type RouteProfilesRequest struct {
	PhoneNumber  *string `json:"phone_number,omitempty" validate:"omitempty,max=64"`
	EmailAddress *string `json:"email_address,omitempty" validate:"omitempty,email"`
}

// LaunchResponse renders an IntentResult.
type LaunchResponse struct {
	Status string `json:"status"` // success, unavailable, failure
	Reason string `json:"reason,omitempty"`
}

func newLaunchResponse(res core_domain.IntentResult) LaunchResponse {
	switch r := res.(type) {
	case core_domain.IntentUnavailable:
		return LaunchResponse{Status: r.Status(), Reason: r.Reason}
	case core_domain.IntentFailure:
		return LaunchResponse{Status: r.Status(), Reason: r.Message}
	default:
		return LaunchResponse{Status: res.Status()}
	}
}

// UpsertLinkRequest is the body of PUT /integrations/links.
type UpsertLinkRequest struct {
	ContactID  int64  `json:"contact_id" validate:"required,gt=0"`
	Platform   string `json:"platform" validate:"required,oneof=whatsapp whatsapp_business telegram signal email"`
	Handle     string `json:"handle" validate:"required,max=256"`
	ResolvedBy string `json:"resolved_by,omitempty" validate:"max=32"`
	IsEnabled  *bool  `json:"is_enabled,omitempty"`
	IsBlocked  bool   `json:"is_blocked"`
}

// SetPolicyFlagRequest is the body of PUT /integrations/policy/{key}.
type SetPolicyFlagRequest struct {
	Value *bool `json:"value" validate:"required"`
}

// GenericErrorResponse for API errors
type GenericErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, logger *slog.Logger, message string, statusCode int) {
	writeJSON(w, logger, statusCode, GenericErrorResponse{Error: message})
}
