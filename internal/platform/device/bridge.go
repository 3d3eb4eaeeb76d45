// Package device talks to the handset over NATS request/reply. Each call
// sends a correlated envelope on a device.* subject and waits for one reply.
package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	integration "github.com/jdialer/commhub/internal/integration_service/domain"
	messaging "github.com/jdialer/commhub/internal/messaging_service/domain"
	voip "github.com/jdialer/commhub/internal/voip_service/domain"
)

const (
	SubjectCallDial            = "device.call.dial"
	SubjectIntentLaunch        = "device.intent.launch"
	SubjectPackagesInstalled   = "device.packages.installed"
	SubjectTelecomRole         = "device.telecom.role"
	SubjectMessageCapabilities = "device.messages.capabilities"
	SubjectMediaInspect        = "device.media.inspect"
)

var (
	// ErrDeviceRejected is returned when the device answers with ok=false.
	ErrDeviceRejected = errors.New("device rejected request")
	// ErrCorrelationMismatch is returned when a reply carries another request id.
	ErrCorrelationMismatch = errors.New("device reply correlation mismatch")
)

// Requester sends one request and waits for its reply.
// messagebroker.NatsClient implements it.
type Requester interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
}

type envelope struct {
	RequestID string `json:"request_id"`
	Payload   any    `json:"payload,omitempty"`
}

type reply struct {
	RequestID string          `json:"request_id"`
	OK        bool            `json:"ok"`
	Error     string          `json:"error,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Bridge implements the platform-side ports (dialing, intents, package and
// role probes, RCS capability and media inspection) against the device.
type Bridge struct {
	requester Requester
	timeout   time.Duration
	logger    *slog.Logger
}

var (
	_ voip.CallDispatcher             = (*Bridge)(nil)
	_ voip.TelecomRoleProvider        = (*Bridge)(nil)
	_ integration.IntentLauncher      = (*Bridge)(nil)
	_ integration.PackageChecker      = (*Bridge)(nil)
	_ messaging.RcsCapabilityProvider = (*Bridge)(nil)
	_ messaging.MediaInspector        = (*Bridge)(nil)
)

// NewBridge bounds every device request by timeout, 5s when non-positive.
func NewBridge(requester Requester, timeout time.Duration, logger *slog.Logger) *Bridge {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Bridge{requester: requester, timeout: timeout, logger: logger.With("component", "device_bridge")}
}

// call sends payload on subject and decodes the reply payload into out, if out is non-nil.
func (b *Bridge) call(ctx context.Context, subject string, payload any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	id := uuid.NewString()
	data, err := json.Marshal(envelope{RequestID: id, Payload: payload})
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", subject, err)
	}

	start := time.Now()
	raw, err := b.requester.Request(ctx, subject, data)
	deviceRequestDurationHist.WithLabelValues(subject).Observe(time.Since(start).Seconds())
	if err != nil {
		deviceRequestsCounter.WithLabelValues(subject, "error").Inc()
		b.logger.WarnContext(ctx, "Device request failed", "subject", subject, "request_id", id, "error", err)
		return err
	}

	var rep reply
	if err := json.Unmarshal(raw, &rep); err != nil {
		deviceRequestsCounter.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("decoding %s reply: %w", subject, err)
	}
	if rep.RequestID != id {
		deviceRequestsCounter.WithLabelValues(subject, "error").Inc()
		return fmt.Errorf("%w: sent %s, got %s", ErrCorrelationMismatch, id, rep.RequestID)
	}
	if !rep.OK {
		deviceRequestsCounter.WithLabelValues(subject, "rejected").Inc()
		return fmt.Errorf("%w: %s: %s", ErrDeviceRejected, subject, rep.Error)
	}
	deviceRequestsCounter.WithLabelValues(subject, "ok").Inc()

	if out == nil || len(rep.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(rep.Payload, out); err != nil {
		return fmt.Errorf("decoding %s payload: %w", subject, err)
	}
	return nil
}

func (b *Bridge) Dial(ctx context.Context, req voip.DialRequest) error {
	return b.call(ctx, SubjectCallDial, req, nil)
}

func (b *Bridge) TelecomRole(ctx context.Context) (voip.TelecomRole, error) {
	var role voip.TelecomRole
	err := b.call(ctx, SubjectTelecomRole, nil, &role)
	return role, err
}

func (b *Bridge) Launch(ctx context.Context, intent integration.LaunchIntent) error {
	return b.call(ctx, SubjectIntentLaunch, intent, nil)
}

func (b *Bridge) IsInstalled(ctx context.Context, packageName string) (bool, error) {
	var res struct {
		Installed bool `json:"installed"`
	}
	if err := b.call(ctx, SubjectPackagesInstalled, map[string]string{"package": packageName}, &res); err != nil {
		return false, err
	}
	return res.Installed, nil
}

func (b *Bridge) RcsCapability(ctx context.Context) (messaging.RcsCapability, error) {
	var capability messaging.RcsCapability
	if err := b.call(ctx, SubjectMessageCapabilities, nil, &capability); err != nil {
		return messaging.RcsCapability{}, err
	}
	if capability.DetectedAt.IsZero() {
		capability.DetectedAt = time.Now()
	}
	return capability, nil
}

// Inspect asks the device for metadata of content it owns. URIs the device
// cannot resolve are left out of the result.
func (b *Bridge) Inspect(ctx context.Context, uris []string) ([]messaging.MessageAttachmentMeta, error) {
	if len(uris) == 0 {
		return []messaging.MessageAttachmentMeta{}, nil
	}
	var res struct {
		Attachments []messaging.MessageAttachmentMeta `json:"attachments"`
	}
	if err := b.call(ctx, SubjectMediaInspect, map[string][]string{"uris": uris}, &res); err != nil {
		return nil, err
	}
	if res.Attachments == nil {
		return []messaging.MessageAttachmentMeta{}, nil
	}
	return res.Attachments, nil
}
