package provider

import (
	"context"
	"time"

	"github.com/jdialer/commhub/internal/messaging_service/domain"
)

// StaticRcsProvider reports an RCS capability fixed by configuration.
type StaticRcsProvider struct {
	capability domain.RcsCapability
	now        func() time.Time
}

// NewStaticRcsProvider is used when the device is not asked. DetectedAt is
// stamped on each call.
func NewStaticRcsProvider(enabledByDefaultSmsApp, carrierService, supportsMmsFallback bool) *StaticRcsProvider {
	return &StaticRcsProvider{
		capability: domain.RcsCapability{
			EnabledByDefaultSmsApp:    enabledByDefaultSmsApp,
			AvailableAsCarrierService: carrierService,
			SupportsRcsMmsFallback:    supportsMmsFallback,
		},
		now: time.Now,
	}
}

func (p *StaticRcsProvider) RcsCapability(_ context.Context) (domain.RcsCapability, error) {
	c := p.capability
	c.DetectedAt = p.now().UTC()
	return c, nil
}
