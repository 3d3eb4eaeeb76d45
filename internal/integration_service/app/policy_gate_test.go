package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/integration_service/domain"
)

type MockPolicyProvider struct {
	mock.Mock
}

func (m *MockPolicyProvider) Policy(ctx context.Context) (domain.IntegrationPrivacyPolicy, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.IntegrationPrivacyPolicy), args.Error(1)
}

func policyWith(mutate func(p *domain.IntegrationPrivacyPolicy)) domain.IntegrationPrivacyPolicy {
	p := domain.DefaultIntegrationPrivacyPolicy()
	if mutate != nil {
		mutate(&p)
	}
	return p
}

func TestEvaluatePolicy(t *testing.T) {
	withMedia := phone("+98912")
	withMedia.MediaURIs = []string{"content://media/1"}
	mail := "a@b.c"
	emailTarget := core_domain.CommunicationTarget{EmailAddress: &mail}

	testCases := []struct {
		name     string
		policy   domain.IntegrationPrivacyPolicy
		target   core_domain.CommunicationTarget
		action   core_domain.AdapterAction
		platform string
		expected domain.IntegrationPolicyDecision
	}{
		{
			name:     "DefaultsAllowMessage",
			policy:   policyWith(nil),
			target:   phone("+98912"),
			action:   core_domain.ActionMessage,
			platform: "whatsapp",
			expected: domain.PolicyAllowed{},
		},
		{
			name:     "MasterSwitchWinsOverEverything",
			policy:   policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowThirdPartyIntegrations = false; p.AllowWhatsApp = false }),
			target:   withMedia,
			action:   core_domain.ActionMessage,
			platform: "whatsapp",
			expected: domain.PolicyBlocked{Reason: "Third-party integrations are disabled by policy."},
		},
		{
			name:     "MediaBlockedByDefault",
			policy:   policyWith(nil),
			target:   withMedia,
			action:   core_domain.ActionMessage,
			expected: domain.PolicyBlocked{Reason: "Media attachment sharing is disabled by policy."},
		},
		{
			name:     "MediaAllowedWhenEnabled",
			policy:   policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowMessageMedia = true }),
			target:   withMedia,
			action:   core_domain.ActionMessage,
			expected: domain.PolicyAllowed{},
		},
		{
			name:     "MessagingOff",
			policy:   policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowThirdPartyMessaging = false }),
			target:   phone("+98912"),
			action:   core_domain.ActionMessage,
			expected: domain.PolicyBlocked{Reason: "Message actions are blocked by messaging policy."},
		},
		{
			name:     "CallsOff",
			policy:   policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowThirdPartyCalls = false }),
			target:   phone("+98912"),
			action:   core_domain.ActionCall,
			expected: domain.PolicyBlocked{Reason: "Call actions are blocked by policy."},
		},
		{
			name:     "EmailOff",
			policy:   policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowEmail = false }),
			target:   emailTarget,
			action:   core_domain.ActionEmail,
			expected: domain.PolicyBlocked{Reason: "Email actions are blocked by policy."},
		},
		{
			name:     "WhatsAppOff",
			policy:   policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowWhatsApp = false }),
			target:   phone("+98912"),
			action:   core_domain.ActionMessage,
			platform: "WhatsApp",
			expected: domain.PolicyBlocked{Reason: "WhatsApp is disabled by policy."},
		},
		{
			name:     "TelegramOff",
			policy:   policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowTelegram = false }),
			target:   phone("+98912"),
			action:   core_domain.ActionCall,
			platform: "telegram",
			expected: domain.PolicyBlocked{Reason: "Telegram is disabled by policy."},
		},
		{
			name:     "SignalOff",
			policy:   policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowSignal = false }),
			target:   phone("+98912"),
			action:   core_domain.ActionMessage,
			platform: "signal",
			expected: domain.PolicyBlocked{Reason: "Signal is disabled by policy."},
		},
		{
			name:     "PlatformFlagIgnoredWithoutPlatform",
			policy:   policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowWhatsApp = false }),
			target:   phone("+98912"),
			action:   core_domain.ActionMessage,
			expected: domain.PolicyAllowed{},
		},
		{
			name:     "WhatsAppBusinessNotCoveredByWhatsAppFlag",
			policy:   policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowWhatsApp = false }),
			target:   phone("+98912"),
			action:   core_domain.ActionMessage,
			platform: "whatsapp_business",
			expected: domain.PolicyAllowed{},
		},
		{
			name:     "UnknownPlatformAllowed",
			policy:   policyWith(nil),
			target:   phone("+98912"),
			action:   core_domain.ActionMessage,
			platform: "viber",
			expected: domain.PolicyAllowed{},
		},
		{
			name:     "WhatsAppBusinessStillActionGated",
			policy:   policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowThirdPartyMessaging = false }),
			target:   phone("+98912"),
			action:   core_domain.ActionMessage,
			platform: "whatsapp_business",
			expected: domain.PolicyBlocked{Reason: "Message actions are blocked by messaging policy."},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, EvaluatePolicy(tc.policy, tc.target, tc.action, tc.platform))
		})
	}
}

func newGated(provider domain.PrivacyPolicyProvider, adapters ...domain.CommunicationAppAdapter) *GatedRegistry {
	logger := discardLogger()
	return NewGatedRegistry(NewIntegrationPolicyGate(provider, logger), NewAdapterRegistry(logger, adapters...), logger)
}

func TestGatedRegistry_LaunchPreferred(t *testing.T) {
	ctx := context.Background()

	t.Run("AllowedLaunches", func(t *testing.T) {
		wa := messenger("whatsapp", 100, true)
		provider := new(MockPolicyProvider)
		provider.On("Policy", mock.Anything).Return(policyWith(nil), nil)

		res := newGated(provider, wa).LaunchPreferred(ctx, phone("+98912"), core_domain.ActionMessage, nil)
		assert.Equal(t, core_domain.IntentSuccess{}, res)
		assert.EqualValues(t, 1, wa.launches.Load())
	})

	t.Run("ResolvedPlatformBlocked", func(t *testing.T) {
		wa := messenger("whatsapp", 100, true)
		provider := new(MockPolicyProvider)
		provider.On("Policy", mock.Anything).Return(policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowWhatsApp = false }), nil)

		res := newGated(provider, wa).LaunchPreferred(ctx, phone("+98912"), core_domain.ActionMessage, nil)
		assert.Equal(t, core_domain.IntentUnavailable{Reason: "WhatsApp is disabled by policy."}, res)
		assert.EqualValues(t, 0, wa.launches.Load())
	})

	t.Run("ActionBlockedBeforeProbing", func(t *testing.T) {
		wa := messenger("whatsapp", 100, true)
		provider := new(MockPolicyProvider)
		provider.On("Policy", mock.Anything).Return(policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowThirdPartyCalls = false }), nil)

		res := newGated(provider, wa).LaunchPreferred(ctx, phone("+98912"), core_domain.ActionCall, nil)
		assert.Equal(t, core_domain.IntentUnavailable{Reason: "Call actions are blocked by policy."}, res)
		assert.EqualValues(t, 0, wa.probes.Load())
	})

	t.Run("PolicyReadError", func(t *testing.T) {
		cause := errors.New("db down")
		provider := new(MockPolicyProvider)
		provider.On("Policy", mock.Anything).Return(domain.IntegrationPrivacyPolicy{}, cause)

		res := newGated(provider, messenger("whatsapp", 100, true)).LaunchPreferred(ctx, phone("+98912"), core_domain.ActionMessage, nil)
		f, ok := res.(core_domain.IntentFailure)
		require.True(t, ok)
		assert.Equal(t, "Integration policy unavailable", f.Message)
		assert.ErrorIs(t, f, cause)
	})
}

func TestGatedRegistry_LaunchForPlatform(t *testing.T) {
	tg := messenger("telegram", 90, true)
	provider := new(MockPolicyProvider)
	provider.On("Policy", mock.Anything).Return(policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowTelegram = false }), nil)
	gated := newGated(provider, tg)

	res := gated.LaunchForPlatform(context.Background(), phone("+98912"), core_domain.ActionMessage, "telegram", nil)
	assert.Equal(t, core_domain.IntentUnavailable{Reason: "Telegram is disabled by policy."}, res)
	assert.EqualValues(t, 0, tg.launches.Load())
}

func TestGatedRegistry_WhatsAppBusinessIgnoresWhatsAppFlag(t *testing.T) {
	wa := messenger("whatsapp", 100, true)
	wab := messenger("whatsapp_business", 90, true)
	provider := new(MockPolicyProvider)
	provider.On("Policy", mock.Anything).Return(policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowWhatsApp = false }), nil)
	gated := newGated(provider, wa, wab)

	res := gated.LaunchForPlatform(context.Background(), phone("+98912"), core_domain.ActionMessage, "whatsapp", nil)
	assert.Equal(t, core_domain.IntentUnavailable{Reason: "WhatsApp is disabled by policy."}, res)

	res = gated.LaunchForPlatform(context.Background(), phone("+98912"), core_domain.ActionMessage, "whatsapp_business", nil)
	assert.Equal(t, core_domain.IntentSuccess{}, res)
	assert.EqualValues(t, 0, wa.launches.Load())
	assert.EqualValues(t, 1, wab.launches.Load())
}

func TestRedactHandle(t *testing.T) {
	assert.Equal(t, "", RedactHandle(""))
	a := RedactHandle("+98912")
	assert.Len(t, a, 64)
	assert.Equal(t, a, RedactHandle("+98912"))
	assert.NotEqual(t, a, RedactHandle("+98913"))
}

// profiledAdapter adds a fixed RouteProfile to a fakeAdapter.
type profiledAdapter struct {
	*fakeAdapter
	profile domain.RouteProfile
}

func (p *profiledAdapter) RouteProfile(context.Context, core_domain.CommunicationTarget) domain.RouteProfile {
	return p.profile
}

func TestGatedRegistry_RouteProfiles(t *testing.T) {
	wa := &profiledAdapter{messenger("whatsapp", 100, true), domain.RouteProfile{Platform: "whatsapp", CanLaunch: true, Reason: "Resolved by com.whatsapp"}}
	sig := &profiledAdapter{messenger("signal", 70, true), domain.RouteProfile{Platform: "signal", CanLaunch: true, Reason: "Signal installed"}}
	plain := messenger("telegram", 80, true)

	t.Run("PolicyMarksBlockedRoutes", func(t *testing.T) {
		provider := new(MockPolicyProvider)
		provider.On("Policy", mock.Anything).Return(policyWith(func(p *domain.IntegrationPrivacyPolicy) { p.AllowSignal = false }), nil)

		profiles, err := newGated(provider, sig, plain, wa).RouteProfiles(context.Background(), phone("+98912"))
		require.NoError(t, err)
		require.Len(t, profiles, 2)
		assert.Equal(t, "whatsapp", profiles[0].Platform)
		assert.True(t, profiles[0].CanLaunch)
		assert.Equal(t, "signal", profiles[1].Platform)
		assert.False(t, profiles[1].CanLaunch)
		assert.Equal(t, "Signal is disabled by policy.", profiles[1].Reason)
		assert.EqualValues(t, 0, wa.launches.Load())
	})

	t.Run("PolicyReadError", func(t *testing.T) {
		cause := errors.New("db down")
		provider := new(MockPolicyProvider)
		provider.On("Policy", mock.Anything).Return(domain.IntegrationPrivacyPolicy{}, cause)

		_, err := newGated(provider, wa).RouteProfiles(context.Background(), phone("+98912"))
		assert.ErrorIs(t, err, cause)
	})
}
