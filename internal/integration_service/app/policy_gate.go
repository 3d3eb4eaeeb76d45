package app

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/integration_service/domain"
)

const reasonPolicyUnavailable = "Integration policy unavailable"

// EvaluatePolicy applies policy to a launch. Checks run in a fixed order and
// the first refusal wins. An empty or unknown platformID only passes the
// action-level checks.
func EvaluatePolicy(policy domain.IntegrationPrivacyPolicy, target core_domain.CommunicationTarget, action core_domain.AdapterAction, platformID string) domain.IntegrationPolicyDecision {
	if !policy.AllowThirdPartyIntegrations {
		return domain.PolicyBlocked{Reason: "Third-party integrations are disabled by policy."}
	}
	if target.HasMedia() && !policy.AllowMessageMedia {
		return domain.PolicyBlocked{Reason: "Media attachment sharing is disabled by policy."}
	}
	if action == core_domain.ActionMessage && !policy.AllowThirdPartyMessaging {
		return domain.PolicyBlocked{Reason: "Message actions are blocked by messaging policy."}
	}
	if action == core_domain.ActionCall && !policy.AllowThirdPartyCalls {
		return domain.PolicyBlocked{Reason: "Call actions are blocked by policy."}
	}
	if action == core_domain.ActionEmail && !policy.AllowEmail {
		return domain.PolicyBlocked{Reason: "Email actions are blocked by policy."}
	}

	// whatsapp_business has no flag of its own and AllowWhatsApp does not cover
	// it, so only the action-level checks above apply to it.
	switch strings.ToLower(platformID) {
	case domain.PlatformWhatsApp:
		if !policy.AllowWhatsApp {
			return domain.PolicyBlocked{Reason: "WhatsApp is disabled by policy."}
		}
	case domain.PlatformTelegram:
		if !policy.AllowTelegram {
			return domain.PolicyBlocked{Reason: "Telegram is disabled by policy."}
		}
	case domain.PlatformSignal:
		if !policy.AllowSignal {
			return domain.PolicyBlocked{Reason: "Signal is disabled by policy."}
		}
	case domain.PlatformEmail:
		if !policy.AllowEmail {
			return domain.PolicyBlocked{Reason: "Email is disabled by policy."}
		}
	}
	return domain.PolicyAllowed{}
}

// IntegrationPolicyGate reads the current privacy policy and evaluates launches against it.
type IntegrationPolicyGate struct {
	policies domain.PrivacyPolicyProvider
	logger   *slog.Logger
}

func NewIntegrationPolicyGate(policies domain.PrivacyPolicyProvider, logger *slog.Logger) *IntegrationPolicyGate {
	return &IntegrationPolicyGate{policies: policies, logger: logger.With("component", "integration_policy_gate")}
}

// Evaluate returns an error only when the policy cannot be read.
func (g *IntegrationPolicyGate) Evaluate(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, platformID string) (domain.IntegrationPolicyDecision, domain.IntegrationPrivacyPolicy, error) {
	policy, err := g.policies.Policy(ctx)
	if err != nil {
		g.logger.ErrorContext(ctx, "Failed to read integration privacy policy", "error", err)
		return nil, domain.IntegrationPrivacyPolicy{}, err
	}
	return EvaluatePolicy(policy, target, action, platformID), policy, nil
}

// GatedRegistry puts the policy gate in front of every registry launch. A
// refusal becomes IntentUnavailable and no adapter is invoked.
type GatedRegistry struct {
	gate     *IntegrationPolicyGate
	registry *AdapterRegistry
	logger   *slog.Logger
}

// NewGatedRegistry puts gate in front of every registry launch.
func NewGatedRegistry(gate *IntegrationPolicyGate, registry *AdapterRegistry, logger *slog.Logger) *GatedRegistry {
	return &GatedRegistry{gate: gate, registry: registry, logger: logger.With("component", "gated_registry")}
}

// LaunchPreferred checks the action-level rules, resolves the preferred
// adapter, then checks that adapter's platform flag.
func (g *GatedRegistry) LaunchPreferred(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, text *string) core_domain.IntentResult {
	decision, policy, err := g.gate.Evaluate(ctx, target, action, "")
	if err != nil {
		return core_domain.IntentFailure{Message: reasonPolicyUnavailable, Cause: err}
	}
	if blocked, ok := decision.(domain.PolicyBlocked); ok {
		return g.refuse(ctx, action, "", blocked)
	}

	adapter := g.registry.FindAdapterFor(ctx, target, action)
	if adapter == nil {
		return g.registry.unavailable(ctx, "", "No adapter available for action "+string(action))
	}
	if blocked, ok := EvaluatePolicy(policy, target, action, adapter.ID()).(domain.PolicyBlocked); ok {
		return g.refuse(ctx, action, adapter.ID(), blocked)
	}

	g.logLaunch(ctx, policy, target, action, adapter.ID())
	return g.registry.launch(ctx, adapter, target, action, text)
}

func (g *GatedRegistry) LaunchForPlatform(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, platformID string, text *string) core_domain.IntentResult {
	decision, policy, err := g.gate.Evaluate(ctx, target, action, platformID)
	if err != nil {
		return core_domain.IntentFailure{Message: reasonPolicyUnavailable, Cause: err}
	}
	if blocked, ok := decision.(domain.PolicyBlocked); ok {
		return g.refuse(ctx, action, platformID, blocked)
	}
	g.logLaunch(ctx, policy, target, action, platformID)
	return g.registry.LaunchForPlatform(ctx, target, action, platformID, text)
}

// RouteProfiles marks a route as not launchable, with the policy reason, when
// the policy would refuse the adapter's primary action on that platform.
func (g *GatedRegistry) RouteProfiles(ctx context.Context, target core_domain.CommunicationTarget) ([]domain.RouteProfile, error) {
	policy, err := g.gate.policies.Policy(ctx)
	if err != nil {
		g.logger.ErrorContext(ctx, "Failed to read integration privacy policy", "error", err)
		return nil, fmt.Errorf("%s: %w", reasonPolicyUnavailable, err)
	}
	profiles := g.registry.RouteProfiles(ctx, target)
	for i := range profiles {
		adapter := g.registry.adapterByID(profiles[i].Platform)
		if adapter == nil || len(adapter.SupportedActions()) == 0 {
			continue
		}
		action := adapter.SupportedActions()[0]
		if blocked, ok := EvaluatePolicy(policy, target, action, profiles[i].Platform).(domain.PolicyBlocked); ok {
			profiles[i].CanLaunch = false
			profiles[i].Reason = blocked.Reason
		}
	}
	return profiles, nil
}

func (g *GatedRegistry) refuse(ctx context.Context, action core_domain.AdapterAction, platformID string, blocked domain.PolicyBlocked) core_domain.IntentResult {
	policyBlocksCounter.WithLabelValues(string(action)).Inc()
	g.logger.InfoContext(ctx, "Launch refused by policy", "action", action, "platform", platformID, "reason", blocked.Reason)
	return core_domain.IntentUnavailable{Reason: blocked.Reason}
}

func (g *GatedRegistry) logLaunch(ctx context.Context, policy domain.IntegrationPrivacyPolicy, target core_domain.CommunicationTarget, action core_domain.AdapterAction, platformID string) {
	handle := target.Phone()
	if action == core_domain.ActionEmail {
		handle = target.Email()
	}
	if policy.RedactOutboundIdentity {
		handle = RedactHandle(handle)
	}
	g.logger.InfoContext(ctx, "Launching external platform", "action", action, "platform", platformID, "handle", handle)
}

// RedactHandle returns the hex SHA3-256 digest of handle, or "" for a blank handle.
func RedactHandle(handle string) string {
	if handle == "" {
		return ""
	}
	sum := sha3.Sum256([]byte(handle))
	return hex.EncodeToString(sum[:])
}
