package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/voip_service/domain"
)

// CallTransportResolver picks the transport for an outbound call and places it.
// It never returns an error: every outcome is a CallTransportDecision.
type CallTransportResolver struct {
	policy     domain.TelecomPolicy
	profiles   domain.SipProfileRepository
	roles      domain.TelecomRoleProvider
	dispatcher domain.CallDispatcher
	logger     *slog.Logger
}

// NewCallTransportResolver accepts nil profiles, roles or dispatcher. A nil
// profiles or roles reads as "nothing configured", and Place logs and counts
// the missing dispatcher.
func NewCallTransportResolver(
	policy domain.TelecomPolicy,
	profiles domain.SipProfileRepository,
	roles domain.TelecomRoleProvider,
	dispatcher domain.CallDispatcher,
	logger *slog.Logger,
) *CallTransportResolver {
	return &CallTransportResolver{
		policy:     policy,
		profiles:   profiles,
		roles:      roles,
		dispatcher: dispatcher,
		logger:     logger.With("component", "call_transport_resolver"),
	}
}

// Resolve walks the transport decision tree for rawAddress. The first matching
// rule wins.
func (r *CallTransportResolver) Resolve(ctx context.Context, rawAddress string, preferSip bool) domain.CallTransportDecision {
	decision := r.resolve(ctx, rawAddress, preferSip)
	callTransportDecisionsCounter.WithLabelValues(string(decision.TransportType)).Inc()
	r.logger.DebugContext(ctx, "Call transport resolved",
		"address", decision.Address, "transport", decision.TransportType, "reason", decision.Reason)
	return decision
}

func (r *CallTransportResolver) resolve(ctx context.Context, rawAddress string, preferSip bool) domain.CallTransportDecision {
	address := core_domain.NormalizeNumber(rawAddress)
	if strings.TrimSpace(address) == "" && r.policy.RequireValidAddress {
		return domain.CallTransportDecision{
			Address:       rawAddress,
			TransportType: domain.TransportBlocked,
			Reason:        domain.ReasonInvalidTarget,
		}
	}

	if preferSip && r.policy.AllowSipWhenEnabled {
		if profile := r.activeSipProfile(ctx); profile.Usable() {
			return domain.CallTransportDecision{
				Address:       address,
				TransportType: domain.TransportSIP,
				Reason:        domain.SipProfileReason(profile.ProfileID),
				UseSipURI:     true,
			}
		}
	}

	role := r.telecomRole(ctx)
	if r.policy.RequireDefaultDialer && !role.IsDefaultDialer {
		if r.policy.AllowFallbackDial {
			return domain.CallTransportDecision{
				Address:       address,
				TransportType: domain.TransportFallbackDial,
				Reason:        domain.ReasonNotDefaultDialer,
			}
		}
		return domain.CallTransportDecision{
			Address:       address,
			TransportType: domain.TransportBlocked,
			Reason:        domain.ReasonDialerRoleRequired,
		}
	}

	if role.SelfManagedRegistered {
		return domain.CallTransportDecision{
			Address:       address,
			TransportType: domain.TransportTelecom,
			Reason:        domain.ReasonSelfManagedTelecom,
		}
	}
	if r.policy.AllowTelecomFallback {
		return domain.CallTransportDecision{
			Address:       address,
			TransportType: domain.TransportTelecom,
			Reason:        domain.ReasonDirectTelecom,
		}
	}
	return domain.CallTransportDecision{
		Address:       address,
		TransportType: domain.TransportFallbackDial,
		Reason:        domain.ReasonTelecomUnavailable,
	}
}

// Place resolves the transport and hands the call to the dispatcher.
// Routed is set once dispatch was attempted, whatever the dispatcher reports;
// the outcome is logged and counted but call setup is not confirmed.
// BLOCKED decisions are returned without dispatching.
func (r *CallTransportResolver) Place(ctx context.Context, rawAddress string, preferSip bool) domain.CallTransportDecision {
	decision := r.Resolve(ctx, rawAddress, preferSip)
	if decision.TransportType == domain.TransportBlocked {
		r.logger.InfoContext(ctx, "Call blocked", "address", decision.Address, "reason", decision.Reason)
		return decision
	}

	req := domain.DialRequest{
		Address:       decision.Address,
		TransportType: decision.TransportType,
		UseSipURI:     decision.UseSipURI,
	}
	if decision.TransportType == domain.TransportFallbackDial {
		req.UseSipURI = false
	}

	status := "dispatched"
	if r.dispatcher == nil {
		status = "no_dispatcher"
		r.logger.WarnContext(ctx, "No call dispatcher configured", "address", decision.Address)
	} else if err := r.dispatcher.Dial(ctx, req); err != nil {
		status = "dispatch_error"
		r.logger.WarnContext(ctx, "Call dispatch reported an error",
			"address", decision.Address, "transport", decision.TransportType, "error", err)
	} else {
		r.logger.InfoContext(ctx, "Call dispatched", "address", decision.Address, "transport", decision.TransportType)
	}
	callDispatchCounter.WithLabelValues(string(decision.TransportType), status).Inc()

	decision.Routed = true
	return decision
}

func (r *CallTransportResolver) activeSipProfile(ctx context.Context) domain.SipProfile {
	if r.profiles == nil {
		return domain.DefaultSipProfile()
	}
	profile, err := r.profiles.GetActive(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			r.logger.WarnContext(ctx, "Failed to load SIP profile, treating as disabled", "error", err)
		}
		return domain.DefaultSipProfile()
	}
	return *profile
}

func (r *CallTransportResolver) telecomRole(ctx context.Context) domain.TelecomRole {
	if r.roles == nil {
		return domain.TelecomRole{}
	}
	role, err := r.roles.TelecomRole(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to query telecom role, assuming no role", "error", err)
		return domain.TelecomRole{}
	}
	return role
}
