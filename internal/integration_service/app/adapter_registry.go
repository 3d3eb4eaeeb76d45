package app

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/integration_service/domain"
)

// AdapterRegistry selects and launches communication adapters.
type AdapterRegistry struct {
	adapters []domain.CommunicationAppAdapter
	logger   *slog.Logger
}

// NewAdapterRegistry keeps adapters in the given order; it breaks priority ties.
func NewAdapterRegistry(logger *slog.Logger, adapters ...domain.CommunicationAppAdapter) *AdapterRegistry {
	return &AdapterRegistry{
		adapters: adapters,
		logger:   logger.With("component", "adapter_registry"),
	}
}

// Candidates returns the adapters supporting action, highest priority first.
func (r *AdapterRegistry) Candidates(action core_domain.AdapterAction) []domain.CommunicationAppAdapter {
	out := make([]domain.CommunicationAppAdapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		if domain.Supports(a, action) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority() > out[j].Priority() })
	return out
}

// FindAdapterFor returns the highest-priority adapter for action that can
// handle target, or nil. CanHandle probes run concurrently; the result is
// the same as probing in priority order.
func (r *AdapterRegistry) FindAdapterFor(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction) domain.CommunicationAppAdapter {
	candidates := r.Candidates(action)
	if len(candidates) == 0 {
		return nil
	}

	start := time.Now()
	capable := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range candidates {
		i, a := i, a
		g.Go(func() error {
			capable[i] = a.CanHandle(gctx, target)
			return nil
		})
	}
	_ = g.Wait()
	canHandleProbeDurationHist.Observe(time.Since(start).Seconds())

	for i, a := range candidates {
		if capable[i] {
			return a
		}
	}
	return nil
}

// RouteProfiles describes every adapter that implements RouteProfiler,
// highest priority first. Adapters are asked concurrently, as in FindAdapterFor.
func (r *AdapterRegistry) RouteProfiles(ctx context.Context, target core_domain.CommunicationTarget) []domain.RouteProfile {
	ordered := make([]domain.CommunicationAppAdapter, len(r.adapters))
	copy(ordered, r.adapters)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority() > ordered[j].Priority() })

	profiles := make([]*domain.RouteProfile, len(ordered))
	var g errgroup.Group
	for i, a := range ordered {
		profiler, ok := a.(domain.RouteProfiler)
		if !ok {
			continue
		}
		i, profiler := i, profiler
		g.Go(func() error {
			p := profiler.RouteProfile(ctx, target)
			profiles[i] = &p
			return nil
		})
	}
	_ = g.Wait()

	out := make([]domain.RouteProfile, 0, len(profiles))
	for _, p := range profiles {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// adapterByID matches platform ids case-insensitively.
func (r *AdapterRegistry) adapterByID(platformID string) domain.CommunicationAppAdapter {
	for _, a := range r.adapters {
		if strings.EqualFold(a.ID(), platformID) {
			return a
		}
	}
	return nil
}

func (r *AdapterRegistry) LaunchPreferred(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, text *string) core_domain.IntentResult {
	adapter := r.FindAdapterFor(ctx, target, action)
	if adapter == nil {
		return r.unavailable(ctx, "", fmt.Sprintf("No adapter available for action %s", action))
	}
	return r.launch(ctx, adapter, target, action, text)
}

// LaunchForPlatform skips priority ranking. The named adapter must support
// action and be able to handle target.
func (r *AdapterRegistry) LaunchForPlatform(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, platformID string, text *string) core_domain.IntentResult {
	adapter := r.adapterByID(platformID)
	if adapter == nil || !domain.Supports(adapter, action) || !adapter.CanHandle(ctx, target) {
		label := ""
		if adapter != nil {
			label = adapter.ID()
		}
		return r.unavailable(ctx, label, fmt.Sprintf("No adapter available for %s/%s", platformID, action))
	}
	return r.launch(ctx, adapter, target, action, text)
}

func (r *AdapterRegistry) launch(ctx context.Context, adapter domain.CommunicationAppAdapter, target core_domain.CommunicationTarget, action core_domain.AdapterAction, text *string) core_domain.IntentResult {
	res := adapter.Launch(ctx, target, action, text)
	adapterLaunchCounter.WithLabelValues(adapter.ID(), res.Status()).Inc()
	if f, ok := res.(core_domain.IntentFailure); ok {
		r.logger.WarnContext(ctx, "Adapter launch failed", "platform", adapter.ID(), "action", action, "error", f)
	}
	return res
}

// unavailable counts under the adapter id, or "none" when no adapter matched.
func (r *AdapterRegistry) unavailable(ctx context.Context, adapterID, reason string) core_domain.IntentResult {
	label := adapterID
	if label == "" {
		label = "none"
	}
	adapterLaunchCounter.WithLabelValues(label, "unavailable").Inc()
	r.logger.DebugContext(ctx, "No adapter available", "reason", reason)
	return core_domain.IntentUnavailable{Reason: reason}
}
