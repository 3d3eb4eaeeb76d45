package adapters

import (
	"context"
	"log/slog"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/integration_service/domain"
)

const signalPackage = "org.thoughtcrime.securesms"

type SignalAdapter struct {
	launcher domain.IntentLauncher
	probe    *packageProbe
}

func NewSignalAdapter(checker domain.PackageChecker, launcher domain.IntentLauncher, logger *slog.Logger) *SignalAdapter {
	return &SignalAdapter{
		launcher: launcher,
		probe:    newPackageProbe(checker, logger.With("adapter", domain.PlatformSignal), false),
	}
}

func (a *SignalAdapter) ID() string    { return domain.PlatformSignal }
func (a *SignalAdapter) Priority() int { return 70 }

func (a *SignalAdapter) SupportedActions() []core_domain.AdapterAction {
	return []core_domain.AdapterAction{core_domain.ActionMessage}
}

func (a *SignalAdapter) CanHandle(ctx context.Context, target core_domain.CommunicationTarget) bool {
	return target.Phone() != "" && a.probe.installed(ctx, signalPackage)
}

func (a *SignalAdapter) Launch(ctx context.Context, target core_domain.CommunicationTarget, _ core_domain.AdapterAction, text *string) core_domain.IntentResult {
	if target.Phone() == "" {
		return core_domain.IntentUnavailable{Reason: reasonPhoneEmpty}
	}
	number := dialable(target)
	body := ""
	if text != nil {
		body = *text
	}

	var intent domain.LaunchIntent
	if a.probe.installed(ctx, signalPackage) {
		intent = domain.LaunchIntent{
			Platform: domain.PlatformSignal,
			Action:   domain.IntentActionView,
			URI:      "smsto:" + number,
			Package:  pkgPtr(signalPackage, true),
			Extras:   map[string]string{"sms_body": body},
		}
	} else {
		intent = domain.LaunchIntent{
			Platform: domain.PlatformSignal,
			Action:   domain.IntentActionView,
			URI:      "https://signal.me/#p/" + number,
			Extras:   map[string]string{"body": body},
		}
	}

	if err := a.launcher.Launch(ctx, intent); err != nil {
		return launchFailure("Signal", err)
	}
	return core_domain.IntentSuccess{}
}

// RouteProfile names the Signal package even when it is missing. Signal
// never carries calls from here.
func (a *SignalAdapter) RouteProfile(ctx context.Context, target core_domain.CommunicationTarget) domain.RouteProfile {
	profile := domain.RouteProfile{Platform: domain.PlatformSignal}
	if target.Phone() == "" {
		profile.Reason = "No number supplied for Signal"
		return profile
	}
	pkg := signalPackage
	profile.SelectedPackage = &pkg
	if !a.probe.installed(ctx, signalPackage) {
		profile.Reason = "Signal app is not installed"
		return profile
	}
	profile.CanLaunch = true
	profile.Reason = "Signal installed"
	return profile
}
