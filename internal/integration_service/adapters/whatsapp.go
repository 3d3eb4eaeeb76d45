package adapters

import (
	"context"
	"log/slog"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/integration_service/domain"
)

const (
	whatsAppPackage         = "com.whatsapp"
	whatsAppBusinessPackage = "com.whatsapp.w4b"
)

// WhatsAppAdapter opens wa.me links in WhatsApp or WhatsApp Business.
// Installed-package answers are memoized for the adapter's lifetime.
type WhatsAppAdapter struct {
	launcher domain.IntentLauncher
	probe    *packageProbe
}

func NewWhatsAppAdapter(checker domain.PackageChecker, launcher domain.IntentLauncher, logger *slog.Logger) *WhatsAppAdapter {
	return &WhatsAppAdapter{
		launcher: launcher,
		probe:    newPackageProbe(checker, logger.With("adapter", domain.PlatformWhatsApp), true),
	}
}

func (a *WhatsAppAdapter) ID() string    { return domain.PlatformWhatsApp }
func (a *WhatsAppAdapter) Priority() int { return 100 }

func (a *WhatsAppAdapter) SupportedActions() []core_domain.AdapterAction {
	return []core_domain.AdapterAction{core_domain.ActionMessage, core_domain.ActionCall}
}

func (a *WhatsAppAdapter) CanHandle(ctx context.Context, target core_domain.CommunicationTarget) bool {
	if target.Phone() == "" {
		return false
	}
	_, ok := a.probe.firstInstalled(ctx, whatsAppPackage, whatsAppBusinessPackage)
	return ok
}

func (a *WhatsAppAdapter) Launch(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, text *string) core_domain.IntentResult {
	if target.Phone() == "" {
		return core_domain.IntentUnavailable{Reason: reasonPhoneEmpty}
	}
	number := dialable(target)
	uri := "https://wa.me/" + number
	if action != core_domain.ActionCall {
		uri += "?text=" + encodeText(text)
	}

	intent := domain.LaunchIntent{
		Platform: domain.PlatformWhatsApp,
		Action:   domain.IntentActionView,
		URI:      uri,
		Package:  pkgPtr(a.probe.firstInstalled(ctx, whatsAppPackage, whatsAppBusinessPackage)),
	}
	if err := a.launcher.Launch(ctx, intent); err != nil {
		return launchFailure("WhatsApp", err)
	}
	return core_domain.IntentSuccess{}
}

func (a *WhatsAppAdapter) RouteProfile(ctx context.Context, target core_domain.CommunicationTarget) domain.RouteProfile {
	profile := domain.RouteProfile{Platform: domain.PlatformWhatsApp}
	if target.Phone() == "" {
		profile.Reason = "No phone number"
		return profile
	}
	pkg, ok := a.probe.firstInstalled(ctx, whatsAppPackage, whatsAppBusinessPackage)
	if !ok {
		profile.Reason = "WhatsApp app missing"
		return profile
	}
	profile.CanLaunch = true
	profile.SelectedPackage = &pkg
	profile.SupportsCall = true
	profile.UseBusinessEndpoint = pkg == whatsAppBusinessPackage
	profile.Reason = "Resolved by " + pkg
	return profile
}

// WhatsAppBusinessAdapter targets the business app only and is ranked below WhatsApp.
type WhatsAppBusinessAdapter struct {
	launcher domain.IntentLauncher
	probe    *packageProbe
}

func NewWhatsAppBusinessAdapter(checker domain.PackageChecker, launcher domain.IntentLauncher, logger *slog.Logger) *WhatsAppBusinessAdapter {
	return &WhatsAppBusinessAdapter{
		launcher: launcher,
		probe:    newPackageProbe(checker, logger.With("adapter", domain.PlatformWhatsAppBusiness), false),
	}
}

func (a *WhatsAppBusinessAdapter) ID() string    { return domain.PlatformWhatsAppBusiness }
func (a *WhatsAppBusinessAdapter) Priority() int { return 90 }

func (a *WhatsAppBusinessAdapter) SupportedActions() []core_domain.AdapterAction {
	return []core_domain.AdapterAction{core_domain.ActionMessage}
}

func (a *WhatsAppBusinessAdapter) CanHandle(ctx context.Context, target core_domain.CommunicationTarget) bool {
	return target.Phone() != "" && a.probe.installed(ctx, whatsAppBusinessPackage)
}

func (a *WhatsAppBusinessAdapter) Launch(ctx context.Context, target core_domain.CommunicationTarget, _ core_domain.AdapterAction, text *string) core_domain.IntentResult {
	if target.Phone() == "" {
		return core_domain.IntentUnavailable{Reason: reasonPhoneEmpty}
	}
	intent := domain.LaunchIntent{
		Platform: domain.PlatformWhatsAppBusiness,
		Action:   domain.IntentActionView,
		URI:      "https://wa.me/" + dialable(target) + "?text=" + encodeText(text),
	}
	if a.probe.installed(ctx, whatsAppBusinessPackage) {
		intent.Package = pkgPtr(whatsAppBusinessPackage, true)
	}
	if err := a.launcher.Launch(ctx, intent); err != nil {
		return launchFailure("WhatsApp Business", err)
	}
	return core_domain.IntentSuccess{}
}
