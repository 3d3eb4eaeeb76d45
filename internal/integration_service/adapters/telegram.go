package adapters

import (
	"context"
	"log/slog"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/integration_service/domain"
)

// telegramPackages in preference order.
var telegramPackages = []string{"org.thunderdog.challegram", "org.telegram.messenger"}

// TelegramAdapter opens tg:// links, or t.me in a browser when no client is installed.
type TelegramAdapter struct {
	launcher domain.IntentLauncher
	probe    *packageProbe
}

func NewTelegramAdapter(checker domain.PackageChecker, launcher domain.IntentLauncher, logger *slog.Logger) *TelegramAdapter {
	return &TelegramAdapter{
		launcher: launcher,
		probe:    newPackageProbe(checker, logger.With("adapter", domain.PlatformTelegram), false),
	}
}

func (a *TelegramAdapter) ID() string    { return domain.PlatformTelegram }
func (a *TelegramAdapter) Priority() int { return 80 }

func (a *TelegramAdapter) SupportedActions() []core_domain.AdapterAction {
	return []core_domain.AdapterAction{core_domain.ActionMessage, core_domain.ActionCall}
}

func (a *TelegramAdapter) CanHandle(ctx context.Context, target core_domain.CommunicationTarget) bool {
	if target.Phone() == "" {
		return false
	}
	_, ok := a.probe.firstInstalled(ctx, telegramPackages...)
	return ok
}

func (a *TelegramAdapter) Launch(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, text *string) core_domain.IntentResult {
	if target.Phone() == "" {
		return core_domain.IntentUnavailable{Reason: reasonPhoneEmpty}
	}
	number := dialable(target)

	intent := domain.LaunchIntent{Platform: domain.PlatformTelegram, Action: domain.IntentActionView}
	if pkg, ok := a.probe.firstInstalled(ctx, telegramPackages...); ok {
		intent.Package = &pkg
		if action == core_domain.ActionMessage {
			intent.URI = "tg://msg?to=" + number + "&text=" + encodeText(text)
		} else {
			intent.URI = "tg://call?to=" + number
		}
	} else {
		intent.URI = "https://t.me/" + number
	}

	if err := a.launcher.Launch(ctx, intent); err != nil {
		return launchFailure("Telegram", err)
	}
	return core_domain.IntentSuccess{}
}

// RouteProfile reports the package Launch would pick.
func (a *TelegramAdapter) RouteProfile(ctx context.Context, target core_domain.CommunicationTarget) domain.RouteProfile {
	profile := domain.RouteProfile{Platform: domain.PlatformTelegram}
	if target.Phone() == "" {
		profile.Reason = "No phone number for Telegram"
		return profile
	}
	pkg, ok := a.probe.firstInstalled(ctx, telegramPackages...)
	if !ok {
		profile.Reason = "Telegram package is not installed"
		return profile
	}
	profile.CanLaunch = true
	profile.SelectedPackage = &pkg
	profile.SupportsCall = true
	profile.Reason = "Resolved by " + pkg
	return profile
}
