package adapters

import (
	"context"
	"log/slog"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/integration_service/domain"
)

const (
	emailSubject = "Message from JDialer"
	emailChooser = "Compose email"
)

var preferredMailClients = []string{"com.google.android.gm", "com.microsoft.office.outlook"}

// EmailAdapter composes a mailto: message, preferring a known mail client.
type EmailAdapter struct {
	launcher domain.IntentLauncher
	probe    *packageProbe
}

func NewEmailAdapter(checker domain.PackageChecker, launcher domain.IntentLauncher, logger *slog.Logger) *EmailAdapter {
	return &EmailAdapter{
		launcher: launcher,
		probe:    newPackageProbe(checker, logger.With("adapter", domain.PlatformEmail), false),
	}
}

func (a *EmailAdapter) ID() string    { return domain.PlatformEmail }
func (a *EmailAdapter) Priority() int { return 60 }

func (a *EmailAdapter) SupportedActions() []core_domain.AdapterAction {
	return []core_domain.AdapterAction{core_domain.ActionEmail}
}

func (a *EmailAdapter) CanHandle(_ context.Context, target core_domain.CommunicationTarget) bool {
	return target.Email() != ""
}

func (a *EmailAdapter) Launch(ctx context.Context, target core_domain.CommunicationTarget, _ core_domain.AdapterAction, text *string) core_domain.IntentResult {
	email := target.Email()
	if email == "" {
		return core_domain.IntentUnavailable{Reason: "Email is empty"}
	}
	body := ""
	if text != nil {
		body = *text
	}
	chooser := emailChooser
	intent := domain.LaunchIntent{
		Platform: domain.PlatformEmail,
		Action:   domain.IntentActionSendTo,
		URI:      "mailto:" + email,
		Package:  pkgPtr(a.probe.firstInstalled(ctx, preferredMailClients...)),
		Extras:   map[string]string{"subject": emailSubject, "text": body},
		Chooser:  &chooser,
	}
	if err := a.launcher.Launch(ctx, intent); err != nil {
		return launchFailure("Email", err)
	}
	return core_domain.IntentSuccess{}
}

// RouteProfile can compose without a preferred client; the device chooser
// takes over.
func (a *EmailAdapter) RouteProfile(ctx context.Context, target core_domain.CommunicationTarget) domain.RouteProfile {
	profile := domain.RouteProfile{Platform: domain.PlatformEmail}
	if target.Email() == "" {
		profile.Reason = "Email address not found"
		return profile
	}
	profile.CanLaunch = true
	if pkg, ok := a.probe.firstInstalled(ctx, preferredMailClients...); ok {
		profile.SelectedPackage = &pkg
		profile.Reason = "Composer with " + pkg
	} else {
		profile.Reason = "No preferred client; device chooser"
	}
	return profile
}
