package adapters

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/integration_service/domain"
)

const reasonPhoneEmpty = "Phone number is empty"

// packageProbe answers "is this app installed" through a PackageChecker.
// Check errors count as not installed and are never memoized.
type packageProbe struct {
	checker domain.PackageChecker
	logger  *slog.Logger
	memoize bool

	mu    sync.Mutex
	known map[string]bool
}

func newPackageProbe(checker domain.PackageChecker, logger *slog.Logger, memoize bool) *packageProbe {
	return &packageProbe{checker: checker, logger: logger, memoize: memoize, known: map[string]bool{}}
}

func (p *packageProbe) installed(ctx context.Context, pkg string) bool {
	if p.memoize {
		p.mu.Lock()
		v, ok := p.known[pkg]
		p.mu.Unlock()
		if ok {
			return v
		}
	}
	if p.checker == nil {
		return false
	}
	ok, err := p.checker.IsInstalled(ctx, pkg)
	if err != nil {
		p.logger.DebugContext(ctx, "Package check failed", "package", pkg, "error", err)
		return false
	}
	if p.memoize {
		p.mu.Lock()
		p.known[pkg] = ok
		p.mu.Unlock()
	}
	return ok
}

// firstInstalled returns the first installed package of candidates.
func (p *packageProbe) firstInstalled(ctx context.Context, candidates ...string) (string, bool) {
	for _, pkg := range candidates {
		if p.installed(ctx, pkg) {
			return pkg, true
		}
	}
	return "", false
}

// dialable is the phone number of target as used inside deep links.
func dialable(target core_domain.CommunicationTarget) string {
	return core_domain.NormalizeNumber(target.Phone())
}

// encodeText percent-encodes text for a deep-link query value, spaces as %20.
func encodeText(text *string) string {
	if text == nil {
		return ""
	}
	return strings.ReplaceAll(url.QueryEscape(*text), "+", "%20")
}

func launchFailure(platform string, err error) core_domain.IntentResult {
	return core_domain.IntentFailure{Message: platform + " launch failed", Cause: err}
}

func pkgPtr(pkg string, ok bool) *string {
	if !ok {
		return nil
	}
	return &pkg
}

// Default returns the built-in adapters in registration order.
func Default(checker domain.PackageChecker, launcher domain.IntentLauncher, logger *slog.Logger) []domain.CommunicationAppAdapter {
	return []domain.CommunicationAppAdapter{
		NewWhatsAppAdapter(checker, launcher, logger),
		NewWhatsAppBusinessAdapter(checker, launcher, logger),
		NewTelegramAdapter(checker, launcher, logger),
		NewSignalAdapter(checker, launcher, logger),
		NewEmailAdapter(checker, launcher, logger),
	}
}
