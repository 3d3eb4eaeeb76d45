package http_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/jdialer/commhub/internal/core_domain"
	"github.com/jdialer/commhub/internal/integration_service/domain"
	"github.com/jdialer/commhub/internal/public_api_service/middleware"
	httptransport "github.com/jdialer/commhub/internal/public_api_service/transport/http"
)

type MockContactRouter struct {
	mock.Mock
}

func (m *MockContactRouter) Launch(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, text *string) core_domain.IntentResult {
	return m.Called(ctx, target, action, text).Get(0).(core_domain.IntentResult)
}

type MockPlatformLauncher struct {
	mock.Mock
}

func (m *MockPlatformLauncher) LaunchForPlatform(ctx context.Context, target core_domain.CommunicationTarget, action core_domain.AdapterAction, platformID string, text *string) core_domain.IntentResult {
	return m.Called(ctx, target, action, platformID, text).Get(0).(core_domain.IntentResult)
}

func (m *MockPlatformLauncher) RouteProfiles(ctx context.Context, target core_domain.CommunicationTarget) ([]domain.RouteProfile, error) {
	args := m.Called(ctx, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RouteProfile), args.Error(1)
}

type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) GetLink(ctx context.Context, contactID int64, platform string) (*domain.ConversationLink, error) {
	args := m.Called(ctx, contactID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConversationLink), args.Error(1)
}

func (m *MockLinkRepository) Upsert(ctx context.Context, link domain.ConversationLink) error {
	return m.Called(ctx, link).Error(0)
}

func (m *MockLinkRepository) Clear(ctx context.Context, contactID int64, platform string) error {
	return m.Called(ctx, contactID, platform).Error(0)
}

func (m *MockLinkRepository) ListForContact(ctx context.Context, contactID int64) ([]domain.ConversationLink, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ConversationLink), args.Error(1)
}

type MockPolicyStore struct {
	mock.Mock
}

func (m *MockPolicyStore) Policy(ctx context.Context) (domain.IntegrationPrivacyPolicy, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.IntegrationPrivacyPolicy), args.Error(1)
}

func (m *MockPolicyStore) SetFlag(ctx context.Context, key string, value bool) error {
	return m.Called(ctx, key, value).Error(0)
}

type integrationMocks struct {
	router    *MockContactRouter
	platforms *MockPlatformLauncher
	links     *MockLinkRepository
	policy    *MockPolicyStore
}

func integrationServer(t *testing.T) (http.Handler, integrationMocks) {
	m := integrationMocks{new(MockContactRouter), new(MockPlatformLauncher), new(MockLinkRepository), new(MockPolicyStore)}
	h := httptransport.NewIntegrationHandler(m.router, m.platforms, m.links, m.policy, testLogger())
	return newServer(t, httptransport.Handlers{Integrations: h}), m
}

func TestIntegrationHandler_Launch(t *testing.T) {
	t.Run("RoutedByContact", func(t *testing.T) {
		srv, m := integrationServer(t)
		m.router.On("Launch", mock.Anything, mock.MatchedBy(func(tg core_domain.CommunicationTarget) bool {
			return tg.ContactID != nil && *tg.ContactID == 7 && tg.Phone() == "+98912"
		}), core_domain.ActionMessage, mock.Anything).Return(core_domain.IntentSuccess{})

		rr := do(t, srv, http.MethodPost, "/api/v1/integrations/launch",
			map[string]any{"action": "message", "contact_id": 7, "phone_number": "+98912", "text": "hi"}, bearer(t))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "success", decode[httptransport.LaunchResponse](t, rr).Status)
	})

	t.Run("ExplicitPlatformBlocked", func(t *testing.T) {
		srv, m := integrationServer(t)
		m.platforms.On("LaunchForPlatform", mock.Anything, mock.Anything, core_domain.ActionCall, "whatsapp", mock.Anything).
			Return(core_domain.IntentUnavailable{Reason: "WhatsApp is disabled by policy."})

		rr := do(t, srv, http.MethodPost, "/api/v1/integrations/launch",
			map[string]any{"action": "CALL", "platform": "whatsapp", "phone_number": "+98912"}, bearer(t))
		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decode[httptransport.LaunchResponse](t, rr)
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, "WhatsApp is disabled by policy.", resp.Reason)
		m.router.AssertNotCalled(t, "Launch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("FailureIsBadGateway", func(t *testing.T) {
		srv, m := integrationServer(t)
		m.router.On("Launch", mock.Anything, mock.Anything, core_domain.ActionEmail, mock.Anything).
			Return(core_domain.IntentFailure{Message: "Email launch failed"})

		rr := do(t, srv, http.MethodPost, "/api/v1/integrations/launch",
			map[string]any{"action": "email", "email_address": "jane@example.com"}, bearer(t))
		assert.Equal(t, http.StatusBadGateway, rr.Code)
		assert.Equal(t, "Email launch failed", decode[httptransport.LaunchResponse](t, rr).Reason)
	})

	t.Run("UnknownAction", func(t *testing.T) {
		srv, _ := integrationServer(t)
		rr := do(t, srv, http.MethodPost, "/api/v1/integrations/launch", map[string]any{"action": "fax"}, bearer(t))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("BadEmail", func(t *testing.T) {
		srv, _ := integrationServer(t)
		rr := do(t, srv, http.MethodPost, "/api/v1/integrations/launch", map[string]any{"action": "email", "email_address": "nope"}, bearer(t))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestIntegrationHandler_Links(t *testing.T) {
	admin := bearer(t, middleware.PermissionManageIntegrations)

	t.Run("UpsertDefaultsToEnabled", func(t *testing.T) {
		srv, m := integrationServer(t)
		m.links.On("Upsert", mock.Anything, mock.MatchedBy(func(l domain.ConversationLink) bool {
			return l.ContactID == 7 && l.Platform == "telegram" && l.IsEnabled && !l.IsBlocked
		})).Return(nil)

		rr := do(t, srv, http.MethodPut, "/api/v1/integrations/links",
			map[string]any{"contact_id": 7, "platform": "telegram", "handle": "+98912"}, admin)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		m.links.AssertExpectations(t)
	})

	t.Run("UpsertNeedsPermission", func(t *testing.T) {
		srv, _ := integrationServer(t)
		rr := do(t, srv, http.MethodPut, "/api/v1/integrations/links",
			map[string]any{"contact_id": 7, "platform": "telegram", "handle": "+98912"}, bearer(t))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("UpsertRejectsUnknownPlatform", func(t *testing.T) {
		srv, _ := integrationServer(t)
		rr := do(t, srv, http.MethodPut, "/api/v1/integrations/links",
			map[string]any{"contact_id": 7, "platform": "viber", "handle": "+98912"}, admin)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("List", func(t *testing.T) {
		srv, m := integrationServer(t)
		m.links.On("ListForContact", mock.Anything, int64(7)).
			Return([]domain.ConversationLink{{ContactID: 7, Platform: "signal", IsEnabled: true}}, nil)

		rr := do(t, srv, http.MethodGet, "/api/v1/integrations/links/7", nil, bearer(t))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]domain.ConversationLink](t, rr), 1)
	})

	t.Run("ClearBadID", func(t *testing.T) {
		srv, _ := integrationServer(t)
		rr := do(t, srv, http.MethodDelete, "/api/v1/integrations/links/x/signal", nil, admin)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Clear", func(t *testing.T) {
		srv, m := integrationServer(t)
		m.links.On("Clear", mock.Anything, int64(7), "signal").Return(nil)
		rr := do(t, srv, http.MethodDelete, "/api/v1/integrations/links/7/signal", nil, admin)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})
}

func TestIntegrationHandler_Policy(t *testing.T) {
	admin := bearer(t, middleware.PermissionManageIntegrations)

	t.Run("Get", func(t *testing.T) {
		srv, m := integrationServer(t)
		m.policy.On("Policy", mock.Anything).Return(domain.DefaultIntegrationPrivacyPolicy(), nil)
		rr := do(t, srv, http.MethodGet, "/api/v1/integrations/policy", nil, bearer(t))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.False(t, decode[domain.IntegrationPrivacyPolicy](t, rr).AllowMessageMedia)
	})

	t.Run("GetUnavailable", func(t *testing.T) {
		srv, m := integrationServer(t)
		m.policy.On("Policy", mock.Anything).Return(domain.IntegrationPrivacyPolicy{}, errors.New("db down"))
		rr := do(t, srv, http.MethodGet, "/api/v1/integrations/policy", nil, bearer(t))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("SetFlag", func(t *testing.T) {
		srv, m := integrationServer(t)
		m.policy.On("SetFlag", mock.Anything, domain.KeyAllowWhatsApp, false).Return(nil)
		rr := do(t, srv, http.MethodPut, "/api/v1/integrations/policy/allow_whatsapp", map[string]bool{"value": false}, admin)
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("SetUnknownFlag", func(t *testing.T) {
		srv, m := integrationServer(t)
		m.policy.On("SetFlag", mock.Anything, "allow_fax", true).Return(domain.ErrUnknownPolicyKey)
		rr := do(t, srv, http.MethodPut, "/api/v1/integrations/policy/allow_fax", map[string]bool{"value": true}, admin)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestIntegrationHandler_Routes(t *testing.T) {
	t.Run("Profiles", func(t *testing.T) {
		srv, m := integrationServer(t)
		pkg := "com.whatsapp.w4b"
		m.platforms.On("RouteProfiles", mock.Anything, mock.MatchedBy(func(tg core_domain.CommunicationTarget) bool {
			return tg.Phone() == "+98912" && tg.Email() == ""
		})).Return([]domain.RouteProfile{
			{Platform: "whatsapp", CanLaunch: true, SelectedPackage: &pkg, SupportsCall: true, UseBusinessEndpoint: true, Reason: "Resolved by " + pkg},
			{Platform: "signal", Reason: "Signal is disabled by policy."},
		}, nil)

		rr := do(t, srv, http.MethodPost, "/api/v1/integrations/routes", map[string]any{"phone_number": "+98912"}, bearer(t))
		assert.Equal(t, http.StatusOK, rr.Code)
		got := decode[[]domain.RouteProfile](t, rr)
		if assert.Len(t, got, 2) {
			assert.True(t, got[0].UseBusinessEndpoint)
			assert.False(t, got[1].CanLaunch)
		}
	})

	t.Run("PolicyUnavailable", func(t *testing.T) {
		srv, m := integrationServer(t)
		m.platforms.On("RouteProfiles", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		rr := do(t, srv, http.MethodPost, "/api/v1/integrations/routes", map[string]any{"email_address": "a@b.co"}, bearer(t))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})

	t.Run("BadEmail", func(t *testing.T) {
		srv, _ := integrationServer(t)
		rr := do(t, srv, http.MethodPost, "/api/v1/integrations/routes", map[string]any{"email_address": "nope"}, bearer(t))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
