// Package bootstrap builds the service graph from configuration. Both
// commhub_service and commhubctl use it.
package bootstrap

import (
	"log/slog"
	"time"

	callerapp "github.com/jdialer/commhub/internal/callerid_service/app"
	callerdomain "github.com/jdialer/commhub/internal/callerid_service/domain"
	callerprovider "github.com/jdialer/commhub/internal/callerid_service/provider"
	callerrepo "github.com/jdialer/commhub/internal/callerid_service/repository/postgres"
	"github.com/jdialer/commhub/internal/integration_service/adapters"
	integrationapp "github.com/jdialer/commhub/internal/integration_service/app"
	integrationdomain "github.com/jdialer/commhub/internal/integration_service/domain"
	integrationrepo "github.com/jdialer/commhub/internal/integration_service/repository/postgres"
	messagingapp "github.com/jdialer/commhub/internal/messaging_service/app"
	messagingdomain "github.com/jdialer/commhub/internal/messaging_service/domain"
	messagingprovider "github.com/jdialer/commhub/internal/messaging_service/provider"
	"github.com/jdialer/commhub/internal/platform/config"
	"github.com/jdialer/commhub/internal/platform/database"
	"github.com/jdialer/commhub/internal/platform/device"
	"github.com/jdialer/commhub/internal/platform/messagebroker"
	httptransport "github.com/jdialer/commhub/internal/public_api_service/transport/http"
	voipapp "github.com/jdialer/commhub/internal/voip_service/app"
	voipdomain "github.com/jdialer/commhub/internal/voip_service/domain"
	voiprepo "github.com/jdialer/commhub/internal/voip_service/repository/postgres"
)

// Services is the wired application.
type Services struct {
	CallerResolver *callerapp.CallerIdentityResolver
	SpamFilter     *callerapp.SpamFilter
	RiskEvaluator  *callerapp.CallerRiskEvaluator
	SpamFeed       *callerapp.SpamFeedConsumer

	CallResolver      *voipapp.CallTransportResolver
	SipProfiles       voipdomain.SipProfileRepository
	RecordingPolicies voipdomain.RecordingPolicyStore
	RecordingGate     *voipapp.RecordingPolicyValidator

	DeliveryResolver    *messagingapp.MessageDeliveryResolver
	AttachmentValidator *messagingapp.AttachmentPolicyValidator
	MessageSender       *messagingapp.MessageSender

	Links         integrationdomain.ConversationLinkRepository
	PrivacyPolicy integrationdomain.PrivacyPolicyStore
	Registry      *integrationapp.AdapterRegistry
	Gated         *integrationapp.GatedRegistry
	Router        *integrationapp.CommunicationRouter

	Device *device.Bridge
}

// New wires every component. db and nc are used lazily, so New itself does no I/O.
func New(cfg *config.Config, db database.Querier, nc *messagebroker.NatsClient, logger *slog.Logger) *Services {
	s := &Services{}
	s.Device = device.NewBridge(nc, time.Duration(cfg.DeviceRequestTimeoutSeconds)*time.Second, logger)

	// Caller ID
	var remote callerdomain.RemoteCallerLookup
	if cfg.CallerIDBaseURL != "" {
		remote = callerprovider.NewHTTPCallerIDClient(logger, cfg.CallerIDBaseURL,
			time.Duration(cfg.CallerIDConnectTimeoutSeconds)*time.Second,
			time.Duration(cfg.CallerIDReadTimeoutSeconds)*time.Second,
			cfg.CallerIDRemoteRPS, nil)
	}
	s.CallerResolver = callerapp.NewCallerIdentityResolver(
		callerrepo.NewPgCallerRiskRepository(db, logger),
		remote,
		callerapp.NewRiskCache(cfg.CallerIDCacheSize),
		time.Duration(cfg.CallerIDCacheTTLHours)*time.Hour,
		logger,
	)
	s.SpamFilter = callerapp.NewSpamFilter(callerrepo.NewPgSpamProfileRepository(db, logger), logger)
	s.RiskEvaluator = callerapp.NewCallerRiskEvaluator(s.CallerResolver, s.SpamFilter, logger)
	s.SpamFeed = callerapp.NewSpamFeedConsumer(nc, s.SpamFilter, logger)

	// Calls
	s.SipProfiles = voiprepo.NewPgSipProfileRepository(db, logger)
	s.CallResolver = voipapp.NewCallTransportResolver(TelecomPolicy(cfg), s.SipProfiles, s.Device, s.Device, logger)
	s.RecordingPolicies = voiprepo.NewPgRecordingPolicyRepository(db, logger)
	s.RecordingGate = voipapp.NewRecordingPolicyValidator(s.RecordingPolicies,
		voiprepo.NewPgCallRecordingRepository(db, logger), RecordingLimits(cfg), recordingLocation(cfg, logger), logger)

	// Messages
	var rcs messagingdomain.RcsCapabilityProvider = messagingprovider.NewStaticRcsProvider(
		cfg.RcsEnabledByDefaultSmsApp, cfg.RcsCarrierService, cfg.RcsSupportsMmsFallback)
	if cfg.RcsProbeDevice {
		rcs = s.Device
	}
	inspector := messagingprovider.NewHTTPMediaInspector(logger,
		time.Duration(cfg.AttachmentInspectTimeoutSeconds)*time.Second, s.Device, nil).
		AllowPrivateNetworks(cfg.AttachmentAllowPrivateHosts)
	s.DeliveryResolver = messagingapp.NewMessageDeliveryResolver(MessageDeliveryPolicy(cfg), rcs, logger)
	s.AttachmentValidator = messagingapp.NewAttachmentPolicyValidator(AttachmentPolicy(cfg), inspector, logger)
	s.MessageSender = messagingapp.NewMessageSender(s.AttachmentValidator, s.DeliveryResolver, nc, cfg.MessageOutboundSubjectPrefix, logger)

	// Integrations
	s.Links = integrationrepo.NewPgConversationLinkRepository(db, logger)
	s.PrivacyPolicy = integrationrepo.NewPgPrivacyPolicyRepository(db, logger)
	s.Registry = integrationapp.NewAdapterRegistry(logger, adapters.Default(s.Device, s.Device, logger)...)
	s.Gated = integrationapp.NewGatedRegistry(integrationapp.NewIntegrationPolicyGate(s.PrivacyPolicy, logger), s.Registry, logger)
	s.Router = integrationapp.NewCommunicationRouter(s.Gated, s.Links, logger)

	return s
}

// Handlers builds the HTTP handlers over the wired services.
func (s *Services) Handlers(logger *slog.Logger) httptransport.Handlers {
	return httptransport.Handlers{
		Callers:      httptransport.NewCallerHandler(s.CallerResolver, s.RiskEvaluator, logger),
		Calls:        httptransport.NewCallHandler(s.CallResolver, logger),
		Messages:     httptransport.NewMessageHandler(s.DeliveryResolver, s.AttachmentValidator, s.MessageSender, logger),
		Integrations: httptransport.NewIntegrationHandler(s.Router, s.Gated, s.Links, s.PrivacyPolicy, logger),
		Recordings:   httptransport.NewRecordingHandler(s.RecordingGate, s.RecordingPolicies, logger),
	}
}

func TelecomPolicy(cfg *config.Config) voipdomain.TelecomPolicy {
	return voipdomain.TelecomPolicy{
		AllowSipWhenEnabled:  cfg.TelecomAllowSipWhenEnabled,
		AllowTelecomFallback: cfg.TelecomAllowFallback,
		RequireDefaultDialer: cfg.TelecomRequireDefaultDialer,
		AllowFallbackDial:    cfg.TelecomAllowFallbackDial,
		RequireValidAddress:  cfg.TelecomRequireValidAddress,
	}
}

func RecordingLimits(cfg *config.Config) voipdomain.RecordingLimits {
	return voipdomain.RecordingLimits{
		MaxRecordingsPerDay: cfg.RecordingMaxPerDay,
		MinCallerIDLength:   cfg.RecordingMinCallerIDLength,
	}
}

// An unknown zone falls back to the process zone rather than failing startup.
func recordingLocation(cfg *config.Config, logger *slog.Logger) *time.Location {
	loc, err := time.LoadLocation(cfg.RecordingTimezone)
	if err != nil {
		logger.Warn("Unknown recording timezone, using local time", "timezone", cfg.RecordingTimezone, "error", err)
		return time.Local
	}
	return loc
}

func MessageDeliveryPolicy(cfg *config.Config) messagingdomain.MessageDeliveryPolicy {
	return messagingdomain.MessageDeliveryPolicy{
		PreferRcs:                       cfg.MessagePreferRcs,
		FallbackToSmsWhenRcsUnavailable: cfg.MessageFallbackToSms,
		PreferRcsForShortMessages:       cfg.MessagePreferRcsForShort,
		MaxSmsCharacters:                cfg.MessageMaxSmsCharacters,
		MmsFallbackLength:               cfg.MessageMmsFallbackLength,
		RequiresAttachmentAsMms:         cfg.MessageRequiresAttachmentAsMms,
	}
}

func AttachmentPolicy(cfg *config.Config) messagingdomain.AttachmentPolicy {
	return messagingdomain.AttachmentPolicy{
		MaxAttachments:            cfg.AttachmentMaxCount,
		MaxSingleAttachmentBytes:  cfg.AttachmentMaxSingleBytes,
		MaxTotalBytes:             cfg.AttachmentMaxTotalBytes,
		MaxImageWidth:             cfg.AttachmentMaxImageWidth,
		MaxImageHeight:            cfg.AttachmentMaxImageHeight,
		AllowedMimePrefixes:       cfg.AttachmentAllowedMimePrefixes,
		DisallowDocumentByDefault: cfg.AttachmentDisallowDocuments,
		DisallowedSchemes:         cfg.AttachmentDisallowedSchemes,
	}
}
