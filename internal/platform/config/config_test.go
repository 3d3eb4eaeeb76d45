package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("config_test")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, 100, cfg.CallerIDCacheSize)
	assert.Equal(t, 24, cfg.CallerIDCacheTTLHours)
	assert.Equal(t, 5, cfg.CallerIDConnectTimeoutSeconds)
	assert.Equal(t, 10, cfg.CallerIDReadTimeoutSeconds)
	assert.True(t, cfg.TelecomRequireDefaultDialer)
	assert.Equal(t, 620, cfg.MessageMaxSmsCharacters)
	assert.Equal(t, 1500, cfg.MessageMmsFallbackLength)
	assert.Equal(t, 8, cfg.AttachmentMaxCount)
	assert.Equal(t, int64(10*1024*1024), cfg.AttachmentMaxSingleBytes)
	assert.Equal(t, int64(24*1024*1024), cfg.AttachmentMaxTotalBytes)
	assert.Equal(t, []string{"image/", "video/", "audio/"}, cfg.AttachmentAllowedMimePrefixes)
	assert.False(t, cfg.AttachmentAllowPrivateHosts)
	assert.Equal(t, 40, cfg.RecordingMaxPerDay)
	assert.Equal(t, 3, cfg.RecordingMinCallerIDLength)
	assert.Equal(t, "Local", cfg.RecordingTimezone)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("APP_HTTP_PORT", "9191")
	t.Setenv("APP_CALLERID_BASE_URL", "http://lookup.local")
	t.Setenv("APP_TELECOM_ALLOW_FALLBACK_DIAL", "false")
	t.Setenv("APP_ATTACHMENT_ALLOW_PRIVATE_HOSTS", "true")
	t.Setenv("APP_RECORDING_MAX_PER_DAY", "5")

	cfg, err := Load("config_test")
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.HTTPPort)
	assert.Equal(t, "http://lookup.local", cfg.CallerIDBaseURL)
	assert.False(t, cfg.TelecomAllowFallbackDial)
	assert.True(t, cfg.AttachmentAllowPrivateHosts)
	assert.Equal(t, 5, cfg.RecordingMaxPerDay)
}
