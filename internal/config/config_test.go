package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(lookup(nil))
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "Canteen_1", cfg.MealCollection)
	assert.Equal(t, 60*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, 5*time.Minute, cfg.OTPTTL)
	assert.Equal(t, 4, cfg.OTPDigits)
	assert.True(t, cfg.OTPInResponse)
	assert.Equal(t, "smtp", cfg.MailProvider)
	assert.Equal(t, "C01", cfg.DefaultClientID)
	assert.Equal(t, "524", cfg.DefaultRoleID)
	assert.Equal(t, 5, cfg.MaxFailedAttempts)
	assert.Equal(t, 15*time.Minute, cfg.LockDuration)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{
		"PORT":                 "8080",
		"SESSION_IDLE_TIMEOUT": "30m",
		"OTP_DIGITS":           "6",
		"OTP_IN_RESPONSE":      "false",
		"MAIL_PROVIDER":        "SES",
		"LOG_LEVEL":            "debug",
		"RATE_LIMIT_RPS":       "2.5",
		"LOGIN_LOCK_DURATION":  "1m",
	}))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, 6, cfg.OTPDigits)
	assert.False(t, cfg.OTPInResponse)
	assert.Equal(t, "ses", cfg.MailProvider)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.InDelta(t, 2.5, cfg.RateLimitRPS, 1e-9)
	assert.Equal(t, time.Minute, cfg.LockDuration)
}

func TestFromEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"production with dev secret", map[string]string{"ENV": "production"}},
		{"bad duration", map[string]string{"OTP_TTL": "five minutes"}},
		{"bad int", map[string]string{"OTP_DIGITS": "four"}},
		{"digits out of range", map[string]string{"OTP_DIGITS": "2"}},
		{"unknown mail provider", map[string]string{"MAIL_PROVIDER": "pigeon"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}},
		{"no lockout threshold", map[string]string{"LOGIN_MAX_ATTEMPTS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEnv(lookup(tt.env))
			assert.Error(t, err)
		})
	}
}
