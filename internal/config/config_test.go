package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medflow/internal/medical"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1.0, cfg.DelayScale)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.False(t, cfg.ReportsEnabled())
	assert.Equal(t, medical.UrgencyHigh, cfg.MinUrgency())
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MEDFLOW_PORT", "9090")
	t.Setenv("MEDFLOW_DELAY_SCALE", "0")
	t.Setenv("MEDFLOW_CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("MEDFLOW_TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("MEDFLOW_DOCTOR_CHAT_ID", "42")
	t.Setenv("MEDFLOW_REPORT_MIN_URGENCY", "Emergency")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Zero(t, cfg.DelayScale)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.True(t, cfg.ReportsEnabled())
	assert.Equal(t, int64(42), cfg.DoctorChatID)
	assert.Equal(t, medical.UrgencyEmergency, cfg.MinUrgency())
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MEDFLOW_DELAY_SCALE", "fast")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := Config{LogLevel: "info", ReportMinUrgency: "high"}
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.LogLevel = "loud" }},
		{"urgency", func(c *Config) { c.ReportMinUrgency = "soon" }},
		{"negative delay", func(c *Config) { c.DelayScale = -1 }},
		{"token without chat", func(c *Config) { c.TelegramBotToken = "t" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
