package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/cscbridge/internal/profile"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "cscbridge", cfg.Device.Name)
	assert.True(t, cfg.Device.Advertise)
	assert.Equal(t, []string{"csc", "rsc", "hr"}, cfg.Profiles.Enabled)
	assert.Equal(t, time.Second, cfg.Notify.Interval)
	assert.True(t, cfg.Notify.SkipIdle)
	assert.Equal(t, 5*time.Second, cfg.Publish.AckTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Publish.RetryDelay)
	assert.Equal(t, "script", cfg.Source.Kind)
	assert.Equal(t, 250*time.Millisecond, cfg.Source.Script.Interval)
	assert.Equal(t, 4096, cfg.Source.Serial.BufferSize)
	assert.Equal(t, 256, cfg.Events.BusCapacity)
	assert.Equal(t, uint32(128), cfg.Events.JournalSize)
	assert.Equal(t, "info", cfg.LogLevel)

	require.NoError(t, cfg.Validate())

	mask, err := cfg.CSCMask()
	require.NoError(t, err)
	assert.Equal(t, profile.CSCWheelRevolution|profile.CSCCrankRevolution, mask)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
device:
  name: trainer
profiles:
  enabled: [hr, csc]
  csc_features: [wheel]
notify:
  interval: 250ms
  skip_idle: false
publish:
  retries: 2
source:
  kind: serial
  serial:
    link: /tmp/cscbridge
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "trainer", cfg.Device.Name)
	assert.True(t, cfg.Device.Advertise, "unset fields keep defaults")
	assert.Equal(t, 250*time.Millisecond, cfg.Notify.Interval)
	assert.False(t, cfg.Notify.SkipIdle)
	assert.Equal(t, 2, cfg.Publish.Retries)
	assert.Equal(t, 5*time.Second, cfg.Publish.AckTimeout)
	assert.Equal(t, "serial", cfg.Source.Kind)
	assert.Equal(t, "/tmp/cscbridge", cfg.Source.Serial.Link)
	assert.Equal(t, 4096, cfg.Source.Serial.BufferSize)

	ids, err := cfg.ProfileIDs()
	require.NoError(t, err)
	assert.Equal(t, []profile.ID{profile.HeartRate, profile.CyclingSpeedCadence}, ids)

	mask, err := cfg.CSCMask()
	require.NoError(t, err)
	assert.Equal(t, profile.CSCWheelRevolution, mask)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("notify: [unclosed"), 0o600))
	_, err = Load(path)
	assert.ErrorContains(t, err, "parsing config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"empty name", func(c *Config) { c.Device.Name = "" }, "device.name"},
		{"unknown profile", func(c *Config) { c.Profiles.Enabled = []string{"power"} }, "profiles.enabled"},
		{"unknown feature", func(c *Config) { c.Profiles.CSCFeatures = []string{"gear"} }, "profiles.csc_features"},
		{"zero interval", func(c *Config) { c.Notify.Interval = 0 }, "notify.interval"},
		{"zero ack timeout", func(c *Config) { c.Publish.AckTimeout = 0 }, "publish.ack_timeout"},
		{"negative retries", func(c *Config) { c.Publish.Retries = -1 }, "publish.retries"},
		{"unknown source", func(c *Config) { c.Source.Kind = "ant" }, "source.kind"},
		{"zero script interval", func(c *Config) { c.Source.Script.Interval = 0 }, "source.script.interval"},
		{"zero serial buffer", func(c *Config) { c.Source.Kind = "serial"; c.Source.Serial.BufferSize = 0 }, "source.serial.buffer_size"},
		{"zero journal", func(c *Config) { c.Events.JournalSize = 0 }, "events.journal_size"},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("warn", nil)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())

	logger, err = NewLogger("", nil)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	_, err = NewLogger("verbose", nil)
	assert.Error(t, err)
}
