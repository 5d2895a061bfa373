package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"

	"github.com/srg/cscbridge/internal/profile"
)

// Config holds all bridge configuration.
type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Profiles ProfilesConfig `yaml:"profiles"`
	Notify   NotifyConfig   `yaml:"notify"`
	Publish  PublishConfig  `yaml:"publish"`
	Source   SourceConfig   `yaml:"source"`
	Events   EventsConfig   `yaml:"events"`
	LogLevel string         `yaml:"log_level" default:"info"`
}

// DeviceConfig holds the advertised identity of the peripheral.
type DeviceConfig struct {
	Name      string `yaml:"name" default:"cscbridge"`
	Advertise bool   `yaml:"advertise" default:"true"`
}

// ProfilesConfig selects what is published.
type ProfilesConfig struct {
	Enabled     []string `yaml:"enabled"`
	CSCFeatures []string `yaml:"csc_features"`
}

// NotifyConfig holds the periodic notifier settings.
type NotifyConfig struct {
	Interval time.Duration `yaml:"interval" default:"1s"`
	// SkipIdle suppresses a profile until one of its sensor channels reported.
	SkipIdle bool `yaml:"skip_idle" default:"true"`
}

// PublishConfig holds profile registration settings.
type PublishConfig struct {
	AckTimeout time.Duration `yaml:"ack_timeout" default:"5s"`
	Retries    int           `yaml:"retries" default:"0"`
	RetryDelay time.Duration `yaml:"retry_delay" default:"500ms"`
}

// SourceConfig selects the upstream sensor input.
type SourceConfig struct {
	Kind   string       `yaml:"kind" default:"script"` // "script", "serial" or "none"
	Script ScriptConfig `yaml:"script"`
	Serial SerialConfig `yaml:"serial"`
}

// ScriptConfig configures the Lua simulator. An empty Path runs the built-in ride.
type ScriptConfig struct {
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval" default:"250ms"`
}

// SerialConfig configures the PTY line-protocol input.
type SerialConfig struct {
	BufferSize int `yaml:"buffer_size" default:"4096"`
	// Link, when set, is a symlink created to the PTY slave path.
	Link string `yaml:"link"`
}

// EventsConfig sizes the display event stream.
type EventsConfig struct {
	BusCapacity int    `yaml:"bus_capacity" default:"256"`
	JournalSize uint32 `yaml:"journal_size" default:"128"`
}

// DefaultConfigPath returns ~/.config/cscbridge/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "cscbridge", "config.yaml")
}

// Default returns a Config populated from the struct tag defaults.
func Default() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	cfg.Profiles.Enabled = []string{"csc", "rsc", "hr"}
	cfg.Profiles.CSCFeatures = []string{"wheel", "crank"}
	return cfg
}

// Load reads a YAML file over the defaults. A missing file at the default location is
// not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Validate checks the config for invalid values.
func (c *Config) Validate() error {
	if c.Device.Name == "" {
		return fmt.Errorf("device.name must not be empty")
	}

	if _, err := c.ProfileIDs(); err != nil {
		return fmt.Errorf("profiles.enabled: %w", err)
	}
	if _, err := c.CSCMask(); err != nil {
		return fmt.Errorf("profiles.csc_features: %w", err)
	}

	if c.Notify.Interval <= 0 {
		return fmt.Errorf("notify.interval must be > 0, got %s", c.Notify.Interval)
	}
	if c.Publish.AckTimeout <= 0 {
		return fmt.Errorf("publish.ack_timeout must be > 0, got %s", c.Publish.AckTimeout)
	}
	if c.Publish.Retries < 0 {
		return fmt.Errorf("publish.retries must be >= 0, got %d", c.Publish.Retries)
	}
	if c.Publish.RetryDelay < 0 {
		return fmt.Errorf("publish.retry_delay must be >= 0, got %s", c.Publish.RetryDelay)
	}

	switch c.Source.Kind {
	case "script":
		if c.Source.Script.Interval <= 0 {
			return fmt.Errorf("source.script.interval must be > 0, got %s", c.Source.Script.Interval)
		}
	case "serial":
		if c.Source.Serial.BufferSize <= 0 {
			return fmt.Errorf("source.serial.buffer_size must be > 0, got %d", c.Source.Serial.BufferSize)
		}
	case "none":
	default:
		return fmt.Errorf("source.kind must be \"script\", \"serial\" or \"none\", got %q", c.Source.Kind)
	}

	if c.Events.BusCapacity <= 0 {
		return fmt.Errorf("events.bus_capacity must be > 0")
	}
	if c.Events.JournalSize == 0 {
		return fmt.Errorf("events.journal_size must be > 0")
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// ProfileIDs resolves Profiles.Enabled.
func (c *Config) ProfileIDs() ([]profile.ID, error) {
	ids := make([]profile.ID, 0, len(c.Profiles.Enabled))
	for _, name := range c.Profiles.Enabled {
		id, err := profile.ParseID(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CSCMask resolves Profiles.CSCFeatures.
func (c *Config) CSCMask() (profile.FeatureMask, error) {
	return profile.ParseFeatures(profile.CyclingSpeedCadence, c.Profiles.CSCFeatures)
}
