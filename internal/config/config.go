// Package config loads the daemon configuration: defaults, then an optional
// YAML file, then command-line overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/gesture-sensor/internal/gpio"
	"github.com/sweeney/gesture-sensor/internal/mqtt"
)

// Screen source names.
const (
	ScreenSourceMQTT = "mqtt"
	ScreenSourceDBus = "dbus"
)

// Config is the full daemon configuration.
type Config struct {
	MQTT        MQTTConfig        `yaml:"mqtt"`
	HTTP        HTTPConfig        `yaml:"http"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Settings    SettingsConfig    `yaml:"settings"`
	Screen      ScreenConfig      `yaml:"screen"`
	GPIO        GPIOConfig        `yaml:"gpio"`
}

type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

type PreferencesConfig struct {
	Path string `yaml:"path"` // empty keeps preferences in memory
}

type SettingsConfig struct {
	Path string `yaml:"path"`
}

type ScreenConfig struct {
	Source        string `yaml:"source"`
	InitialWaitMS int    `yaml:"initial_wait_ms"`
}

type GPIOConfig struct {
	Chip       string `yaml:"chip"`
	Camera     int    `yaml:"camera"`
	FlatUp     int    `yaml:"flat_up"`
	Stow       int    `yaml:"stow"`
	IRWake     int    `yaml:"ir_wake"`
	IRSilence  int    `yaml:"ir_silence"`
	DebounceMS int    `yaml:"debounce_ms"`
	ActiveLow  bool   `yaml:"active_low"`
}

// InitialWait returns the screen initial wait as a duration.
func (c ScreenConfig) InitialWait() time.Duration {
	return time.Duration(c.InitialWaitMS) * time.Millisecond
}

// Debounce returns the line debounce period as a duration.
func (c GPIOConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		MQTT: MQTTConfig{
			Broker:      "tcp://127.0.0.1:1883",
			ClientID:    "gesture-sensor",
			TopicPrefix: mqtt.DefaultTopicPrefix,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Preferences: PreferencesConfig{
			Path: "/var/lib/gesture-sensor/preferences.yaml",
		},
		Settings: SettingsConfig{
			Path: "/etc/gesture-sensor/settings.env",
		},
		Screen: ScreenConfig{
			Source:        ScreenSourceMQTT,
			InitialWaitMS: 2000,
		},
		GPIO: GPIOConfig{
			Chip:       "gpiochip0",
			Camera:     gpio.DefaultLineCamera,
			FlatUp:     gpio.DefaultLineFlatUp,
			Stow:       gpio.DefaultLineStow,
			IRWake:     gpio.DefaultLineIRWake,
			IRSilence:  gpio.DefaultLineIRSilence,
			DebounceMS: 20,
		},
	}
}

// LoadConfigFile reads path over DefaultConfig. Unknown keys and trailing
// YAML documents are rejected.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// FlagOverrides holds command-line values. Nil fields were not set.
type FlagOverrides struct {
	Broker       *string
	HTTPAddr     *string
	PrefsPath    *string
	SettingsPath *string
	ScreenSource *string
}

// Apply copies every set override into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Broker != nil {
		cfg.MQTT.Broker = *o.Broker
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.PrefsPath != nil {
		cfg.Preferences.Path = *o.PrefsPath
	}
	if o.SettingsPath != nil {
		cfg.Settings.Path = *o.SettingsPath
	}
	if o.ScreenSource != nil {
		cfg.Screen.Source = *o.ScreenSource
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.MQTT.Broker == "" {
		return errors.New("mqtt.broker must be set")
	}
	if c.MQTT.ClientID == "" {
		return errors.New("mqtt.client_id must be set")
	}
	if c.MQTT.TopicPrefix == "" || strings.HasSuffix(c.MQTT.TopicPrefix, "/") {
		return fmt.Errorf("mqtt.topic_prefix %q must be non-empty without a trailing slash", c.MQTT.TopicPrefix)
	}
	switch c.Screen.Source {
	case ScreenSourceMQTT, ScreenSourceDBus:
	default:
		return fmt.Errorf("screen.source %q must be %q or %q", c.Screen.Source, ScreenSourceMQTT, ScreenSourceDBus)
	}
	if c.Screen.InitialWaitMS < 0 {
		return fmt.Errorf("screen.initial_wait_ms must be >= 0, got %d", c.Screen.InitialWaitMS)
	}
	if c.GPIO.Chip == "" {
		return errors.New("gpio.chip must be set")
	}
	if c.GPIO.DebounceMS < 0 {
		return fmt.Errorf("gpio.debounce_ms must be >= 0, got %d", c.GPIO.DebounceMS)
	}

	lines := map[string]int{
		"camera":     c.GPIO.Camera,
		"flat_up":    c.GPIO.FlatUp,
		"stow":       c.GPIO.Stow,
		"ir_wake":    c.GPIO.IRWake,
		"ir_silence": c.GPIO.IRSilence,
	}
	seen := make(map[int]string, len(lines))
	for _, name := range []string{"camera", "flat_up", "stow", "ir_wake", "ir_silence"} {
		offset := lines[name]
		if offset < 0 {
			return fmt.Errorf("gpio.%s must be >= 0, got %d", name, offset)
		}
		if other, dup := seen[offset]; dup {
			return fmt.Errorf("gpio.%s and gpio.%s share line %d", other, name, offset)
		}
		seen[offset] = name
	}
	return nil
}
