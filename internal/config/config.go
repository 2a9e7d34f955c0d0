package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Device          DeviceConfig    `yaml:"device"`
	Strip           StripConfig     `yaml:"strip"`
	Light           LightConfig     `yaml:"light"`
	API             APIConfig       `yaml:"api"`
	MQTT            MQTTConfig      `yaml:"mqtt"`
	Discovery       DiscoveryConfig `yaml:"discovery"`
	Ledger          LedgerConfig    `yaml:"ledger"`
	EventBus        EventBusConfig  `yaml:"eventbus"`
	Log             LogConfig       `yaml:"log"`
	Script          string          `yaml:"script"`           // Optional Lua alias script
	ShutdownTimeout Duration        `yaml:"shutdown_timeout"` // General shutdown timeout for graceful stops
}

// DeviceConfig identifies the controller to remote callers
type DeviceConfig struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	QueueSize int    `yaml:"queue_size"` // Pending calls before callers block (default: 32)
}

// StripConfig describes the LED strip sink
type StripConfig struct {
	Pixels     int    `yaml:"pixels"`      // Pixel count (default: 60)
	Sink       string `yaml:"sink"`        // memory | log | writer (default: log)
	Path       string `yaml:"path"`        // Device path for the writer sink
	ColorOrder string `yaml:"color_order"` // Channel order on the wire (default: GRB)
}

// LightConfig tunes command semantics
type LightConfig struct {
	// ColorPowersOn makes a COLOR command turn a dark strip on at 100.
	ColorPowersOn bool `yaml:"color_powers_on"`
}

// APIConfig contains the HTTP device API settings
type APIConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Host         string  `yaml:"host"`
	Port         int     `yaml:"port"`
	Token        string  `yaml:"token"`          // Access token, empty = no auth
	RateLimitRPS float64 `yaml:"rate_limit_rps"` // Function calls per second (default: 10)
}

// MQTTConfig contains MQTT transport settings
type MQTTConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Broker         string   `yaml:"broker"` // e.g. tcp://localhost:1883
	ClientID       string   `yaml:"client_id"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	TopicPrefix    string   `yaml:"topic_prefix"`
	ConnectTimeout Duration `yaml:"connect_timeout"`
}

// DiscoveryConfig contains mDNS advertisement settings
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LedgerConfig contains command ledger settings
type LedgerConfig struct {
	Enabled         bool     `yaml:"enabled"`
	Path            string   `yaml:"path"`
	CleanupInterval Duration `yaml:"cleanup_interval"`
	RetentionDays   int      `yaml:"retention_days"`
}

// EventBusConfig contains event bus settings
type EventBusConfig struct {
	Workers   int `yaml:"workers"`    // Number of worker goroutines (default: 2)
	QueueSize int `yaml:"queue_size"` // Event queue size (default: 64)
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Addr returns host:port for the API listener.
func (c *APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Retention returns the ledger retention window.
func (c *LedgerConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes configuration YAML, expanding environment variables and
// filling defaults.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()
	return &cfg, nil
}

func (cfg *Config) setDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// Device defaults
	if cfg.Device.ID == "" {
		cfg.Device.ID = "stripd"
	}
	if cfg.Device.Name == "" {
		cfg.Device.Name = "LED Strip"
	}

	// Strip defaults
	if cfg.Strip.Pixels <= 0 {
		cfg.Strip.Pixels = 60
	}
	if cfg.Strip.Sink == "" {
		cfg.Strip.Sink = "log"
	}
	if cfg.Strip.ColorOrder == "" {
		cfg.Strip.ColorOrder = "GRB"
	}

	// API defaults
	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.RateLimitRPS == 0 {
		cfg.API.RateLimitRPS = 10.0
	}

	// MQTT defaults
	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = cfg.Device.ID
	}
	if cfg.MQTT.TopicPrefix == "" {
		cfg.MQTT.TopicPrefix = "stripd/" + cfg.Device.ID
	}
	cfg.MQTT.TopicPrefix = strings.TrimSuffix(cfg.MQTT.TopicPrefix, "/")
	if cfg.MQTT.ConnectTimeout == 0 {
		cfg.MQTT.ConnectTimeout = Duration(10 * time.Second)
	}

	// Ledger defaults
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "./stripd.sqlite"
	}
	if cfg.Ledger.CleanupInterval == 0 {
		cfg.Ledger.CleanupInterval = Duration(24 * time.Hour)
	}
	if cfg.Ledger.RetentionDays == 0 {
		cfg.Ledger.RetentionDays = 30
	}

	// General shutdown timeout
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// envVarPattern matches ${VAR} or ${VAR:default}
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
