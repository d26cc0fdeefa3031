package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Inventory source kinds.
const (
	SourceFile          = "file"
	SourceSQLite        = "sqlite"
	SourceHomeAssistant = "homeassistant"
)

// Dispatch transport kinds.
const (
	TransportMQTT          = "mqtt"
	TransportHomeAssistant = "homeassistant"
	TransportLog           = "log"
)

// Config is the root configuration structure for the Gray Logic dialogue service.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site          SiteConfig          `yaml:"site"`
	Database      DatabaseConfig      `yaml:"database"`
	MQTT          MQTTConfig          `yaml:"mqtt"`
	API           APIConfig           `yaml:"api"`
	WebSocket     WebSocketConfig     `yaml:"websocket"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
	Inventory     InventoryConfig     `yaml:"inventory"`
	HomeAssistant HomeAssistantConfig `yaml:"homeassistant"`
	Dispatch      DispatchConfig      `yaml:"dispatch"`
	Dialogue      DialogueConfig      `yaml:"dialogue"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains dialogue WebSocket settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// InventoryConfig selects where the device catalog comes from and how often
// it is rebuilt.
type InventoryConfig struct {
	// Source is one of "file", "sqlite" or "homeassistant".
	Source string `yaml:"source"`

	// File is the YAML inventory used by the "file" source.
	File string `yaml:"file"`

	// RefreshInterval is the periodic rebuild interval in seconds. 0 disables it.
	RefreshInterval int `yaml:"refresh_interval"`

	// RefreshOnNewConversation rebuilds the catalog whenever a conversation starts.
	RefreshOnNewConversation bool `yaml:"refresh_on_new_conversation"`

	// CacheSnapshots persists every successful load into SQLite so a later
	// start can fall back to it when the primary source is unreachable.
	CacheSnapshots bool `yaml:"cache_snapshots"`
}

// HomeAssistantConfig contains Home Assistant connection settings.
type HomeAssistantConfig struct {
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Timeout int    `yaml:"timeout"`
	Retries int    `yaml:"retries"`
}

// DispatchConfig selects the command transport.
type DispatchConfig struct {
	// Transport is one of "mqtt", "homeassistant" or "log".
	Transport string `yaml:"transport"`

	// Timeout bounds a single device command, in seconds.
	Timeout int `yaml:"timeout"`
}

// DialogueConfig tunes the slot-filling dialogue and adjustment engine.
type DialogueConfig struct {
	// OnThreshold is the percentage at or above which an absolute set on a
	// device without the named attribute switches it on.
	OnThreshold float64 `yaml:"on_threshold"`

	// RelativeStep is the default amount for "turn up" style phrases, as a fraction.
	RelativeStep float64 `yaml:"relative_step"`

	// SessionTTL expires idle conversations, in seconds.
	SessionTTL int `yaml:"session_ttl"`

	// SuggestAlternatives enables the relaxed re-query after an empty match.
	SuggestAlternatives bool `yaml:"suggest_alternatives"`

	// AutoSubmit applies the adjustment as soon as a turn resolves.
	AutoSubmit bool `yaml:"auto_submit"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_DATABASE_PATH, GRAYLOGIC_HA_TOKEN
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. It is used when no config file is given.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic",
		},
		Database: DatabaseConfig{
			Path:        "./data/graylogic-dialogue.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-dialogue",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Inventory: InventoryConfig{
			Source: SourceFile,
			File:   "./configs/inventory.yaml",
		},
		HomeAssistant: HomeAssistantConfig{
			URL:     "http://localhost:8123",
			Timeout: 10,
			Retries: 2,
		},
		Dispatch: DispatchConfig{
			Transport: TransportLog,
			Timeout:   5,
		},
		Dialogue: DialogueConfig{
			OnThreshold:         20,
			RelativeStep:        0.25,
			SessionTTL:          300,
			SuggestAlternatives: true,
			AutoSubmit:          true,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Inventory
	if v := os.Getenv("GRAYLOGIC_INVENTORY_SOURCE"); v != "" {
		cfg.Inventory.Source = v
	}
	if v := os.Getenv("GRAYLOGIC_INVENTORY_FILE"); v != "" {
		cfg.Inventory.File = v
	}

	// Home Assistant - the long-lived token should never live in the file
	if v := os.Getenv("GRAYLOGIC_HA_URL"); v != "" {
		cfg.HomeAssistant.URL = v
	}
	if v := os.Getenv("GRAYLOGIC_HA_TOKEN"); v != "" {
		cfg.HomeAssistant.Token = v
	}

	// Dispatch
	if v := os.Getenv("GRAYLOGIC_DISPATCH_TRANSPORT"); v != "" {
		cfg.Dispatch.Transport = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	switch c.Inventory.Source {
	case SourceFile:
		if c.Inventory.File == "" {
			errs = append(errs, "inventory.file is required when inventory.source is file")
		}
	case SourceSQLite:
	case SourceHomeAssistant:
		if c.HomeAssistant.URL == "" {
			errs = append(errs, "homeassistant.url is required when inventory.source is homeassistant")
		}
		if c.HomeAssistant.Token == "" {
			errs = append(errs, "homeassistant.token is required (set GRAYLOGIC_HA_TOKEN environment variable)")
		}
	default:
		errs = append(errs, fmt.Sprintf("inventory.source %q must be file, sqlite or homeassistant", c.Inventory.Source))
	}

	if c.Inventory.RefreshInterval < 0 {
		errs = append(errs, "inventory.refresh_interval cannot be negative")
	}

	switch c.Dispatch.Transport {
	case TransportLog:
	case TransportMQTT:
		if !c.MQTT.Enabled {
			errs = append(errs, "dispatch.transport mqtt requires mqtt.enabled")
		}
	case TransportHomeAssistant:
		if c.HomeAssistant.URL == "" || c.HomeAssistant.Token == "" {
			errs = append(errs, "dispatch.transport homeassistant requires homeassistant.url and homeassistant.token")
		}
	default:
		errs = append(errs, fmt.Sprintf("dispatch.transport %q must be mqtt, homeassistant or log", c.Dispatch.Transport))
	}

	if c.Dialogue.OnThreshold <= 0 || c.Dialogue.OnThreshold > 100 {
		errs = append(errs, "dialogue.on_threshold must be above 0 and at most 100")
	}
	if c.Dialogue.RelativeStep <= 0 {
		errs = append(errs, "dialogue.relative_step must be positive")
	}
	if c.Dialogue.SessionTTL < 1 {
		errs = append(errs, "dialogue.session_ttl must be at least 1 second")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetRefreshInterval returns the periodic catalog rebuild interval.
func (c *Config) GetRefreshInterval() time.Duration {
	return time.Duration(c.Inventory.RefreshInterval) * time.Second
}

// GetSessionTTL returns the idle conversation expiry.
func (c *Config) GetSessionTTL() time.Duration {
	return time.Duration(c.Dialogue.SessionTTL) * time.Second
}

// GetDispatchTimeout returns the per-command dispatch timeout.
func (c *Config) GetDispatchTimeout() time.Duration {
	return time.Duration(c.Dispatch.Timeout) * time.Second
}

// GetHomeAssistantTimeout returns the Home Assistant request timeout.
func (c *Config) GetHomeAssistantTimeout() time.Duration {
	return time.Duration(c.HomeAssistant.Timeout) * time.Second
}
