package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Channel limits for IEEE 802.15.4 in the 2.4 GHz band.
const (
	minChannel = 11
	maxChannel = 26

	// networkKeyLength is the required length of the network key in bytes.
	networkKeyLength = 16

	// extendedPANIDLength is the required length of the extended PAN id in bytes.
	extendedPANIDLength = 8
)

// Config is the root configuration structure for zigbeed.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Network  NetworkConfig  `yaml:"network"`
	Serial   SerialConfig   `yaml:"serial"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NetworkConfig contains the Zigbee network parameters.
// These are passed through to the adapter unmodified; the controller core
// does not interpret them.
type NetworkConfig struct {
	// NetworkKey is the 16-byte network encryption key, one byte per entry.
	NetworkKey []int `yaml:"network_key"`

	// PANID is the 16-bit personal area network identifier.
	PANID uint16 `yaml:"pan_id"`

	// ExtendedPANID is the 64-bit extended PAN identifier, one byte per entry.
	ExtendedPANID []int `yaml:"extended_pan_id"`

	// ChannelList is the set of 2.4 GHz channels (11-26) the network may use.
	// The first entry is the primary channel.
	ChannelList []int `yaml:"channel_list"`
}

// SerialConfig contains the adapter serial port settings.
type SerialConfig struct {
	// Path is the serial device path (e.g., /dev/ttyUSB0) or a tcp:// URL
	// for network-attached adapters.
	Path string `yaml:"path"`

	// BaudRate is the serial line speed. Default: 115200.
	BaudRate int `yaml:"baud_rate"`

	// RTSCTS enables hardware flow control.
	RTSCTS bool `yaml:"rtscts"`

	// Adapter names the radio firmware family (e.g., "zstack", "ember").
	Adapter string `yaml:"adapter"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	BackupPath  string `yaml:"backup_path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for the event bridge.
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for link-quality telemetry.
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

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: ZIGBEED_SECTION_KEY
// For example: ZIGBEED_DATABASE_PATH, ZIGBEED_SERIAL_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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

// defaultConfig returns a Config with sensible defaults.
// The default network key is the well-known Home Automation key the radio
// firmware ships with; production deployments should override it.
func defaultConfig() *Config {
	return &Config{
		Network: NetworkConfig{
			NetworkKey:    []int{1, 3, 5, 7, 9, 11, 13, 15, 0, 2, 4, 6, 8, 10, 12, 13},
			PANID:         0x1A62,
			ExtendedPANID: []int{0xDD, 0xDD, 0xDD, 0xDD, 0xDD, 0xDD, 0xDD, 0xDD},
			ChannelList:   []int{11},
		},
		Serial: SerialConfig{
			Path:     "/dev/ttyUSB0",
			BaudRate: 115200,
			Adapter:  "zstack",
		},
		Database: DatabaseConfig{
			Path:        "./data/zigbeed.db",
			BackupPath:  "./data/zigbeed.db.backup",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "zigbeed",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: ZIGBEED_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Serial
	if v := os.Getenv("ZIGBEED_SERIAL_PATH"); v != "" {
		cfg.Serial.Path = v
	}
	if v := os.Getenv("ZIGBEED_SERIAL_BAUD_RATE"); v != "" {
		if baud, err := strconv.Atoi(v); err == nil {
			cfg.Serial.BaudRate = baud
		}
	}

	// Database
	if v := os.Getenv("ZIGBEED_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("ZIGBEED_DATABASE_BACKUP_PATH"); v != "" {
		cfg.Database.BackupPath = v
	}

	// MQTT
	if v := os.Getenv("ZIGBEED_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("ZIGBEED_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("ZIGBEED_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("ZIGBEED_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Network validation
	if len(c.Network.NetworkKey) != networkKeyLength {
		errs = append(errs, fmt.Sprintf("network.network_key must be %d bytes", networkKeyLength))
	}
	if len(c.Network.ExtendedPANID) != extendedPANIDLength {
		errs = append(errs, fmt.Sprintf("network.extended_pan_id must be %d bytes", extendedPANIDLength))
	}
	if len(c.Network.ChannelList) == 0 {
		errs = append(errs, "network.channel_list must contain at least one channel")
	}
	for _, ch := range c.Network.ChannelList {
		if ch < minChannel || ch > maxChannel {
			errs = append(errs, fmt.Sprintf("network.channel_list entry %d out of range (%d-%d)", ch, minChannel, maxChannel))
			break
		}
	}

	// Serial validation
	if c.Serial.Path == "" {
		errs = append(errs, "serial.path is required")
	}
	if c.Serial.BaudRate <= 0 {
		errs = append(errs, "serial.baud_rate must be positive")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set ZIGBEED_INFLUXDB_TOKEN)")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// NetworkKeyBytes returns the network key as raw bytes for the adapter.
func (c NetworkConfig) NetworkKeyBytes() []byte {
	key := make([]byte, len(c.NetworkKey))
	for i, b := range c.NetworkKey {
		key[i] = byte(b)
	}
	return key
}

// ExtendedPANIDBytes returns the extended PAN id as raw bytes for the adapter.
func (c NetworkConfig) ExtendedPANIDBytes() []byte {
	id := make([]byte, len(c.ExtendedPANID))
	for i, b := range c.ExtendedPANID {
		id[i] = byte(b)
	}
	return id
}

// GetReconnectInitialDelay returns the MQTT reconnect initial delay as a Duration.
func (c MQTTConfig) GetReconnectInitialDelay() time.Duration {
	return time.Duration(c.Reconnect.InitialDelay) * time.Second
}

// GetReconnectMaxDelay returns the MQTT reconnect maximum delay as a Duration.
func (c MQTTConfig) GetReconnectMaxDelay() time.Duration {
	return time.Duration(c.Reconnect.MaxDelay) * time.Second
}
