package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
serial:
  path: "/dev/ttyACM0"
  baud_rate: 460800
  adapter: "zstack"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 1883
    client_id: "zigbeed-test"
  qos: 1
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Serial.Path != "/dev/ttyACM0" {
		t.Errorf("Serial.Path = %q, want /dev/ttyACM0", cfg.Serial.Path)
	}
	if cfg.Serial.BaudRate != 460800 {
		t.Errorf("Serial.BaudRate = %d, want 460800", cfg.Serial.BaudRate)
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want /tmp/test.db", cfg.Database.Path)
	}
	if cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT.Broker.Host = %q, want broker.local", cfg.MQTT.Broker.Host)
	}
}

func TestLoad_Defaults(t *testing.T) {
	// Minimal file: everything else should come from defaults.
	cfg, err := Load(writeConfig(t, "database:\n  path: \"/tmp/test.db\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Serial.Path != "/dev/ttyUSB0" {
		t.Errorf("Serial.Path = %q, want /dev/ttyUSB0", cfg.Serial.Path)
	}
	if cfg.Serial.BaudRate != 115200 {
		t.Errorf("Serial.BaudRate = %d, want 115200", cfg.Serial.BaudRate)
	}
	if cfg.Serial.Adapter != "zstack" {
		t.Errorf("Serial.Adapter = %q, want zstack", cfg.Serial.Adapter)
	}
	if len(cfg.Network.NetworkKey) != 16 {
		t.Errorf("Network.NetworkKey length = %d, want 16", len(cfg.Network.NetworkKey))
	}
	if cfg.Network.PANID != 0x1A62 {
		t.Errorf("Network.PANID = 0x%04x, want 0x1A62", cfg.Network.PANID)
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("MQTT.QoS = %d, want 1", cfg.MQTT.QoS)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ZIGBEED_SERIAL_PATH", "/dev/ttyUSB7")
	t.Setenv("ZIGBEED_MQTT_PASSWORD", "hunter2")

	cfg, err := Load(writeConfig(t, "database:\n  path: \"/tmp/test.db\"\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Serial.Path != "/dev/ttyUSB7" {
		t.Errorf("Serial.Path = %q, want env override /dev/ttyUSB7", cfg.Serial.Path)
	}
	if cfg.MQTT.Auth.Password != "hunter2" {
		t.Errorf("MQTT.Auth.Password = %q, want env override", cfg.MQTT.Auth.Password)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "invalid: [yaml: content")); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestValidate_ChannelRange(t *testing.T) {
	cfg := defaultConfig()
	cfg.Network.ChannelList = []int{27}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error for channel out of range")
	}
	if !strings.Contains(err.Error(), "channel_list") {
		t.Errorf("error = %v, want mention of channel_list", err)
	}
}

func TestValidate_NetworkKeyLength(t *testing.T) {
	cfg := defaultConfig()
	cfg.Network.NetworkKey = []int{1, 2, 3}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for short network key")
	}
}

func TestValidate_MQTTHostRequiredWhenEnabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.MQTT.Enabled = true
	cfg.MQTT.Broker.Host = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for enabled MQTT without host")
	}
}

func TestValidate_InfluxDBTokenRequiredWhenEnabled(t *testing.T) {
	cfg := defaultConfig()
	cfg.InfluxDB.Enabled = true
	cfg.InfluxDB.URL = "http://localhost:8086"
	cfg.InfluxDB.Token = ""

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() expected error for enabled InfluxDB without token")
	}
}

func TestNetworkByteConversions(t *testing.T) {
	cfg := defaultConfig()

	key := cfg.Network.NetworkKeyBytes()
	if len(key) != networkKeyLength {
		t.Fatalf("NetworkKeyBytes() length = %d, want %d", len(key), networkKeyLength)
	}
	if key[0] != 1 || key[15] != 13 {
		t.Errorf("NetworkKeyBytes() = %v", key)
	}

	id := cfg.Network.ExtendedPANIDBytes()
	if len(id) != extendedPANIDLength {
		t.Fatalf("ExtendedPANIDBytes() length = %d, want %d", len(id), extendedPANIDLength)
	}
	if id[0] != 0xDD {
		t.Errorf("ExtendedPANIDBytes() = %v", id)
	}
}

func TestReconnectDelays(t *testing.T) {
	cfg := MQTTConfig{Reconnect: MQTTReconnectConfig{InitialDelay: 2, MaxDelay: 30}}

	if got := cfg.GetReconnectInitialDelay(); got != 2*time.Second {
		t.Errorf("GetReconnectInitialDelay() = %v, want 2s", got)
	}
	if got := cfg.GetReconnectMaxDelay(); got != 30*time.Second {
		t.Errorf("GetReconnectMaxDelay() = %v, want 30s", got)
	}
}
