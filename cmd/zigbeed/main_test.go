package main

import (
	"testing"

	"github.com/tubededentifrice/zigbee-herdsman/internal/infrastructure/config"
	"github.com/tubededentifrice/zigbee-herdsman/internal/infrastructure/logging"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Serial.Path = "/dev/ttyUSB0"
	cfg.Serial.BaudRate = 115200
	return cfg
}

func TestBuildAdapterZStack(t *testing.T) {
	cfg := testConfig()
	cfg.Serial.Adapter = "zstack"
	cfg.Network.NetworkKey = []int{1, 3, 5, 7, 9, 11, 13, 15, 0, 2, 4, 6, 8, 10, 12, 13}
	cfg.Network.PANID = 0x1A62
	cfg.Network.ChannelList = []int{11}

	radio, err := buildAdapter(cfg, logging.Default())
	if err != nil {
		t.Fatalf("buildAdapter() error = %v", err)
	}
	if radio == nil {
		t.Fatal("buildAdapter() returned nil adapter")
	}
}

func TestBuildAdapterDefaultsToZStack(t *testing.T) {
	cfg := testConfig()
	cfg.Serial.Adapter = ""

	if _, err := buildAdapter(cfg, logging.Default()); err != nil {
		t.Errorf("buildAdapter() error = %v", err)
	}
}

func TestBuildAdapterUnsupportedType(t *testing.T) {
	cfg := testConfig()
	cfg.Serial.Adapter = "ember"

	if _, err := buildAdapter(cfg, logging.Default()); err == nil {
		t.Error("buildAdapter() expected error for unsupported adapter type")
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("ZIGBEED_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("ZIGBEED_CONFIG", "/etc/zigbeed/config.yaml")
	if got := getConfigPath(); got != "/etc/zigbeed/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}
