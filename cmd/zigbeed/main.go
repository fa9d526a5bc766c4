// zigbeed - Zigbee network controller daemon
//
// zigbeed owns a Zigbee network through a coordinator radio: it drives
// device joining and interviews, persists the device registry, and
// bridges network events onto MQTT for consumers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/tubededentifrice/zigbee-herdsman/migrations"

	"github.com/tubededentifrice/zigbee-herdsman/internal/adapter"
	"github.com/tubededentifrice/zigbee-herdsman/internal/adapter/zstack"
	mqttbridge "github.com/tubededentifrice/zigbee-herdsman/internal/bridges/mqtt"
	"github.com/tubededentifrice/zigbee-herdsman/internal/controller"
	"github.com/tubededentifrice/zigbee-herdsman/internal/device"
	"github.com/tubededentifrice/zigbee-herdsman/internal/infrastructure/config"
	"github.com/tubededentifrice/zigbee-herdsman/internal/infrastructure/database"
	"github.com/tubededentifrice/zigbee-herdsman/internal/infrastructure/influxdb"
	"github.com/tubededentifrice/zigbee-herdsman/internal/infrastructure/logging"
	"github.com/tubededentifrice/zigbee-herdsman/internal/infrastructure/mqtt"
	"github.com/tubededentifrice/zigbee-herdsman/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main so failures
// map to exit codes in one place.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting zigbeed",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and bring the schema up to date
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		BackupPath:  cfg.Database.BackupPath,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}

	if cfg.Database.BackupPath != "" {
		if backupErr := db.Backup(ctx, cfg.Database.BackupPath); backupErr != nil {
			log.Warn("startup backup failed", "error", backupErr)
		} else {
			log.Info("startup backup written", "path", cfg.Database.BackupPath)
		}
	}

	// Device registry over SQLite
	registry := device.NewRegistry(
		device.NewSQLiteRepository(db.DB),
		device.NewSQLiteGroupRepository(db.DB),
	)
	registry.SetLogger(log)

	// Coordinator radio
	radio, err := buildAdapter(cfg, log)
	if err != nil {
		return err
	}

	// Controller: owns the network and the event loop
	ctrl := controller.New(controller.Options{
		Adapter:  radio,
		Registry: registry,
		Logger:   log.With("component", "controller"),
	})
	if err := ctrl.Start(ctx); err != nil {
		return fmt.Errorf("starting controller: %w", err)
	}
	defer func() {
		log.Info("stopping controller")
		if stopErr := ctrl.Stop(); stopErr != nil {
			log.Error("error stopping controller", "error", stopErr)
		}
	}()

	coordVersion, err := ctrl.GetCoordinatorVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading coordinator version: %w", err)
	}
	log.Info("network up",
		"stack", coordVersion.Type,
		"revision", coordVersion.Meta["revision"],
		"devices", registry.Count(),
	)

	// MQTT bridge (optional)
	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		bridge := mqttbridge.New(mqttbridge.Options{
			Broker:     mqttClient,
			Controller: ctrl,
			DaemonID:   cfg.MQTT.Broker.ClientID,
			Version:    version,
			QoS:        byte(cfg.MQTT.QoS),
			Logger:     log.With("component", "bridge"),
		})
		if err := bridge.Start(ctx); err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		defer func() {
			log.Info("stopping MQTT bridge")
			bridge.Stop()
		}()
	} else {
		log.Info("MQTT bridge disabled")
	}

	// Link-quality telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		recorder := telemetry.New(telemetry.Options{
			Writer: influxClient,
			Source: ctrl,
			Logger: log.With("component", "telemetry"),
		})
		recorder.Start(ctx)
		defer func() {
			log.Info("stopping telemetry recorder")
			recorder.Stop()
		}()
	} else {
		log.Info("InfluxDB disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls unwind in reverse order: telemetry, bridge, MQTT,
	// controller (which closes join admission and stops the radio), then
	// the database.

	return nil
}

// buildAdapter constructs the radio driver named in the serial config.
func buildAdapter(cfg *config.Config, log *logging.Logger) (adapter.Adapter, error) {
	switch cfg.Serial.Adapter {
	case "", "zstack":
		return zstack.New(zstack.Options{
			Port:          cfg.Serial.Path,
			BaudRate:      cfg.Serial.BaudRate,
			RTSCTS:        cfg.Serial.RTSCTS,
			NetworkKey:    cfg.Network.NetworkKeyBytes(),
			PANID:         cfg.Network.PANID,
			ExtendedPANID: cfg.Network.ExtendedPANIDBytes(),
			Channels:      cfg.Network.ChannelList,
			Logger:        log.With("component", "zstack"),
		}), nil
	default:
		return nil, fmt.Errorf("unsupported adapter type %q", cfg.Serial.Adapter)
	}
}

// getConfigPath returns the configuration file path.
// Uses ZIGBEED_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ZIGBEED_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
