// SimLock - simulated PIN-entry door lock
//
// SimLock exposes a virtual lock as a Web Thing: an HTTP and websocket
// device host on port 8888 by default, plus optional MQTT, an SQLite
// action audit log and InfluxDB telemetry.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-simlock/internal/action"
	"github.com/nerrad567/gray-logic-simlock/internal/api"
	"github.com/nerrad567/gray-logic-simlock/internal/audit"
	"github.com/nerrad567/gray-logic-simlock/internal/bridge"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-simlock/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-simlock/internal/lock"
	"github.com/nerrad567/gray-logic-simlock/internal/metrics"
	"github.com/nerrad567/gray-logic-simlock/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// auditBufferSize is the number of finished actions queued for the audit log.
const auditBufferSize = 256

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the lock to its device hosts and blocks until ctx is cancelled.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting SimLock",
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

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// The lock and its dispatcher
	device := lock.NewDevice()
	device.SetLogger(log.With("component", "lock"))

	dispatcher := action.NewDispatcher(device, action.Config{
		QueueSize:  cfg.Lock.QueueSize,
		MaxHistory: cfg.Lock.MaxHistory,
	})
	dispatcher.SetLogger(log.With("component", "dispatcher"))

	metrics.ObserveLockState(device.Locked(), len(device.Users()))
	device.OnPropertyChange(func(string, any) {
		metrics.ObserveLockState(device.Locked(), len(device.Users()))
	})

	checks := make(map[string]api.HealthCheckFunc)

	// Audit log (optional)
	var auditRepo audit.Repository
	if cfg.Database.Enabled {
		db, recorder, openErr := openAudit(ctx, cfg.Database, log)
		if openErr != nil {
			return openErr
		}
		defer func() {
			log.Info("closing database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing database", "error", closeErr)
			}
		}()

		recorderDone := make(chan struct{})
		// Outlives ctx so actions finished during shutdown are recorded.
		recorderCtx, stopRecorder := context.WithCancel(context.WithoutCancel(ctx))
		go func() {
			defer close(recorderDone)
			recorder.Run(recorderCtx)
		}()
		// Runs before the database closes so the buffer is flushed.
		defer func() {
			stopRecorder()
			<-recorderDone
		}()

		dispatcher.OnStatus(recorder.Observe)
		auditRepo = audit.NewSQLiteRepository(db.DB)
		checks["database"] = db.HealthCheck
	} else {
		log.Info("audit log disabled")
	}

	// InfluxDB telemetry (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Thing.ID)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		wireTelemetry(influxClient, device, dispatcher)
		checks["influxdb"] = influxClient.HealthCheck
	} else {
		log.Info("InfluxDB disabled")
	}

	dispatcher.Start(ctx)
	defer func() {
		log.Info("stopping dispatcher")
		dispatcher.Close()
	}()

	// MQTT device host (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttBridge, mqttErr := startBridge(ctx, cfg, device, dispatcher, log)
		if mqttErr != nil {
			return mqttErr
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			mqttBridge.Stop()
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		checks["mqtt"] = mqttClient.HealthCheck
	} else {
		log.Info("MQTT device host disabled")
	}

	// HTTP device host
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Thing:      cfg.Thing,
		Logger:     log.With("component", "api"),
		Device:     device,
		Dispatcher: dispatcher,
		Audit:      auditRepo,
		Checks:     checks,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating device host: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting device host: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping device host", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal",
		"address", cfg.Addr(),
		"thing", cfg.Thing.ID,
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order:
	// 1. HTTP device host
	// 2. MQTT bridge and client (if enabled)
	// 3. Dispatcher
	// 4. InfluxDB (if enabled)
	// 5. Audit recorder, then database (if enabled)

	log.Info("SimLock stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG if set. Otherwise the default path, or "" (built-in
// defaults) when no file exists there.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); errors.Is(err, os.ErrNotExist) {
		return ""
	}
	return defaultConfigPath
}

// openAudit opens and migrates the database and creates the recorder that
// feeds it.
func openAudit(ctx context.Context, cfg config.DatabaseConfig, log *logging.Logger) (*database.DB, *audit.Recorder, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info("database connected", "path", db.Path())

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	applied, pending, err := db.GetMigrationStatus(ctx, migrations.FS)
	if err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("reading migration status: %w", err)
	}
	schema := "none"
	if len(applied) > 0 {
		schema = applied[len(applied)-1].Version
	}
	log.Info("database migrations complete",
		"schema_version", schema,
		"applied", len(applied),
		"pending", len(pending),
	)

	recorder := audit.NewRecorder(audit.NewSQLiteRepository(db.DB), auditBufferSize)
	recorder.SetLogger(log.With("component", "audit"))
	return db, recorder, nil
}

// startBridge connects to the broker and starts the MQTT device host.
func startBridge(ctx context.Context, cfg *config.Config, device *lock.Device, dispatcher *action.Dispatcher, log *logging.Logger) (*mqtt.Client, *bridge.Bridge, error) {
	mqttClient, err := mqtt.Connect(cfg.MQTT, cfg.Thing.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log.With("component", "mqtt"))
	mqttClient.OnConnect(func() {
		log.Info("MQTT connected, lock status published", "thing", cfg.Thing.ID)
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	b, err := bridge.New(bridge.Options{
		Thing:      cfg.Thing.ID,
		MQTTClient: mqttClient,
		Dispatcher: dispatcher,
		Device:     device,
		Logger:     log.With("component", "bridge"),
	})
	if err != nil {
		mqttClient.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("creating MQTT bridge: %w", err)
	}
	if err := b.Start(ctx); err != nil {
		mqttClient.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("starting MQTT bridge: %w", err)
	}
	log.Info("MQTT device host started")

	return mqttClient, b, nil
}

// telemetryWriter is the subset of *influxdb.Client fed by wireTelemetry.
type telemetryWriter interface {
	WriteLockState(locked bool, users int)
	WriteAction(name, status string, duration time.Duration)
}

// wireTelemetry writes a lock_state point on every property change and a
// lock_action point for every finished action.
func wireTelemetry(w telemetryWriter, device *lock.Device, dispatcher *action.Dispatcher) {
	w.WriteLockState(device.Locked(), len(device.Users()))
	device.OnPropertyChange(func(string, any) {
		w.WriteLockState(device.Locked(), len(device.Users()))
	})
	dispatcher.OnStatus(func(a action.Action) {
		if !a.Status.Finished() {
			return
		}
		var d time.Duration
		if a.TimeCompleted != nil {
			d = a.TimeCompleted.Sub(a.TimeRequested)
		}
		w.WriteAction(a.Name, string(a.Status), d)
	})
}

// healthCheck runs every registered component check once at startup.
func healthCheck(ctx context.Context, checks map[string]api.HealthCheckFunc) error {
	for name, check := range checks {
		if err := check(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
