package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/gray-logic-dialogue/internal/api"
	"github.com/nerrad567/gray-logic-dialogue/internal/audit"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-dialogue/internal/telemetry"
	"github.com/nerrad567/gray-logic-dialogue/internal/transport"
)

// sessionSweepInterval is how often expired conversations are dropped.
const sessionSweepInterval = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dialogue service",
	Long: `Starts the HTTP and WebSocket API.

The service loads the inventory, keeps the catalog fresh (periodic refresh
and graylogic/inventory/changed over MQTT), and sends device commands
through the configured transport.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), configPath)
	},
}

// run is the service's lifetime, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context, path string) error { //nolint:gocognit,gocyclo // Startup wiring: one step per component
	logging.Default().Info("starting Gray Logic Dialogue",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, log, err := loadConfig(path)
	if err != nil {
		return err
	}

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.Component("mqtt"))
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
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// Catalog
	src, err := buildSource(cfg, db, log)
	if err != nil {
		return err
	}
	store, err := newStore(ctx, src, log)
	if err != nil {
		return err
	}
	go store.Run(ctx, cfg.GetRefreshInterval())

	if mqttClient != nil {
		watcher := transport.NewInventoryWatcher(store, 0)
		watcher.SetLogger(log.Component("transport"))
		if err := watcher.Subscribe(mqttClient); err != nil {
			return fmt.Errorf("watching inventory changes: %w", err)
		}
		go watcher.Run(ctx)
	}

	// Command path
	dispatcher, reader, err := buildDispatch(cfg, mqttClient, log)
	if err != nil {
		return err
	}
	log.Info("command transport ready", "transport", cfg.Dispatch.Transport)

	engine := newEngine(cfg, store, dispatcher, reader, log)
	svc := newDialogue(cfg, store, engine, log)
	go svc.Sessions().Run(ctx, sessionSweepInterval)

	if influxClient != nil {
		rec := telemetry.NewRecorder(influxClient)
		engine.SetRecorder(rec)
		svc.AddObserver(rec)
	}

	// Turn journal; drained before the database closes
	turns := audit.NewSQLiteRepository(db.DB)
	journal := audit.NewJournal(turns)
	journal.SetLogger(log.Component("audit"))
	svc.AddObserver(journal)
	journalCtx, stopJournal := context.WithCancel(ctx)
	journalDone := make(chan struct{})
	go func() {
		defer close(journalDone)
		journal.Run(journalCtx)
	}()
	defer func() {
		stopJournal()
		<-journalDone
	}()

	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	svc.AddObserver(hub)

	apiServer, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log.Component("api"),
		Dialogue: svc,
		Catalogs: store,
		Hub:      hub,
		Turns:    turns,
		Health:   healthCheckers(db, mqttClient, influxClient),
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, turn journal, InfluxDB, MQTT, database.
	return nil
}

// healthCheckers lists the dependencies reported by /health.
func healthCheckers(db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) map[string]api.HealthChecker {
	checks := map[string]api.HealthChecker{"database": db}
	if mqttClient != nil {
		checks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}
	return checks
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// Ensure the configured clients satisfy the health interface.
var (
	_ api.HealthChecker = (*database.DB)(nil)
	_ api.HealthChecker = (*mqtt.Client)(nil)
	_ api.HealthChecker = (*influxdb.Client)(nil)
)
