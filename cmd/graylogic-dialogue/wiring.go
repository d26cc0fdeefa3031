package main

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-dialogue/internal/adjust"
	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/dialogue"
	"github.com/nerrad567/gray-logic-dialogue/internal/homeassistant"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-dialogue/internal/transport"
	"github.com/nerrad567/gray-logic-dialogue/migrations"
)

// loadConfig reads path and builds the configured logger.
func loadConfig(path string) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(cfg.Logging, version)
	log.Info("configuration loaded", "path", path)
	return cfg, log, nil
}

// loadCLIConfig is loadConfig for one-shot commands: logs go to stderr so
// stdout carries only the command's output, and only warnings show unless
// --verbose is set.
func loadCLIConfig(path string) (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.Logging.Output = "stderr"
	if !verbose {
		cfg.Logging.Level = "warn"
	}
	return cfg, logging.New(cfg.Logging, version), nil
}

// openDatabase opens the SQLite store and applies the embedded migrations.
func openDatabase(ctx context.Context, cfg *config.Config, log *logging.Logger) (*database.DB, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", cfg.Database.Path)
	return db, nil
}

// buildSource returns the inventory source named by inventory.source. With
// cache_snapshots set, a non-SQLite source is mirrored into db and falls
// back to the last snapshot when it cannot be reached.
func buildSource(cfg *config.Config, db *database.DB, log *logging.Logger) (catalog.Source, error) {
	var src catalog.Source
	switch cfg.Inventory.Source {
	case config.SourceFile:
		src = catalog.NewFileSource(cfg.Inventory.File)
	case config.SourceSQLite:
		return catalog.NewSQLiteSource(db.DB), nil
	case config.SourceHomeAssistant:
		ha, err := homeassistant.NewInventorySource(cfg.HomeAssistant)
		if err != nil {
			return nil, fmt.Errorf("creating Home Assistant inventory source: %w", err)
		}
		ha.SetLogger(log.Component("homeassistant"))
		src = ha
	default:
		return nil, fmt.Errorf("unknown inventory source %q", cfg.Inventory.Source)
	}

	if !cfg.Inventory.CacheSnapshots {
		return src, nil
	}
	caching := catalog.NewCachingSource(src, catalog.NewSQLiteSource(db.DB))
	caching.SetLogger(log.Component("catalog"))
	return caching, nil
}

// newStore creates the catalog store and loads the first snapshot.
func newStore(ctx context.Context, src catalog.Source, log *logging.Logger) (*catalog.Store, error) {
	store := catalog.NewStore(src)
	store.SetLogger(log.Component("catalog"))
	if _, err := store.Reload(ctx); err != nil {
		return nil, fmt.Errorf("loading inventory: %w", err)
	}
	return store, nil
}

// buildDispatch returns the command transport named by dispatch.transport
// and the state reader that goes with it. The log transport has no reader.
// mqttClient is nil when MQTT is disabled.
func buildDispatch(cfg *config.Config, mqttClient *mqtt.Client, log *logging.Logger) (adjust.Dispatcher, adjust.StateReader, error) {
	switch cfg.Dispatch.Transport {
	case config.TransportMQTT:
		if mqttClient == nil {
			return nil, nil, fmt.Errorf("dispatch transport mqtt: MQTT is not connected")
		}
		d := transport.NewMQTTDispatcher(mqttClient)
		d.SetLogger(log.Component("transport"))
		states := transport.NewStateCache()
		states.SetLogger(log.Component("transport"))
		if err := states.Start(mqttClient); err != nil {
			return nil, nil, fmt.Errorf("following device state: %w", err)
		}
		return d, states, nil
	case config.TransportHomeAssistant:
		d := homeassistant.NewDispatcher(homeassistant.NewClient(cfg.HomeAssistant))
		return d, d, nil
	case config.TransportLog:
		return adjust.NewLogDispatcher(log.Component("dispatch")), nil, nil
	}
	return nil, nil, fmt.Errorf("unknown dispatch transport %q", cfg.Dispatch.Transport)
}

// newEngine creates the adjustment engine.
func newEngine(cfg *config.Config, store *catalog.Store, d adjust.Dispatcher, r adjust.StateReader, log *logging.Logger) *adjust.Engine {
	engine := adjust.NewEngine(store, d, r, adjust.Options{
		OnThreshold: cfg.Dialogue.OnThreshold,
		Timeout:     cfg.GetDispatchTimeout(),
	})
	engine.SetLogger(log.Component("adjust"))
	return engine
}

// newDialogue creates the dialogue service over store and engine.
func newDialogue(cfg *config.Config, store *catalog.Store, engine *adjust.Engine, log *logging.Logger) *dialogue.Service {
	svc := dialogue.NewService(store, dialogue.NewSessions(cfg.GetSessionTTL()), dialogue.NewSubmitter(engine), dialogue.ServiceOptions{
		Machine: dialogue.Options{
			RelativeStep:        cfg.Dialogue.RelativeStep,
			SuggestAlternatives: cfg.Dialogue.SuggestAlternatives,
		},
		AutoSubmit:     cfg.Dialogue.AutoSubmit,
		RefreshOnStart: cfg.Inventory.RefreshOnNewConversation,
	})
	svc.SetLogger(log.Component("dialogue"))
	return svc
}
