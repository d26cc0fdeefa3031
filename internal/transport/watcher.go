package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/mqtt"
)

// defaultSettle is how long the watcher waits for a burst of inventory
// notifications to end before reloading.
const defaultSettle = 2 * time.Second

// Reloader rebuilds the catalog. *catalog.Store satisfies it.
type Reloader interface {
	Reload(ctx context.Context) (*catalog.Catalog, error)
}

// InventoryWatcher reloads the catalog when the inventory changes.
type InventoryWatcher struct {
	reloader Reloader
	settle   time.Duration
	signal   chan struct{}
	logger   Logger
}

// NewInventoryWatcher creates a watcher. settle <= 0 uses the default.
func NewInventoryWatcher(reloader Reloader, settle time.Duration) *InventoryWatcher {
	if settle <= 0 {
		settle = defaultSettle
	}
	return &InventoryWatcher{
		reloader: reloader,
		settle:   settle,
		signal:   make(chan struct{}, 1),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the watcher.
func (w *InventoryWatcher) SetLogger(logger Logger) {
	w.logger = logger
}

// Subscribe listens for inventory-changed notifications.
func (w *InventoryWatcher) Subscribe(sub Subscriber) error {
	topic := mqtt.Topics{}.InventoryChanged()
	if err := sub.Subscribe(topic, sub.QoS(), w.HandleMessage); err != nil {
		return fmt.Errorf("subscribe to inventory changes: %w", err)
	}
	return nil
}

// HandleMessage queues a reload. It never blocks the MQTT goroutine.
func (w *InventoryWatcher) HandleMessage(string, []byte) error {
	w.Notify()
	return nil
}

// Notify queues a reload; repeated calls before the reload runs coalesce.
func (w *InventoryWatcher) Notify() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Run reloads the catalog after each settled burst of notifications until
// ctx is cancelled.
func (w *InventoryWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.signal:
		}

		timer := time.NewTimer(w.settle)
	settle:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-w.signal:
				timer.Reset(w.settle)
			case <-timer.C:
				break settle
			}
		}

		cat, err := w.reloader.Reload(ctx)
		if err != nil {
			w.logger.Warn("catalog reload after inventory change failed", "error", err)
			continue
		}
		stats := cat.Stats()
		w.logger.Info("catalog reloaded after inventory change", "devices", stats.Devices, "areas", stats.Areas)
	}
}
