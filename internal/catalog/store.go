package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Logger is the logging interface used by the store.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Source delivers a complete inventory snapshot.
type Source interface {
	Load(ctx context.Context) (Inventory, error)
}

// Store owns the published Catalog and rebuilds it from a Source.
//
// Readers call Current and get a consistent snapshot without locking; a
// reload builds a whole new Catalog and swaps the pointer only on success.
type Store struct {
	source  Source
	current atomic.Pointer[Catalog]

	// reloadMu serialises reloads so two rebuilds never race to publish.
	reloadMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []func(*Catalog)

	logger Logger
}

// NewStore creates a store publishing an empty catalog until the first Reload.
func NewStore(source Source) *Store {
	s := &Store{
		source: source,
		logger: noopLogger{},
	}
	s.current.Store(Empty())
	return s
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// OnPublish registers fn to be called with every newly published snapshot.
func (s *Store) OnPublish(fn func(*Catalog)) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

// Current returns the published snapshot. It is never nil.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// Reload loads the source, builds a new catalog and publishes it.
// On any error the previous snapshot stays in place.
func (s *Store) Reload(ctx context.Context) (*Catalog, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	inv, err := s.source.Load(ctx)
	if err != nil {
		s.logger.Error("inventory load failed", "error", err)
		return nil, fmt.Errorf("loading inventory: %w", err)
	}

	c, err := Build(inv)
	if err != nil {
		s.logger.Error("inventory rejected", "error", err)
		return nil, err
	}

	for _, a := range c.Anomalies() {
		s.logger.Warn("inventory anomaly", "kind", a.Kind, "tier", a.Tier, "id", a.ID, "ref", a.Ref)
	}
	for _, col := range c.Collisions() {
		s.logger.Warn("name collision",
			"kind", col.Kind,
			"name", col.Name,
			"kept_id", col.KeptID,
			"dropped_id", col.DroppedID,
		)
	}

	s.publish(c)

	stats := c.Stats()
	s.logger.Info("catalog published",
		"devices", stats.Devices,
		"areas", stats.Areas,
		"floors", stats.Floors,
		"duration", time.Since(start),
	)
	return c, nil
}

// Publish installs an already built catalog.
func (s *Store) Publish(c *Catalog) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	s.publish(c)
}

func (s *Store) publish(c *Catalog) {
	s.current.Store(c)

	s.listenersMu.RLock()
	listeners := append([]func(*Catalog){}, s.listeners...)
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(c)
	}
}

// Run reloads every interval until ctx is cancelled. Failures are logged and
// the loop carries on with the previous snapshot.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reload(ctx); err != nil {
				s.logger.Warn("periodic catalog refresh failed, keeping previous snapshot", "error", err)
			}
		}
	}
}
