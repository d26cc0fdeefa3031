package homeassistant

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/config"
)

// InterestingAttributes are the state attributes carried into the catalog.
// Everything else (pictures, source lists, supported features) is noise to
// the matcher.
var InterestingAttributes = map[string]bool{
	"temperature":         true,
	"current_temperature": true,
	"temperature_unit":    true,
	"brightness":          true,
	"humidity":            true,
	"unit_of_measurement": true,
	"device_class":        true,
	"current_position":    true,
	"percentage":          true,
	"volume_level":        true,
	"media_title":         true,
	"media_artist":        true,
	"media_album_name":    true,
}

// Logger is the logging interface used by the inventory source.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type areaEntry struct {
	AreaID  string   `json:"area_id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
	FloorID string   `json:"floor_id"`
}

type floorEntry struct {
	FloorID string   `json:"floor_id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases"`
}

type deviceEntry struct {
	ID     string `json:"id"`
	AreaID string `json:"area_id"`
}

type entityEntry struct {
	EntityID   string        `json:"entity_id"`
	DeviceID   string        `json:"device_id"`
	AreaID     string        `json:"area_id"`
	Aliases    []string      `json:"aliases"`
	HiddenBy   string        `json:"hidden_by"`
	DisabledBy string        `json:"disabled_by"`
	Options    entityOptions `json:"options"`
}

type entityOptions struct {
	Conversation struct {
		ShouldExpose *bool `json:"should_expose"`
	} `json:"conversation"`
}

// exposed reports whether conversation agents may control the entity.
func (e entityEntry) exposed() bool {
	if e.HiddenBy != "" || e.DisabledBy != "" {
		return false
	}
	if p := e.Options.Conversation.ShouldExpose; p != nil {
		return *p
	}
	return true
}

type deviceAction struct {
	Type     string `json:"type"`
	Domain   string `json:"domain"`
	DeviceID string `json:"device_id"`
}

// registry is everything read from Home Assistant for one load.
type registry struct {
	areas    []areaEntry
	floors   []floorEntry
	devices  []deviceEntry
	entities []entityEntry
	states   []EntityState
	// actions are device-automation action types keyed by device id.
	actions map[string][]string
}

// InventorySource loads the catalog from Home Assistant's WebSocket API.
// It implements catalog.Source.
type InventorySource struct {
	url     string
	token   string
	timeout time.Duration
	dialer  *websocket.Dialer
	logger  Logger
}

var _ catalog.Source = (*InventorySource)(nil)

// NewInventorySource creates a source for the instance in cfg.
func NewInventorySource(cfg config.HomeAssistantConfig) (*InventorySource, error) {
	wsURL, err := websocketURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &InventorySource{
		url:     wsURL,
		token:   cfg.Token,
		timeout: timeout,
		dialer:  websocket.DefaultDialer,
		logger:  noopLogger{},
	}, nil
}

// SetLogger sets the logger for the source.
func (s *InventorySource) SetLogger(logger Logger) {
	s.logger = logger
}

// Load reads the registries and states and converts them to an inventory.
func (s *InventorySource) Load(ctx context.Context) (catalog.Inventory, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return catalog.Inventory{}, fmt.Errorf("%w: dialing %s: %w", catalog.ErrSourceUnavailable, s.url, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)  //nolint:errcheck // best effort
		conn.SetWriteDeadline(deadline) //nolint:errcheck // best effort
	}

	sess := &wsSession{conn: conn}
	if err := sess.authenticate(s.token); err != nil {
		return catalog.Inventory{}, fmt.Errorf("%w: %w", catalog.ErrSourceUnavailable, err)
	}

	reg, err := s.fetch(sess)
	if err != nil {
		return catalog.Inventory{}, fmt.Errorf("%w: %w", catalog.ErrSourceUnavailable, err)
	}

	inv := buildInventory(reg)
	s.logger.Info("home assistant inventory loaded",
		"devices", len(inv.Devices),
		"areas", len(inv.Areas),
		"floors", len(inv.Floors),
	)
	return inv, nil
}

func (s *InventorySource) fetch(sess *wsSession) (registry, error) {
	reg := registry{actions: make(map[string][]string)}

	steps := []struct {
		cmd string
		out any
	}{
		{"config/area_registry/list", &reg.areas},
		{"config/floor_registry/list", &reg.floors},
		{"config/device_registry/list", &reg.devices},
		{"config/entity_registry/list", &reg.entities},
		{"get_states", &reg.states},
	}
	for _, step := range steps {
		if err := sess.call(step.cmd, nil, step.out); err != nil {
			return registry{}, err
		}
	}

	// Actions are only needed for devices behind an exposed entity.
	wanted := make(map[string]bool)
	for _, e := range reg.entities {
		if e.DeviceID != "" && e.exposed() {
			wanted[e.DeviceID] = true
		}
	}
	for _, id := range slices.Sorted(maps.Keys(wanted)) {
		var actions []deviceAction
		if err := sess.call("device_automation/action/list", map[string]any{"device_id": id}, &actions); err != nil {
			// A device without automation support is not fatal.
			s.logger.Debug("device actions unavailable", "device_id", id, "error", err)
			continue
		}
		for _, a := range actions {
			if a.Type != "" {
				reg.actions[id] = append(reg.actions[id], a.Type)
			}
		}
	}
	return reg, nil
}

// buildInventory converts Home Assistant registries into catalog records.
// Only states with an exposed entity registry entry become devices.
func buildInventory(reg registry) catalog.Inventory {
	entities := make(map[string]entityEntry, len(reg.entities))
	for _, e := range reg.entities {
		entities[e.EntityID] = e
	}
	deviceAreas := make(map[string]string, len(reg.devices))
	for _, d := range reg.devices {
		deviceAreas[d.ID] = d.AreaID
	}

	states := slices.Clone(reg.states)
	slices.SortStableFunc(states, func(a, b EntityState) int {
		return cmp.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
	})

	var inv catalog.Inventory
	for _, st := range states {
		entry, ok := entities[st.EntityID]
		if !ok || !entry.exposed() {
			continue
		}

		rec := catalog.DeviceRecord{
			ID:     st.EntityID,
			Names:  append([]string{lowered(st.Name())}, loweredAll(entry.Aliases)...),
			Domain: st.Domain(),
		}
		if entry.AreaID != "" {
			rec.AreaIDs = append(rec.AreaIDs, entry.AreaID)
		}
		if area := deviceAreas[entry.DeviceID]; entry.DeviceID != "" && area != "" && area != entry.AreaID {
			rec.AreaIDs = append(rec.AreaIDs, area)
		}
		for attr := range st.Attributes {
			if InterestingAttributes[attr] {
				rec.Attributes = append(rec.Attributes, attr)
			}
		}
		slices.Sort(rec.Attributes)
		if entry.DeviceID != "" {
			rec.Actions = slices.Compact(slices.Sorted(slices.Values(reg.actions[entry.DeviceID])))
		}
		inv.Devices = append(inv.Devices, rec)
	}

	for _, a := range reg.areas {
		inv.Areas = append(inv.Areas, catalog.AreaRecord{
			ID:      a.AreaID,
			Names:   append([]string{lowered(a.Name)}, loweredAll(a.Aliases)...),
			FloorID: a.FloorID,
		})
	}
	for _, f := range reg.floors {
		inv.Floors = append(inv.Floors, catalog.FloorRecord{
			ID:    f.FloorID,
			Names: append([]string{lowered(f.Name)}, loweredAll(f.Aliases)...),
		})
	}
	return inv
}

func lowered(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func loweredAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, lowered(v))
	}
	return out
}
