package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"

	"github.com/nerrad567/gray-logic-dialogue/internal/adjust"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/mqtt"
)

// StateCache keeps the last StateMessage of every device seen on the bus.
// It implements adjust.StateReader.
//
// Thread Safety:
//   - Safe for concurrent use; MQTT handlers write while the engine reads.
type StateCache struct {
	states map[string]adjust.DeviceState
	mu     sync.RWMutex
	logger Logger
}

var _ adjust.StateReader = (*StateCache)(nil)

// NewStateCache creates an empty cache.
func NewStateCache() *StateCache {
	return &StateCache{
		states: make(map[string]adjust.DeviceState),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the cache.
func (c *StateCache) SetLogger(logger Logger) {
	c.logger = logger
}

// Start subscribes to every device state topic. Retained messages arrive
// immediately, so the cache fills as soon as the subscription is acknowledged.
func (c *StateCache) Start(sub Subscriber) error {
	topic := mqtt.Topics{}.AllStates()
	if err := sub.Subscribe(topic, sub.QoS(), c.HandleMessage); err != nil {
		return fmt.Errorf("subscribe to device state: %w", err)
	}
	c.logger.Info("subscribed to device state", "topic", topic)
	return nil
}

// HandleMessage applies one state message. An empty payload clears the
// retained state of the device.
func (c *StateCache) HandleMessage(topic string, payload []byte) error {
	category, _, deviceID, ok := mqtt.ParseDeviceTopic(topic)
	if !ok || category != "state" {
		return fmt.Errorf("unexpected state topic %q", topic)
	}

	if len(payload) == 0 {
		c.mu.Lock()
		delete(c.states, deviceID)
		c.mu.Unlock()
		return nil
	}

	var msg StateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding state for %s: %w", deviceID, err)
	}
	if msg.DeviceID != "" && msg.DeviceID != deviceID {
		return fmt.Errorf("state for %s published on topic of %s", msg.DeviceID, deviceID)
	}

	c.mu.Lock()
	c.states[deviceID] = adjust.DeviceState{State: msg.State, Attributes: msg.Attributes}
	c.mu.Unlock()
	return nil
}

// State returns the last known state of deviceID.
func (c *StateCache) State(_ context.Context, deviceID string) (adjust.DeviceState, error) {
	c.mu.RLock()
	st, ok := c.states[deviceID]
	c.mu.RUnlock()
	if !ok {
		return adjust.DeviceState{}, fmt.Errorf("%w: %s", ErrStateUnknown, deviceID)
	}
	st.Attributes = maps.Clone(st.Attributes)
	return st, nil
}

// Len returns the number of devices with known state.
func (c *StateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.states)
}
