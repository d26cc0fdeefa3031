package transport

import (
	"time"

	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/mqtt"
)

// Publisher sends JSON messages. *mqtt.Client satisfies it.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Subscriber registers topic handlers. *mqtt.Client satisfies it.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	QoS() byte
}

// Logger is the logging interface used by this package.
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

// CommandSource marks commands issued by the dialogue service.
const CommandSource = "voice"

// CommandMessage is published to a bridge to execute one device command.
// Topic: graylogic/command/{domain}/{device_id}
type CommandMessage struct {
	// ID correlates the command with bridge acknowledgements.
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`

	// Command is "on" or "off" for state changes, "set" for attribute
	// changes, or the device's own action name.
	Command string `json:"command"`

	// Parameters holds the attribute value for "set", keyed by attribute,
	// plus "state" when the set also switches the device.
	Parameters map[string]any `json:"parameters,omitempty"`

	Source string `json:"source"`
}

// StateMessage is the retained state a bridge publishes for a device.
// Topic: graylogic/state/{domain}/{device_id}
type StateMessage struct {
	DeviceID   string         `json:"device_id"`
	Timestamp  time.Time      `json:"timestamp"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
