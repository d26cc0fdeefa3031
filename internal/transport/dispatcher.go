package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-dialogue/internal/adjust"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/mqtt"
)

// MQTTDispatcher publishes device commands on the bus. It implements
// adjust.Dispatcher.
type MQTTDispatcher struct {
	pub    Publisher
	now    func() time.Time
	newID  func() string
	logger Logger
}

var _ adjust.Dispatcher = (*MQTTDispatcher)(nil)

// NewMQTTDispatcher creates a dispatcher publishing through pub.
func NewMQTTDispatcher(pub Publisher) *MQTTDispatcher {
	return &MQTTDispatcher{
		pub:    pub,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *MQTTDispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Dispatch publishes cmd. The publish itself waits for the broker
// acknowledgement; ctx is only checked before sending.
func (d *MQTTDispatcher) Dispatch(ctx context.Context, cmd adjust.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := d.encode(cmd)
	if err != nil {
		return err
	}

	topic := mqtt.Topics{}.Command(cmd.Domain, cmd.DeviceID)
	if err := d.pub.PublishJSON(topic, msg, false); err != nil {
		return fmt.Errorf("publishing command for %s: %w", cmd.DeviceID, err)
	}

	d.logger.Debug("command published",
		"command_id", msg.ID,
		"device_id", cmd.DeviceID,
		"command", msg.Command,
		"topic", topic,
	)
	return nil
}

func (d *MQTTDispatcher) encode(cmd adjust.Command) (CommandMessage, error) {
	if cmd.DeviceID == "" || cmd.Domain == "" {
		return CommandMessage{}, fmt.Errorf("%w: device id and domain are required", ErrInvalidCommand)
	}

	msg := CommandMessage{
		ID:        d.newID(),
		Timestamp: d.now(),
		DeviceID:  cmd.DeviceID,
		Source:    CommandSource,
	}

	switch cmd.Kind {
	case adjust.KindSetState:
		if cmd.State != adjust.StateOn && cmd.State != adjust.StateOff {
			return CommandMessage{}, fmt.Errorf("%w: state %q", ErrInvalidCommand, cmd.State)
		}
		msg.Command = cmd.State
	case adjust.KindSetAttribute:
		if cmd.Attribute == "" || cmd.Value == nil {
			return CommandMessage{}, fmt.Errorf("%w: set_attribute needs an attribute and a value", ErrInvalidCommand)
		}
		msg.Command = "set"
		msg.Parameters = map[string]any{cmd.Attribute: *cmd.Value}
		if cmd.State != "" {
			msg.Parameters["state"] = cmd.State
		}
	case adjust.KindInvokeAction:
		if cmd.Action == "" {
			return CommandMessage{}, fmt.Errorf("%w: invoke_action needs an action", ErrInvalidCommand)
		}
		msg.Command = cmd.Action
	default:
		return CommandMessage{}, fmt.Errorf("%w: kind %q", ErrInvalidCommand, cmd.Kind)
	}
	return msg, nil
}
