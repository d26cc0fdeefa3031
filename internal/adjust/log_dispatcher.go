package adjust

import "context"

// LogDispatcher writes commands to a logger instead of sending them. It is
// the "log" dispatch transport, useful for dry runs.
type LogDispatcher struct {
	logger Logger
}

// NewLogDispatcher creates a dispatcher that only logs.
func NewLogDispatcher(logger Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch logs cmd.
func (d *LogDispatcher) Dispatch(_ context.Context, cmd Command) error {
	args := []any{"device_id", cmd.DeviceID, "domain", cmd.Domain, "kind", cmd.Kind}
	if cmd.Attribute != "" {
		args = append(args, "attribute", cmd.Attribute)
	}
	if cmd.Value != nil {
		args = append(args, "value", *cmd.Value)
	}
	if cmd.State != "" {
		args = append(args, "state", cmd.State)
	}
	if cmd.Action != "" {
		args = append(args, "action", cmd.Action)
	}
	d.logger.Info("device command (dry run)", args...)
	return nil
}
