package adjust

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-dialogue/internal/resolve"
)

// CommandKind is the shape of a device command.
type CommandKind string

// Command kinds.
const (
	KindSetAttribute CommandKind = "set_attribute"
	KindSetState     CommandKind = "set_state"
	KindInvokeAction CommandKind = "invoke_action"
)

// Binary device states.
const (
	StateOn  = "on"
	StateOff = "off"
)

// Command is one request to one device.
type Command struct {
	DeviceID string      `json:"device_id"`
	Domain   string      `json:"domain"`
	Kind     CommandKind `json:"kind"`
	// Attribute and Value are set for KindSetAttribute.
	Attribute string   `json:"attribute,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	// State is "on" or "off" for KindSetState. On KindSetAttribute it asks for
	// a transition alongside the new value and may be empty.
	State string `json:"state,omitempty"`
	// Action is the device-specific action name for KindInvokeAction.
	Action string `json:"action,omitempty"`
}

// Dispatcher delivers commands to devices.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Command) error
}

// DeviceState is the last known state of a device.
type DeviceState struct {
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Number returns attribute attr as a float64 when it is numeric.
func (s DeviceState) Number(attr string) (float64, bool, error) {
	v, present := s.Attributes[attr]
	if !present || v == nil {
		return 0, false, nil
	}
	switch n := v.(type) {
	case float64:
		return n, true, nil
	case float32:
		return float64(n), true, nil
	case int:
		return float64(n), true, nil
	case int64:
		return float64(n), true, nil
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		if err != nil {
			return 0, true, ErrNonNumericAttribute
		}
		return f, true, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, true, ErrNonNumericAttribute
		}
		return f, true, nil
	default:
		return 0, true, ErrNonNumericAttribute
	}
}

// StateReader reports current device state.
type StateReader interface {
	State(ctx context.Context, deviceID string) (DeviceState, error)
}

// Recorder observes every dispatched command and its outcome.
type Recorder interface {
	RecordCommand(cmd Command, err error)
}

// ParseAmount reads a spoken amount such as "50 percent" or "0.3".
//
// Tokens are split on whitespace. "percent" (or a trailing "%") scales the
// result by 0.01 and the last numeric token is the value. When a number is
// found and action is empty the implied action is set_absolute; otherwise
// action is returned unchanged. A nil amount means no number was present.
func ParseAmount(raw, action string) (*float64, string) {
	multiplier := 1.0
	var value *float64

	for _, tok := range strings.Fields(strings.ToLower(raw)) {
		if tok == "percent" || tok == "%" {
			multiplier = 0.01
			continue
		}
		if trimmed, ok := strings.CutSuffix(tok, "%"); ok {
			multiplier = 0.01
			tok = trimmed
		}
		if f, err := strconv.ParseFloat(tok, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			v := f
			value = &v
		}
	}

	if value == nil {
		return nil, action
	}
	amount := *value * multiplier
	if action == "" {
		action = resolve.ActionSetAbsolute
	}
	return &amount, action
}
