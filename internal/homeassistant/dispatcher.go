package homeassistant

import (
	"context"
	"fmt"
	"maps"
	"math"

	"github.com/nerrad567/gray-logic-dialogue/internal/adjust"
)

// Home Assistant services shared by every switchable domain.
const (
	serviceTurnOn  = "turn_on"
	serviceTurnOff = "turn_off"
)

// attributeService maps a catalog attribute onto the service that sets it.
type attributeService struct {
	service string
	field   string
	// scale converts the fraction used by the engine into Home Assistant's
	// unit; 1 means the attribute is passed through.
	scale float64
	// integer rounds the scaled value.
	integer bool
}

var attributeServices = map[string]attributeService{
	"brightness":       {service: serviceTurnOn, field: "brightness", scale: 255, integer: true},
	"current_position": {service: "set_cover_position", field: "position", scale: 100, integer: true},
	"percentage":       {service: "set_percentage", field: "percentage", scale: 100, integer: true},
	"humidity":         {service: "set_humidity", field: "humidity", scale: 100, integer: true},
	"volume_level":     {service: "volume_set", field: "volume_level", scale: 1},
	"temperature":      {service: "set_temperature", field: "temperature", scale: 1},
}

func (a attributeService) encode(v float64) any {
	v *= a.scale
	if a.integer {
		return int(math.Round(v))
	}
	return v
}

// Dispatcher sends device commands as Home Assistant service calls and
// reads device state from the REST API. It implements adjust.Dispatcher
// and adjust.StateReader.
type Dispatcher struct {
	client *Client
}

var (
	_ adjust.Dispatcher  = (*Dispatcher)(nil)
	_ adjust.StateReader = (*Dispatcher)(nil)
)

// NewDispatcher creates a dispatcher using client.
func NewDispatcher(client *Client) *Dispatcher {
	return &Dispatcher{client: client}
}

// Dispatch translates cmd into one or two service calls.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd adjust.Command) error {
	target := map[string]any{"entity_id": cmd.DeviceID}

	switch cmd.Kind {
	case adjust.KindSetState:
		return d.client.CallService(ctx, cmd.Domain, switchService(cmd.State), target)

	case adjust.KindInvokeAction:
		return d.client.CallService(ctx, cmd.Domain, cmd.Action, target)

	case adjust.KindSetAttribute:
		if cmd.State == adjust.StateOff {
			return d.client.CallService(ctx, cmd.Domain, serviceTurnOff, target)
		}
		svc, ok := attributeServices[cmd.Attribute]
		if !ok || cmd.Value == nil {
			return fmt.Errorf("%w: %s", ErrUnsupportedAttribute, cmd.Attribute)
		}
		if cmd.State == adjust.StateOn && svc.service != serviceTurnOn {
			if err := d.client.CallService(ctx, cmd.Domain, serviceTurnOn, target); err != nil {
				return err
			}
		}
		data := maps.Clone(target)
		data[svc.field] = svc.encode(*cmd.Value)
		return d.client.CallService(ctx, cmd.Domain, svc.service, data)
	}

	return fmt.Errorf("unknown command kind %q", cmd.Kind)
}

func switchService(state string) string {
	if state == adjust.StateOff {
		return serviceTurnOff
	}
	return serviceTurnOn
}

// State reads deviceID and scales mapped attributes back to fractions.
func (d *Dispatcher) State(ctx context.Context, deviceID string) (adjust.DeviceState, error) {
	st, err := d.client.GetState(ctx, deviceID)
	if err != nil {
		return adjust.DeviceState{}, err
	}

	attrs := maps.Clone(st.Attributes)
	for name, svc := range attributeServices {
		if svc.scale == 1 {
			continue
		}
		if v, ok := attrs[name].(float64); ok {
			attrs[name] = v / svc.scale
		}
	}
	return adjust.DeviceState{State: st.State, Attributes: attrs}, nil
}
