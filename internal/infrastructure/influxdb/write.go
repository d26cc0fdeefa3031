package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the dialogue service.
const (
	MeasurementCommand = "dialogue_command"
	MeasurementTurn    = "dialogue_turn"
)

// CommandPoint describes one dispatched device command.
type CommandPoint struct {
	DeviceID  string
	Domain    string
	Kind      string
	Attribute string
	State     string
	Action    string
	Value     *float64
	Err       error
}

// TurnPoint describes one dialogue turn.
type TurnPoint struct {
	Form      string
	Status    string
	Requested string
	Devices   int
	Satellite string
}

// WriteCommand records a dispatched command. Failed commands carry ok=false
// and the error text.
func (c *Client) WriteCommand(p CommandPoint) {
	c.WritePoint(MeasurementCommand, commandTags(p), commandFields(p))
}

// WriteTurn records the outcome of a dialogue turn.
func (c *Client) WriteTurn(p TurnPoint) {
	c.WritePoint(MeasurementTurn, turnTags(p), map[string]interface{}{
		"devices": p.Devices,
	})
}

// WritePoint writes a point stamped with the current time.
// Non-blocking; points are batched.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a point with an explicit timestamp.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

func commandTags(p CommandPoint) map[string]string {
	tags := map[string]string{
		"device_id": p.DeviceID,
		"domain":    p.Domain,
		"kind":      p.Kind,
	}
	setTag(tags, "attribute", p.Attribute)
	setTag(tags, "state", p.State)
	setTag(tags, "action", p.Action)
	return tags
}

func commandFields(p CommandPoint) map[string]interface{} {
	fields := map[string]interface{}{"ok": p.Err == nil}
	if p.Value != nil {
		fields["value"] = *p.Value
	}
	if p.Err != nil {
		fields["error"] = p.Err.Error()
	}
	return fields
}

func turnTags(p TurnPoint) map[string]string {
	tags := map[string]string{
		"form":   p.Form,
		"status": p.Status,
	}
	setTag(tags, "requested", p.Requested)
	setTag(tags, "satellite", p.Satellite)
	return tags
}

// setTag skips empty values; InfluxDB rejects empty tag values.
func setTag(tags map[string]string, key, value string) {
	if value != "" {
		tags[key] = value
	}
}
