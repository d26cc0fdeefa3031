// Package telemetry turns device commands and dialogue turns into
// InfluxDB points.
package telemetry

import (
	"github.com/nerrad567/gray-logic-dialogue/internal/adjust"
	"github.com/nerrad567/gray-logic-dialogue/internal/dialogue"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/influxdb"
)

// Writer is the point sink. *influxdb.Client satisfies it.
type Writer interface {
	WriteCommand(p influxdb.CommandPoint)
	WriteTurn(p influxdb.TurnPoint)
}

// Recorder implements adjust.Recorder and dialogue.Observer.
type Recorder struct {
	w Writer
}

var (
	_ adjust.Recorder   = (*Recorder)(nil)
	_ dialogue.Observer = (*Recorder)(nil)
)

// NewRecorder creates a recorder writing to w.
func NewRecorder(w Writer) *Recorder {
	return &Recorder{w: w}
}

// RecordCommand writes one dispatched command and its outcome.
func (r *Recorder) RecordCommand(cmd adjust.Command, err error) {
	r.w.WriteCommand(influxdb.CommandPoint{
		DeviceID:  cmd.DeviceID,
		Domain:    cmd.Domain,
		Kind:      string(cmd.Kind),
		Attribute: cmd.Attribute,
		State:     cmd.State,
		Action:    cmd.Action,
		Value:     cmd.Value,
		Err:       err,
	})
}

// ObserveTurn writes the outcome of one dialogue turn.
func (r *Recorder) ObserveTurn(conv dialogue.Conversation, out dialogue.Outcome) {
	devices := len(out.Slots.Device)
	if out.Match != nil {
		devices = out.Match.Devices.Len()
	}
	r.w.WriteTurn(influxdb.TurnPoint{
		Form:      conv.Form,
		Status:    string(out.Status),
		Requested: out.Requested,
		Devices:   devices,
		Satellite: conv.Slots.Satellite,
	})
}
