package telemetry

import (
	"errors"
	"testing"

	"github.com/nerrad567/gray-logic-dialogue/internal/adjust"
	"github.com/nerrad567/gray-logic-dialogue/internal/dialogue"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-dialogue/internal/resolve"
)

type memoryWriter struct {
	commands []influxdb.CommandPoint
	turns    []influxdb.TurnPoint
}

func (w *memoryWriter) WriteCommand(p influxdb.CommandPoint) { w.commands = append(w.commands, p) }
func (w *memoryWriter) WriteTurn(p influxdb.TurnPoint)       { w.turns = append(w.turns, p) }

func TestRecordCommand(t *testing.T) {
	w := &memoryWriter{}
	r := NewRecorder(w)

	value := 0.8
	r.RecordCommand(adjust.Command{
		DeviceID:  "light.lamp1",
		Domain:    "light",
		Kind:      adjust.KindSetAttribute,
		Attribute: "brightness",
		Value:     &value,
		State:     adjust.StateOn,
	}, nil)
	failure := errors.New("timeout")
	r.RecordCommand(adjust.Command{DeviceID: "cover.blind", Domain: "cover", Kind: adjust.KindInvokeAction, Action: "stop_cover"}, failure)

	if len(w.commands) != 2 {
		t.Fatalf("got %d commands, want 2", len(w.commands))
	}
	first := w.commands[0]
	if first.Kind != "set_attribute" || first.Attribute != "brightness" || first.State != "on" || *first.Value != 0.8 || first.Err != nil {
		t.Errorf("first = %+v", first)
	}
	second := w.commands[1]
	if second.Action != "stop_cover" || !errors.Is(second.Err, failure) {
		t.Errorf("second = %+v", second)
	}
}

func TestObserveTurn(t *testing.T) {
	w := &memoryWriter{}
	r := NewRecorder(w)
	conv := dialogue.Conversation{ID: "c1", Form: dialogue.FormAdjust, Slots: dialogue.Slots{Satellite: "kitchen"}}

	match := &resolve.Result{Devices: resolve.NewSet("light.a", "light.b", "light.c")}
	r.ObserveTurn(conv, dialogue.Outcome{Status: dialogue.StatusConfirm, Match: match})
	r.ObserveTurn(conv, dialogue.Outcome{
		Status:    dialogue.StatusRequest,
		Requested: "amount",
		Slots:     dialogue.Slots{Device: []string{"light.a"}},
	})

	want := []influxdb.TurnPoint{
		{Form: "adjust", Status: "confirm", Devices: 3, Satellite: "kitchen"},
		{Form: "adjust", Status: "request", Requested: "amount", Devices: 1, Satellite: "kitchen"},
	}
	if len(w.turns) != len(want) {
		t.Fatalf("got %d turns, want %d", len(w.turns), len(want))
	}
	for i := range want {
		if w.turns[i] != want[i] {
			t.Errorf("turn %d = %+v, want %+v", i, w.turns[i], want[i])
		}
	}
}
