package adjust_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-dialogue/internal/adjust"
	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/catalog/catalogtest"
)

// recordingDispatcher keeps every command and fails the ids in failFor.
type recordingDispatcher struct {
	mu       sync.Mutex
	commands []adjust.Command
	failFor  map[string]error
}

func (d *recordingDispatcher) Dispatch(_ context.Context, cmd adjust.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.failFor[cmd.DeviceID]; err != nil {
		return err
	}
	d.commands = append(d.commands, cmd)
	return nil
}

func (d *recordingDispatcher) byDevice(id string) (adjust.Command, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, c := range d.commands {
		if c.DeviceID == id {
			return c, true
		}
	}
	return adjust.Command{}, false
}

type mapReader map[string]adjust.DeviceState

func (m mapReader) State(_ context.Context, id string) (adjust.DeviceState, error) {
	st, ok := m[id]
	if !ok {
		return adjust.DeviceState{}, adjust.ErrStateUnavailable
	}
	return st, nil
}

type fixedCatalog struct{ c *catalog.Catalog }

func (f fixedCatalog) Current() *catalog.Catalog { return f.c }

type countingRecorder struct {
	ok, failed int
}

func (r *countingRecorder) RecordCommand(_ adjust.Command, err error) {
	if err != nil {
		r.failed++
		return
	}
	r.ok++
}

func newEngine(t *testing.T, reader adjust.StateReader) (*adjust.Engine, *recordingDispatcher) {
	t.Helper()
	d := &recordingDispatcher{}
	e := adjust.NewEngine(fixedCatalog{catalogtest.Catalog(t)}, d, reader, adjust.Options{})
	return e, d
}

func TestApplyRelative_AddsToCurrentValue(t *testing.T) {
	reader := mapReader{
		catalogtest.Lamp: {State: adjust.StateOn, Attributes: map[string]any{"brightness": 0.6}},
	}
	e, d := newEngine(t, reader)

	report, err := e.ApplyRelative(context.Background(), []string{catalogtest.Lamp}, "brightness", 0.3)
	if err != nil {
		t.Fatalf("ApplyRelative() error = %v", err)
	}
	if report.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", report.Count())
	}

	cmd, _ := d.byDevice(catalogtest.Lamp)
	if cmd.Kind != adjust.KindSetAttribute || cmd.Attribute != "brightness" {
		t.Fatalf("command = %+v, want set_attribute brightness", cmd)
	}
	if cmd.Value == nil || *cmd.Value < 0.8999 || *cmd.Value > 0.9001 {
		t.Errorf("Value = %v, want 0.9", cmd.Value)
	}
	if cmd.State != "" {
		t.Errorf("State = %q, want no transition for a device already on", cmd.State)
	}
}

func TestApplyRelative_SkipsPerDevice(t *testing.T) {
	reader := mapReader{
		catalogtest.Lamp:    {State: adjust.StateOn, Attributes: map[string]any{"brightness": "bright"}},
		catalogtest.Ceiling: {State: adjust.StateOn, Attributes: map[string]any{"brightness": 0.2}},
		catalogtest.Landing: {State: adjust.StateOn, Attributes: map[string]any{}},
	}
	e, d := newEngine(t, reader)

	ids := []string{catalogtest.Lamp, catalogtest.Ceiling, catalogtest.Landing, catalogtest.Kettle}
	report, err := e.ApplyRelative(context.Background(), ids, "brightness", 0.1)
	if err != nil {
		t.Fatalf("ApplyRelative() error = %v, skips must not fail the batch", err)
	}

	if !slices.Equal(report.Applied, []string{catalogtest.Ceiling}) {
		t.Errorf("Applied = %v, want only the ceiling light", report.Applied)
	}
	if !errors.Is(report.Skipped[catalogtest.Lamp], adjust.ErrNonNumericAttribute) {
		t.Errorf("lamp skip = %v, want ErrNonNumericAttribute", report.Skipped[catalogtest.Lamp])
	}
	if !errors.Is(report.Skipped[catalogtest.Landing], adjust.ErrAttributeMissing) {
		t.Errorf("landing skip = %v, want ErrAttributeMissing", report.Skipped[catalogtest.Landing])
	}
	if !errors.Is(report.Skipped[catalogtest.Kettle], adjust.ErrAttributeMissing) {
		t.Errorf("kettle skip = %v, want ErrAttributeMissing", report.Skipped[catalogtest.Kettle])
	}
	if len(d.commands) != 1 {
		t.Errorf("dispatched %d commands, want 1", len(d.commands))
	}
}

func TestApplyAbsolute(t *testing.T) {
	tests := []struct {
		name      string
		device    string
		parameter string
		amount    float64
		current   adjust.DeviceState
		want      adjust.Command
	}{
		{
			name:      "attribute set turns an off device on",
			device:    catalogtest.Lamp,
			parameter: "brightness",
			amount:    0.5,
			current:   adjust.DeviceState{State: adjust.StateOff},
			want:      adjust.Command{Kind: adjust.KindSetAttribute, Attribute: "brightness", State: adjust.StateOn},
		},
		{
			name:      "near zero turns an on device off",
			device:    catalogtest.Lamp,
			parameter: "brightness",
			amount:    0.005,
			current:   adjust.DeviceState{State: adjust.StateOn},
			want:      adjust.Command{Kind: adjust.KindSetAttribute, Attribute: "brightness", State: adjust.StateOff},
		},
		{
			name:      "missing attribute above threshold switches on",
			device:    catalogtest.Kettle,
			parameter: "brightness",
			amount:    0.5,
			want:      adjust.Command{Kind: adjust.KindSetState, State: adjust.StateOn},
		},
		{
			name:      "missing attribute below threshold switches off",
			device:    catalogtest.Kettle,
			parameter: "brightness",
			amount:    0.1,
			want:      adjust.Command{Kind: adjust.KindSetState, State: adjust.StateOff},
		},
		{
			name:   "no parameter at threshold switches on",
			device: catalogtest.Kettle,
			amount: 0.2,
			want:   adjust.Command{Kind: adjust.KindSetState, State: adjust.StateOn},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, d := newEngine(t, mapReader{tt.device: tt.current})

			if _, err := e.ApplyAbsolute(context.Background(), []string{tt.device}, tt.parameter, tt.amount); err != nil {
				t.Fatalf("ApplyAbsolute() error = %v", err)
			}
			got, ok := d.byDevice(tt.device)
			if !ok {
				t.Fatal("no command dispatched")
			}
			if got.Kind != tt.want.Kind || got.Attribute != tt.want.Attribute || got.State != tt.want.State {
				t.Errorf("command = %+v, want %+v", got, tt.want)
			}
			if got.Kind == adjust.KindSetAttribute && (got.Value == nil || *got.Value != tt.amount) {
				t.Errorf("Value = %v, want %v", got.Value, tt.amount)
			}
		})
	}
}

func TestApplyAbsolute_ThresholdIsMonotonic(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{amount: -5, want: adjust.StateOff},
		{amount: 0, want: adjust.StateOff},
		{amount: 0.19, want: adjust.StateOff},
		{amount: 0.2, want: adjust.StateOn},
		{amount: 0.5, want: adjust.StateOn},
		{amount: 1, want: adjust.StateOn},
		{amount: 1.5, want: adjust.StateOn},
		{amount: 15, want: adjust.StateOn},
		{amount: 25, want: adjust.StateOn},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.amount), func(t *testing.T) {
			e, d := newEngine(t, nil)

			if _, err := e.ApplyAbsolute(context.Background(), []string{catalogtest.Kettle}, "", tt.amount); err != nil {
				t.Fatalf("ApplyAbsolute() error = %v", err)
			}
			got, ok := d.byDevice(catalogtest.Kettle)
			if !ok {
				t.Fatal("no command dispatched")
			}
			if got.Kind != adjust.KindSetState || got.State != tt.want {
				t.Errorf("command = %+v, want set_state %s", got, tt.want)
			}
		})
	}
}

func TestApplyAction(t *testing.T) {
	e, d := newEngine(t, nil)
	rec := &countingRecorder{}
	e.SetRecorder(rec)

	ids := []string{catalogtest.Blind, catalogtest.Lamp, "light.ghost"}
	report, err := e.ApplyAction(context.Background(), "stop", ids)
	if err != nil {
		t.Fatalf("ApplyAction() error = %v, want nil while one device applied", err)
	}

	cmd, _ := d.byDevice(catalogtest.Blind)
	if cmd.Kind != adjust.KindInvokeAction || cmd.Action != "stop_cover" || cmd.Domain != "cover" {
		t.Errorf("blind command = %+v, want invoke stop_cover", cmd)
	}
	if !errors.Is(report.Failed[catalogtest.Lamp], adjust.ErrActionNotSupported) {
		t.Errorf("lamp failure = %v, want ErrActionNotSupported", report.Failed[catalogtest.Lamp])
	}
	if !errors.Is(report.Failed["light.ghost"], adjust.ErrDeviceNotFound) {
		t.Errorf("ghost failure = %v, want ErrDeviceNotFound", report.Failed["light.ghost"])
	}
	if rec.ok != 1 {
		t.Errorf("recorded %d successful commands, want 1", rec.ok)
	}
}

func TestApplyAction_AllFailedReturnsJoinedError(t *testing.T) {
	d := &recordingDispatcher{failFor: map[string]error{
		catalogtest.Lamp: errors.New("broker down"),
	}}
	e := adjust.NewEngine(fixedCatalog{catalogtest.Catalog(t)}, d, nil, adjust.Options{})

	report, err := e.ApplyAction(context.Background(), "turn_on", []string{catalogtest.Lamp, "light.ghost"})
	if err == nil {
		t.Fatal("ApplyAction() error = nil, want joined failures")
	}
	if !errors.Is(err, adjust.ErrDeviceNotFound) {
		t.Errorf("error %v does not wrap ErrDeviceNotFound", err)
	}
	if report.Count() != 0 || len(report.Failed) != 2 {
		t.Errorf("report = %+v, want 0 applied and 2 failed", report)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw        string
		action     string
		want       float64
		wantNil    bool
		wantAction string
	}{
		{raw: "50 percent", want: 0.5, wantAction: "set_absolute"},
		{raw: "30%", want: 0.3, wantAction: "set_absolute"},
		{raw: "0.3", action: "set_relative", want: 0.3, wantAction: "set_relative"},
		{raw: "to 21", want: 21, wantAction: "set_absolute"},
		{raw: "a bit", action: "set_relative", wantNil: true, wantAction: "set_relative"},
		{raw: "", wantNil: true, wantAction: ""},
		{raw: "NaN", wantNil: true, wantAction: ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, action := adjust.ParseAmount(tt.raw, tt.action)
			if action != tt.wantAction {
				t.Errorf("ParseAmount(%q) action = %q, want %q", tt.raw, action, tt.wantAction)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseAmount(%q) = %v, want nil", tt.raw, *got)
				}
				return
			}
			if got == nil || *got < tt.want-1e-9 || *got > tt.want+1e-9 {
				t.Errorf("ParseAmount(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDeviceState_Number(t *testing.T) {
	st := adjust.DeviceState{Attributes: map[string]any{
		"f": 0.5, "i": 3, "s": " 12.5 ", "bad": "loud", "list": []any{1},
	}}

	tests := []struct {
		attr        string
		want        float64
		wantPresent bool
		wantErr     bool
	}{
		{"f", 0.5, true, false},
		{"i", 3, true, false},
		{"s", 12.5, true, false},
		{"bad", 0, true, true},
		{"list", 0, true, true},
		{"missing", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.attr, func(t *testing.T) {
			got, present, err := st.Number(tt.attr)
			if got != tt.want || present != tt.wantPresent || (err != nil) != tt.wantErr {
				t.Errorf("Number(%q) = %v, %v, %v", tt.attr, got, present, err)
			}
		})
	}
}
