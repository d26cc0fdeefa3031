package dialogue_test

import (
	"errors"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog/catalogtest"
	"github.com/nerrad567/gray-logic-dialogue/internal/dialogue"
	"github.com/nerrad567/gray-logic-dialogue/internal/resolve"
)

func adjustMachine() *dialogue.Machine {
	return dialogue.NewMachine(dialogue.AdjustForm(), dialogue.Options{SuggestAlternatives: true})
}

func locateMachine() *dialogue.Machine {
	return dialogue.NewMachine(dialogue.LocateForm(), dialogue.Options{SuggestAlternatives: true})
}

func amountOf(t *testing.T, s dialogue.Slots) float64 {
	t.Helper()
	if s.Amount == nil {
		t.Fatal("Amount = nil")
	}
	return *s.Amount
}

func TestTurn_ScenarioA_ResolvesWithoutQuestions(t *testing.T) {
	cat := catalogtest.Catalog(t)

	out := adjustMachine().Turn(cat, dialogue.Slots{}, dialogue.Input{Device: "Lamp", Action: "turn off"})

	if out.Status != dialogue.StatusResolved {
		t.Fatalf("Status = %q (%s), want resolved", out.Status, out.Message)
	}
	if !slices.Equal(out.Slots.Device, []string{catalogtest.Lamp}) {
		t.Errorf("Device = %v, want [%s]", out.Slots.Device, catalogtest.Lamp)
	}
	if !slices.Equal(out.Slots.Action, []string{"turn_off"}) {
		t.Errorf("Action = %v, want [turn_off]", out.Slots.Action)
	}
	if !out.Match.Actions.Equal(resolve.NewSet("turn_off")) {
		t.Errorf("matched actions = %v, want {turn_off}", out.Match.Actions.Sorted())
	}
	if out.Requested != "" {
		t.Errorf("Requested = %q, want none", out.Requested)
	}
}

func TestTurn_ScenarioB_NoMatchMessage(t *testing.T) {
	cat := catalogtest.Catalog(t)

	out := locateMachine().Turn(cat, dialogue.Slots{}, dialogue.Input{Device: "lamp", Parameter: "volume"})

	if out.Status != dialogue.StatusFailed {
		t.Fatalf("Status = %q, want failed", out.Status)
	}
	if !errors.Is(out.Err, dialogue.ErrNoMatchingDevices) {
		t.Errorf("Err = %v, want ErrNoMatchingDevices", out.Err)
	}
	for _, want := range []string{"called lamp", "with a volume", "However I did find 1 device called lamp with a brightness"} {
		if !strings.Contains(out.Message, want) {
			t.Errorf("Message = %q, want it to contain %q", out.Message, want)
		}
	}
	if len(out.Slots.Device) != 0 || len(out.Slots.Parameter) != 0 {
		t.Errorf("slots not reset after failure: %+v", out.Slots)
	}
}

func TestTurn_NoAlternativesWhenDisabled(t *testing.T) {
	cat := catalogtest.Catalog(t)
	m := dialogue.NewMachine(dialogue.LocateForm(), dialogue.Options{})

	out := m.Turn(cat, dialogue.Slots{}, dialogue.Input{Device: "lamp", Parameter: "volume"})

	if strings.Contains(out.Message, "However") {
		t.Errorf("Message = %q, want no alternatives", out.Message)
	}
}

func TestTurn_ScenarioC_AmbiguousAsksToConfirm(t *testing.T) {
	cat := catalogtest.Catalog(t)
	m := adjustMachine()

	out := m.Turn(cat, dialogue.Slots{}, dialogue.Input{Device: "light", Action: "turn on"})

	if out.Status != dialogue.StatusConfirm {
		t.Fatalf("Status = %q, want confirm", out.Status)
	}
	if !errors.Is(out.Err, dialogue.ErrAmbiguousMatch) {
		t.Errorf("Err = %v, want ErrAmbiguousMatch", out.Err)
	}
	want := "Found 3 devices in 3 locations, but it sounds like you only wanted one. Do you want to adjust them all?"
	if out.Message != want {
		t.Errorf("Message = %q, want %q", out.Message, want)
	}
	// The device list is not finalised.
	if !slices.Equal(out.Slots.Device, []string{"light"}) {
		t.Errorf("Device = %v, want the raw filter", out.Slots.Device)
	}

	t.Run("yes adjusts them all", func(t *testing.T) {
		yes := m.Confirm(cat, out.Slots, true)
		if yes.Status != dialogue.StatusResolved {
			t.Fatalf("Status = %q (%s), want resolved", yes.Status, yes.Message)
		}
		wantIDs := []string{catalogtest.Ceiling, catalogtest.Lamp, catalogtest.Landing}
		if !slices.Equal(yes.Slots.Device, wantIDs) {
			t.Errorf("Device = %v, want %v", yes.Slots.Device, wantIDs)
		}
	})

	t.Run("no asks for a location", func(t *testing.T) {
		no := m.Confirm(cat, out.Slots, false)
		if no.Status != dialogue.StatusRequest || no.Requested != dialogue.SlotLocation {
			t.Fatalf("got %q/%q, want request/location", no.Status, no.Requested)
		}
		next := m.Turn(cat, no.Slots, dialogue.Input{Location: "Kitchen"})
		if next.Status != dialogue.StatusResolved {
			t.Fatalf("Status = %q (%s), want resolved", next.Status, next.Message)
		}
		if !slices.Equal(next.Slots.Device, []string{catalogtest.Ceiling}) {
			t.Errorf("Device = %v, want [%s]", next.Slots.Device, catalogtest.Ceiling)
		}
	})
}

func TestTurn_PluralMatchesSingular(t *testing.T) {
	cat := catalogtest.Catalog(t)

	out := adjustMachine().Turn(cat, dialogue.Slots{}, dialogue.Input{Device: "lights", Action: "turn off"})

	if !out.Slots.Multiple {
		t.Error("Multiple = false, want true for a plural device")
	}
	if out.Status != dialogue.StatusResolved {
		t.Fatalf("Status = %q (%s), want resolved", out.Status, out.Message)
	}
	singular := resolve.Match(cat, resolve.Constraints{Devices: []string{"light"}, Actions: []string{"turn_off"}})
	if !out.Match.Devices.Equal(singular.Devices) {
		t.Errorf("plural devices = %v, singular = %v", out.Match.Devices.Sorted(), singular.Devices.Sorted())
	}
}

func TestTurn_SingletonCollapseIsStable(t *testing.T) {
	cat := catalogtest.Catalog(t)
	m := locateMachine()

	first := m.Turn(cat, dialogue.Slots{}, dialogue.Input{Device: "speaker"})
	if first.Status != dialogue.StatusResolved {
		t.Fatalf("Status = %q, want resolved", first.Status)
	}
	if !slices.Equal(first.Slots.Location, []string{"living_room"}) {
		t.Fatalf("Location = %v, want [living_room]", first.Slots.Location)
	}
	if !slices.Equal(first.Slots.Parameter, []string{"volume_level"}) {
		t.Errorf("Parameter = %v, want [volume_level]", first.Slots.Parameter)
	}

	second := m.Turn(cat, first.Slots, dialogue.Input{})
	if second.Status != dialogue.StatusResolved {
		t.Fatalf("re-validation Status = %q (%s), want resolved", second.Status, second.Message)
	}
	if !slices.Equal(second.Slots.Device, first.Slots.Device) || !slices.Equal(second.Slots.Location, first.Slots.Location) {
		t.Errorf("re-validation changed slots: %+v -> %+v", first.Slots, second.Slots)
	}
}

func TestTurn_UnknownLocation(t *testing.T) {
	cat := catalogtest.Catalog(t)
	current := dialogue.Slots{Device: []string{"lamp"}, Action: []string{"turn_on"}}

	out := adjustMachine().Turn(cat, current, dialogue.Input{Location: "Attic"})

	if !errors.Is(out.Err, dialogue.ErrUnknownLocation) {
		t.Fatalf("Err = %v, want ErrUnknownLocation", out.Err)
	}
	if out.Message != "Sorry, I don't know the location attic." {
		t.Errorf("Message = %q", out.Message)
	}
	if out.Requested != dialogue.SlotLocation {
		t.Errorf("Requested = %q, want location", out.Requested)
	}
	if !slices.Equal(out.Slots.Device, []string{"lamp"}) {
		t.Errorf("Device = %v, other slots should be kept", out.Slots.Device)
	}
	if out.Slots.Location != nil {
		t.Errorf("Location = %v, want cleared", out.Slots.Location)
	}
}

func TestTurn_UnknownLocationKeepsSameTurnSlots(t *testing.T) {
	cat := catalogtest.Catalog(t)
	m := adjustMachine()

	out := m.Turn(cat, dialogue.Slots{}, dialogue.Input{Location: "garage", Device: "lamp", Action: "turn off"})

	if !errors.Is(out.Err, dialogue.ErrUnknownLocation) {
		t.Fatalf("Err = %v, want ErrUnknownLocation", out.Err)
	}
	if out.Requested != dialogue.SlotLocation {
		t.Errorf("Requested = %q, want location", out.Requested)
	}
	if !slices.Equal(out.Slots.Device, []string{"lamp"}) {
		t.Errorf("Device = %v, want [lamp]", out.Slots.Device)
	}
	if !slices.Equal(out.Slots.Action, []string{"turn_off"}) {
		t.Errorf("Action = %v, want [turn_off]", out.Slots.Action)
	}
	if out.Slots.Location != nil || out.Slots.LocationSet {
		t.Errorf("Location = %v (set %v), want cleared", out.Slots.Location, out.Slots.LocationSet)
	}

	out = m.Turn(cat, out.Slots, dialogue.Input{Location: "living room"})

	if out.Status != dialogue.StatusResolved {
		t.Fatalf("Status = %q (%s), want resolved", out.Status, out.Message)
	}
	if !slices.Equal(out.Slots.Device, []string{catalogtest.Lamp}) {
		t.Errorf("Device = %v, want [%s]", out.Slots.Device, catalogtest.Lamp)
	}
}

func TestTurn_Locations(t *testing.T) {
	cat := catalogtest.Catalog(t)

	tests := []struct {
		name       string
		in         dialogue.Input
		wantStatus dialogue.Status
		wantIDs    []string
	}{
		{
			name:       "all selects every area",
			in:         dialogue.Input{Location: "all", Device: "light", Action: "turn off"},
			wantStatus: dialogue.StatusResolved,
			wantIDs:    []string{catalogtest.Ceiling, catalogtest.Lamp, catalogtest.Landing},
		},
		{
			name:       "floor expands to its areas",
			in:         dialogue.Input{Location: "downstairs", Device: "light", Action: "turn off"},
			wantStatus: dialogue.StatusConfirm,
		},
		{
			name:       "area alias",
			in:         dialogue.Input{Location: "lounge", Device: "light", Action: "turn off"},
			wantStatus: dialogue.StatusResolved,
			wantIDs:    []string{catalogtest.Lamp},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := adjustMachine().Turn(cat, dialogue.Slots{}, tt.in)
			if out.Status != tt.wantStatus {
				t.Fatalf("Status = %q (%s), want %q", out.Status, out.Message, tt.wantStatus)
			}
			if tt.wantIDs != nil && !slices.Equal(out.Slots.Device, tt.wantIDs) {
				t.Errorf("Device = %v, want %v", out.Slots.Device, tt.wantIDs)
			}
		})
	}
}

func TestTurn_Amounts(t *testing.T) {
	cat := catalogtest.Catalog(t)

	tests := []struct {
		name       string
		in         dialogue.Input
		wantAction string
		wantAmount float64
		wantParam  string
	}{
		{
			name:       "number implies set_absolute",
			in:         dialogue.Input{Device: "lamp", Amount: "50 percent"},
			wantAction: resolve.ActionSetAbsolute,
			wantAmount: 0.5,
			wantParam:  "brightness",
		},
		{
			name:       "turn up uses the default step",
			in:         dialogue.Input{Device: "speaker", Action: "turn up"},
			wantAction: resolve.ActionSetRelative,
			wantAmount: dialogue.DefaultRelativeStep,
			wantParam:  "volume_level",
		},
		{
			name:       "turn down by an amount is negative",
			in:         dialogue.Input{Device: "speaker", Action: "turn down", Amount: "10 percent"},
			wantAction: resolve.ActionSetRelative,
			wantAmount: -0.1,
			wantParam:  "volume_level",
		},
		{
			name:       "set with a raw number",
			in:         dialogue.Input{Device: "thermostat", Action: "set", Amount: "21"},
			wantAction: resolve.ActionSetAbsolute,
			wantAmount: 21,
			wantParam:  "temperature",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := adjustMachine().Turn(cat, dialogue.Slots{}, tt.in)
			if out.Status != dialogue.StatusResolved {
				t.Fatalf("Status = %q (%s), want resolved", out.Status, out.Message)
			}
			if !slices.Equal(out.Slots.Action, []string{tt.wantAction}) {
				t.Errorf("Action = %v, want [%s]", out.Slots.Action, tt.wantAction)
			}
			if got := amountOf(t, out.Slots); math.Abs(got-tt.wantAmount) > 1e-9 {
				t.Errorf("Amount = %v, want %v", got, tt.wantAmount)
			}
			if !slices.Equal(out.Slots.Parameter, []string{tt.wantParam}) {
				t.Errorf("Parameter = %v, want [%s]", out.Slots.Parameter, tt.wantParam)
			}
		})
	}
}

func TestTurn_AsksForMissingSlots(t *testing.T) {
	cat := catalogtest.Catalog(t)
	m := adjustMachine()

	t.Run("action", func(t *testing.T) {
		out := m.Turn(cat, dialogue.Slots{}, dialogue.Input{Device: "kettle"})
		if out.Status != dialogue.StatusRequest || out.Requested != dialogue.SlotAction {
			t.Fatalf("got %q/%q, want request/action", out.Status, out.Requested)
		}
		if out.Message != dialogue.Prompt(dialogue.SlotAction) {
			t.Errorf("Message = %q", out.Message)
		}
	})

	t.Run("device inferred from action", func(t *testing.T) {
		out := m.Turn(cat, dialogue.Slots{}, dialogue.Input{Location: "kitchen", Action: "toggle"})
		if out.Status != dialogue.StatusResolved {
			t.Fatalf("Status = %q (%s), want resolved", out.Status, out.Message)
		}
		if !slices.Equal(out.Slots.Device, []string{catalogtest.Ceiling}) {
			t.Errorf("Device = %v", out.Slots.Device)
		}
	})

	t.Run("amount then a bad amount then a good one", func(t *testing.T) {
		out := m.Turn(cat, dialogue.Slots{}, dialogue.Input{Device: "lamp", Action: "set"})
		if out.Requested != dialogue.SlotAmount {
			t.Fatalf("Requested = %q, want amount", out.Requested)
		}

		bad := m.Turn(cat, out.Slots, dialogue.Input{Amount: "lots"})
		if bad.Requested != dialogue.SlotAmount {
			t.Fatalf("Requested = %q, want amount again", bad.Requested)
		}
		if !strings.HasPrefix(bad.Message, "Sorry, I didn't understand the amount lots.") {
			t.Errorf("Message = %q", bad.Message)
		}

		good := m.Turn(cat, bad.Slots, dialogue.Input{Amount: "40 percent"})
		if good.Status != dialogue.StatusResolved {
			t.Fatalf("Status = %q (%s), want resolved", good.Status, good.Message)
		}
		if got := amountOf(t, good.Slots); math.Abs(got-0.4) > 1e-9 {
			t.Errorf("Amount = %v, want 0.4", got)
		}
	})

	t.Run("parameter", func(t *testing.T) {
		out := m.Turn(cat, dialogue.Slots{}, dialogue.Input{Device: "kettle", Amount: "50"})
		if out.Status != dialogue.StatusRequest || out.Requested != dialogue.SlotParameter {
			t.Fatalf("got %q/%q, want request/parameter", out.Status, out.Requested)
		}
	})
}

func TestTurn_TriFormActionCollapses(t *testing.T) {
	cat := catalogtest.Catalog(t)

	out := adjustMachine().Turn(cat, dialogue.Slots{}, dialogue.Input{Device: "blind", Action: "stop"})

	if out.Status != dialogue.StatusResolved {
		t.Fatalf("Status = %q (%s), want resolved", out.Status, out.Message)
	}
	if !slices.Equal(out.Slots.Action, []string{"stop_cover"}) {
		t.Errorf("Action = %v, want [stop_cover]", out.Slots.Action)
	}
}

func TestTurn_SatelliteNarrowsAmbiguousMatch(t *testing.T) {
	cat := catalogtest.Catalog(t)
	current := dialogue.Slots{Satellite: "kitchen"}

	out := adjustMachine().Turn(cat, current, dialogue.Input{Device: "light", Action: "turn on"})

	if out.Status != dialogue.StatusResolved {
		t.Fatalf("Status = %q (%s), want resolved", out.Status, out.Message)
	}
	if !slices.Equal(out.Slots.Device, []string{catalogtest.Ceiling}) {
		t.Errorf("Device = %v, want the kitchen light", out.Slots.Device)
	}

	// An explicit location wins over the satellite.
	out = adjustMachine().Turn(cat, current, dialogue.Input{Location: "landing", Device: "light", Action: "turn on"})
	if !slices.Equal(out.Slots.Device, []string{catalogtest.Landing}) {
		t.Errorf("Device = %v, want the landing light", out.Slots.Device)
	}
}

func TestTurn_DoesNotModifyCurrent(t *testing.T) {
	cat := catalogtest.Catalog(t)
	current := dialogue.Slots{Device: []string{"lamp"}}

	adjustMachine().Turn(cat, current, dialogue.Input{Action: "turn off"})

	if !slices.Equal(current.Device, []string{"lamp"}) || current.Action != nil {
		t.Errorf("current slots modified: %+v", current)
	}
}
