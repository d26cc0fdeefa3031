package dialogue

import (
	"errors"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/resolve"
)

// DefaultRelativeStep is the change applied by "turn up" with no amount.
const DefaultRelativeStep = 0.25

// Status is where a turn left the form.
type Status string

// Turn statuses.
const (
	// StatusRequest asks the user for Outcome.Requested.
	StatusRequest Status = "request"
	// StatusConfirm asks whether every matched device is meant.
	StatusConfirm Status = "confirm"
	// StatusResolved means every required slot is filled.
	StatusResolved Status = "resolved"
	// StatusFailed reports a recoverable error; Outcome.Message explains it.
	StatusFailed Status = "failed"
)

// Options tunes a Machine.
type Options struct {
	// RelativeStep is the default relative change; zero means DefaultRelativeStep.
	RelativeStep float64
	// SuggestAlternatives enables the relaxed search after an empty match.
	SuggestAlternatives bool
}

// Outcome is the result of one turn.
type Outcome struct {
	Status Status `json:"status"`
	// Slots is the state to carry into the next turn.
	Slots     Slots  `json:"slots"`
	Requested string `json:"requested,omitempty"`
	Message   string `json:"message,omitempty"`
	// Err is one of the package's sentinel errors, or nil.
	Err error `json:"-"`
	// Match is the matcher result behind this outcome, when one was computed.
	Match *resolve.Result `json:"match,omitempty"`
}

// Machine runs a Form against catalog snapshots.
//
// Every turn re-validates and re-matches the whole slot set, so a later
// answer can settle an earlier question (naming a device can fix the
// location).
//
// Thread Safety:
//   - A Machine holds no per-conversation state and is safe for concurrent use.
type Machine struct {
	form Form
	opts Options
}

// NewMachine creates a machine for form.
func NewMachine(form Form, opts Options) *Machine {
	if opts.RelativeStep == 0 {
		opts.RelativeStep = DefaultRelativeStep
	}
	return &Machine{form: form, opts: opts}
}

// Form returns the form the machine runs.
func (m *Machine) Form() Form {
	return m.form
}

// Turn folds in into current and decides what happens next. current is not
// modified.
func (m *Machine) Turn(cat *catalog.Catalog, current Slots, in Input) Outcome {
	in = in.normalised()
	s := current.Clone()

	// An unknown location only clears that slot; the rest of the turn is kept.
	var locationErr error
	for _, validate := range m.form.Validators {
		err := validate(cat, in, &s, m.opts)
		switch {
		case err == nil:
		case errors.Is(err, ErrUnknownLocation):
			locationErr = err
		default:
			return m.validationFailure(current, in, err)
		}
	}
	if locationErr != nil {
		return m.validationFailure(s, in, locationErr)
	}

	res := resolve.Match(cat, constraints(s))
	res = m.narrowToSatellite(cat, &s, res)

	if res.Devices.Len() == 0 {
		msg := noMatchMessage(cat, s)
		if m.opts.SuggestAlternatives {
			if alt, ok := relaxed(cat, s); ok {
				msg += " " + alternativesMessage(cat, s, alt)
			}
		}
		return Outcome{
			Status:  StatusFailed,
			Slots:   s.Reset(),
			Message: msg,
			Err:     ErrNoMatchingDevices,
			Match:   &res,
		}
	}

	if res.Devices.Len() > 1 && !s.Multiple {
		s.Requested = ""
		return Outcome{
			Status:  StatusConfirm,
			Slots:   s,
			Message: ambiguousMessage(res),
			Err:     ErrAmbiguousMatch,
			Match:   &res,
		}
	}

	collapse(&s, res)

	next := m.nextSlot(s, res.Devices.Len())
	s.Requested = next
	if next == "" {
		return Outcome{Status: StatusResolved, Slots: s, Match: &res}
	}

	msg := Prompt(next)
	if next == SlotAmount && in.Amount != "" {
		msg = badAmountMessage(in.Amount) + " " + msg
	}
	return Outcome{
		Status:    StatusRequest,
		Slots:     s,
		Requested: next,
		Message:   msg,
		Match:     &res,
	}
}

// Confirm answers the question raised by StatusConfirm. Yes widens the
// request to every matched device; no asks for a location instead.
func (m *Machine) Confirm(cat *catalog.Catalog, current Slots, yes bool) Outcome {
	s := current.Clone()
	if yes {
		s.Multiple = true
		return m.Turn(cat, s, Input{})
	}
	s.Multiple = false
	s.Location = nil
	s.LocationSet = false
	s.Requested = SlotLocation
	return Outcome{
		Status:    StatusRequest,
		Slots:     s,
		Requested: SlotLocation,
		Message:   Prompt(SlotLocation),
	}
}

func (m *Machine) validationFailure(slots Slots, in Input, err error) Outcome {
	s := slots.Clone()
	if errors.Is(err, ErrUnknownLocation) {
		s.Location = nil
		s.LocationSet = false
		s.Requested = SlotLocation
		return Outcome{
			Status:    StatusFailed,
			Slots:     s,
			Requested: SlotLocation,
			Message:   unknownLocationMessage(in.Location),
			Err:       ErrUnknownLocation,
		}
	}
	return Outcome{
		Status:  StatusFailed,
		Slots:   s,
		Message: "Sorry, I didn't understand that.",
		Err:     err,
	}
}

// narrowToSatellite restricts an ambiguous, location-less match to the area
// of the device that heard the request, when that still matches something.
func (m *Machine) narrowToSatellite(cat *catalog.Catalog, s *Slots, res resolve.Result) resolve.Result {
	if s.Satellite == "" || s.Multiple || s.LocationSet || len(s.Location) > 0 {
		return res
	}
	if res.Devices.Len() <= 1 || !cat.IsLocationID(s.Satellite) {
		return res
	}
	c := constraints(*s)
	c.Locations = []string{s.Satellite}
	narrowed := resolve.Match(cat, c)
	if narrowed.Devices.Len() == 0 {
		return res
	}
	s.Location = []string{s.Satellite}
	return narrowed
}

func (m *Machine) nextSlot(s Slots, devices int) string {
	for _, r := range m.form.Rules {
		if r.Missing(s, devices) {
			return r.Slot
		}
	}
	return ""
}

func constraints(s Slots) resolve.Constraints {
	return resolve.Constraints{
		Locations:  s.Location,
		Devices:    s.Device,
		Parameters: s.Parameter,
		Actions:    s.Action,
	}
}

// relaxed repeats the search without the parameter and action filters. It
// runs once and only when one of them was set.
func relaxed(cat *catalog.Catalog, s Slots) (resolve.Result, bool) {
	if len(s.Parameter) == 0 && len(s.Action) == 0 {
		return resolve.Result{}, false
	}
	c := constraints(s)
	c.Parameters = nil
	c.Actions = nil
	alt := resolve.Match(cat, c)
	return alt, alt.Devices.Len() > 0
}

// collapse writes back what the match settled: the device ids, and the
// action, area and parameter when exactly one of each was found.
func collapse(s *Slots, res resolve.Result) {
	s.Device = res.Devices.Sorted()
	if a, ok := res.Actions.Single(); ok {
		s.Action = []string{a}
	}
	if area, ok := res.Areas.Single(); ok {
		s.Location = []string{area}
	}
	if p, ok := res.Attributes.Single(); ok {
		s.Parameter = []string{p}
	}
}
