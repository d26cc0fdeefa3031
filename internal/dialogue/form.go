package dialogue

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nerrad567/gray-logic-dialogue/internal/adjust"
	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/resolve"
)

// Form names.
const (
	FormLocate = "locate"
	FormAdjust = "adjust"
)

// Validator folds one turn's raw input into the slots. Returning an error
// ends the turn before matching.
type Validator func(cat *catalog.Catalog, in Input, s *Slots, opts Options) error

// Rule reports whether a slot still needs an answer. devices is the number
// of devices the current slots match.
type Rule struct {
	Slot    string
	Missing func(s Slots, devices int) bool
}

// Form declares which slots a dialogue collects and how raw values are read.
// Validators run in order; Rules are checked in order and the first missing
// slot is requested next.
type Form struct {
	Name       string
	Validators []Validator
	Rules      []Rule
}

// LocateForm finds devices to report on: location, device and parameter.
func LocateForm() Form {
	return Form{
		Name: FormLocate,
		Validators: []Validator{
			ValidateLocation,
			ValidateDevice,
			ValidateParameter,
		},
		Rules: []Rule{deviceRule, locationRule},
	}
}

// AdjustForm finds devices to change and what to do to them.
func AdjustForm() Form {
	return Form{
		Name: FormAdjust,
		Validators: []Validator{
			ValidateLocation,
			ValidateAction,
			ValidateAmount,
			ValidateDevice,
			ValidateParameter,
		},
		Rules: []Rule{
			{Slot: SlotAction, Missing: func(s Slots, _ int) bool { return len(s.Action) == 0 }},
			deviceRule,
			locationRule,
			{Slot: SlotAmount, Missing: func(s Slots, _ int) bool {
				return resolve.IsAdjustment(s.action()) && s.Amount == nil
			}},
			{Slot: SlotParameter, Missing: func(s Slots, _ int) bool {
				return resolve.IsAdjustment(s.action()) && len(s.Parameter) != 1
			}},
		},
	}
}

// FormByName returns a stock form.
func FormByName(name string) (Form, error) {
	switch name {
	case FormLocate:
		return LocateForm(), nil
	case FormAdjust, "":
		return AdjustForm(), nil
	}
	return Form{}, fmt.Errorf("%w: %q", ErrUnknownForm, name)
}

var (
	deviceRule = Rule{Slot: SlotDevice, Missing: func(_ Slots, devices int) bool {
		return devices == 0
	}}
	locationRule = Rule{Slot: SlotLocation, Missing: func(s Slots, devices int) bool {
		return devices > 1 && !s.Multiple
	}}
)

// ValidateLocation resolves a location name to area and/or floor ids.
// "all", "any" and "each" select every location and imply several devices.
func ValidateLocation(cat *catalog.Catalog, in Input, s *Slots, _ Options) error {
	if in.Location == "" {
		return nil
	}
	if slices.Contains(allLocations, in.Location) {
		s.Location = []string{}
		s.LocationSet = true
		s.Multiple = true
		return nil
	}
	if cat.IsLocationID(in.Location) {
		s.Location = []string{in.Location}
		s.LocationSet = true
		return nil
	}
	ids := cat.LookupLocation(in.Location)
	if len(ids) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownLocation, in.Location)
	}
	s.Location = ids
	s.LocationSet = true
	return nil
}

// ValidateDevice records a device name. A plural name also queries its
// singular form (every trailing "s" removed) and marks the request as
// covering several devices.
func ValidateDevice(_ *catalog.Catalog, in Input, s *Slots, _ Options) error {
	if in.Device == "" {
		return nil
	}
	s.Device = []string{in.Device}
	if strings.HasSuffix(in.Device, "s") {
		s.Multiple = true
		if singular := strings.TrimRight(in.Device, "s"); singular != "" {
			s.Device = append(s.Device, singular)
		}
	}
	return nil
}

// ValidateParameter records an attribute name in snake case.
func ValidateParameter(_ *catalog.Catalog, in Input, s *Slots, _ Options) error {
	if in.Parameter == "" {
		return nil
	}
	s.Parameter = []string{snake(in.Parameter)}
	return nil
}

// phrase maps a spoken action to an adjustment.
type phrase struct {
	action string
	// sign is +1 or -1 for relative phrases and 0 otherwise.
	sign float64
}

var actionPhrases = map[string]phrase{
	"turn_up":   {action: resolve.ActionSetRelative, sign: 1},
	"increase":  {action: resolve.ActionSetRelative, sign: 1},
	"raise":     {action: resolve.ActionSetRelative, sign: 1},
	"turn_down": {action: resolve.ActionSetRelative, sign: -1},
	"decrease":  {action: resolve.ActionSetRelative, sign: -1},
	"lower":     {action: resolve.ActionSetRelative, sign: -1},
	"set":       {action: resolve.ActionSetAbsolute},
}

// ValidateAction folds an action phrase to snake case and maps adjustment
// phrases to their pseudo-action. A relative phrase with no amount in the
// same turn gets the default step.
func ValidateAction(_ *catalog.Catalog, in Input, s *Slots, opts Options) error {
	if in.Action == "" {
		return nil
	}
	action := snake(in.Action)
	if p, ok := actionPhrases[action]; ok {
		action = p.action
		if p.sign != 0 && in.Amount == "" {
			step := p.sign * opts.RelativeStep
			s.Amount = &step
			s.RawAmount = ""
		}
	}
	s.Action = []string{action}
	return nil
}

// ValidateAmount parses a spoken amount. A number with no action implies
// set_absolute; "turn down by 10 percent" yields -0.1. An amount with no
// usable number leaves the slot unset so it is asked for again.
func ValidateAmount(_ *catalog.Catalog, in Input, s *Slots, _ Options) error {
	if in.Amount == "" {
		return nil
	}
	s.RawAmount = in.Amount
	amount, action := adjust.ParseAmount(in.Amount, s.action())
	if amount == nil {
		s.Amount = nil
		return nil
	}
	v := *amount
	if p, ok := actionPhrases[snake(in.Action)]; ok && p.sign < 0 {
		v = -v
	}
	s.Amount = &v
	if len(s.Action) == 0 {
		s.Action = []string{action}
	}
	return nil
}

func snake(s string) string {
	return strings.Join(strings.Fields(s), "_")
}
