package dialogue

import (
	"slices"
	"strings"
)

// Slot names, as used in Outcome.Requested.
const (
	SlotLocation  = "location"
	SlotDevice    = "device"
	SlotParameter = "parameter"
	SlotAction    = "action"
	SlotAmount    = "amount"
)

// Location sentinels meaning "every location".
var allLocations = []string{"all", "any", "each"}

// Slots is the constraint set accumulated across the turns of one
// conversation.
//
// Before a form resolves, Device and Location hold what the user said
// (names, plural variants). Once matched they hold catalog ids, which a
// later turn passes through unchanged.
type Slots struct {
	// Location holds area and/or floor ids. Nil means unset.
	Location []string `json:"location,omitempty"`
	// LocationSet marks a location that was answered with "all" and is
	// therefore deliberately empty.
	LocationSet bool `json:"location_set,omitempty"`

	Device    []string `json:"device,omitempty"`
	Parameter []string `json:"parameter,omitempty"`
	Action    []string `json:"action,omitempty"`

	// Amount is the parsed amount. Nil means unset; zero is a valid amount.
	Amount *float64 `json:"amount,omitempty"`
	// RawAmount is the amount as spoken, kept for messages.
	RawAmount string `json:"raw_amount,omitempty"`

	// Multiple is set when the user expects more than one device.
	Multiple bool `json:"multiple"`

	// Requested is the slot the last turn asked for.
	Requested string `json:"requested,omitempty"`

	// Satellite is the area id of the device that heard the request. It is
	// conversation metadata and survives Reset.
	Satellite string `json:"satellite,omitempty"`
}

// Clone returns a deep copy.
func (s Slots) Clone() Slots {
	out := s
	out.Location = slices.Clone(s.Location)
	out.Device = slices.Clone(s.Device)
	out.Parameter = slices.Clone(s.Parameter)
	out.Action = slices.Clone(s.Action)
	if s.Amount != nil {
		v := *s.Amount
		out.Amount = &v
	}
	return out
}

// Reset clears every slot except the satellite metadata.
func (s Slots) Reset() Slots {
	return Slots{Satellite: s.Satellite}
}

// action returns the single action, or "" when none or several are set.
func (s Slots) action() string {
	if len(s.Action) != 1 {
		return ""
	}
	return s.Action[0]
}

func (s Slots) parameter() string {
	if len(s.Parameter) != 1 {
		return ""
	}
	return s.Parameter[0]
}

// Input is what one user turn contributes: raw, pre-segmented slot values.
// Empty fields leave the corresponding slot as it is.
type Input struct {
	Location  string `json:"location,omitempty"`
	Device    string `json:"device,omitempty"`
	Parameter string `json:"parameter,omitempty"`
	Action    string `json:"action,omitempty"`
	Amount    string `json:"amount,omitempty"`
}

// normalised returns the input lowercased and trimmed.
func (in Input) normalised() Input {
	return Input{
		Location:  fold(in.Location),
		Device:    fold(in.Device),
		Parameter: fold(in.Parameter),
		Action:    fold(in.Action),
		Amount:    fold(in.Amount),
	}
}

// IsZero reports whether the input carries no values.
func (in Input) IsZero() bool {
	return in == Input{}
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
