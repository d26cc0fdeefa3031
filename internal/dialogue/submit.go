package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/gray-logic-dialogue/internal/adjust"
	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/resolve"
)

// Receipt is what submitting a resolved form did.
type Receipt struct {
	Message string `json:"message"`
	// Report is set for the adjust form.
	Report *adjust.Report `json:"report,omitempty"`
	// Values holds the reported value per device id for the locate form.
	Values map[string]any `json:"values,omitempty"`
}

// Submitter carries out resolved forms.
type Submitter struct {
	engine *adjust.Engine
	reader adjust.StateReader
}

// NewSubmitter creates a submitter. The locate form reads states through the
// engine's state reader.
func NewSubmitter(engine *adjust.Engine) *Submitter {
	return &Submitter{engine: engine, reader: engine.StateReader()}
}

// Submit executes slots for form. A user-facing problem (bad amount, every
// device failing) comes back as a Receipt message with a nil error; err is
// reserved for submitting a form that is not resolved.
func (s *Submitter) Submit(ctx context.Context, cat *catalog.Catalog, form string, slots Slots) (Receipt, error) {
	if len(slots.Device) == 0 {
		return Receipt{}, ErrNotResolved
	}
	if form == FormLocate {
		return s.query(ctx, cat, slots), nil
	}
	if len(slots.Action) == 0 {
		return Receipt{}, ErrNotResolved
	}
	return s.adjust(ctx, slots), nil
}

func (s *Submitter) adjust(ctx context.Context, slots Slots) Receipt {
	action := slots.action()
	param := slots.parameter()

	var (
		report adjust.Report
		err    error
		done   string
	)
	switch action {
	case resolve.ActionSetRelative:
		if slots.Amount == nil {
			return Receipt{Message: fmt.Sprintf("Sorry, I didn't understand the relative amount %s", slots.RawAmount)}
		}
		report, err = s.engine.ApplyRelative(ctx, slots.Device, param, *slots.Amount)
		done = "Changed " + spaced(param) + " on"
	case resolve.ActionSetAbsolute:
		if slots.Amount == nil {
			return Receipt{Message: fmt.Sprintf("Sorry, I didn't understand the amount %s", slots.RawAmount)}
		}
		report, err = s.engine.ApplyAbsolute(ctx, slots.Device, param, *slots.Amount)
		done = "Set " + spaced(param) + " on"
	default:
		report, err = s.engine.ApplyAction(ctx, action, slots.Device)
		done = pastTense(action)
	}

	if err != nil {
		return Receipt{Message: failureMessage(err), Report: &report}
	}
	if report.Count() == 0 && len(report.Skipped) > 0 {
		return Receipt{Message: skippedMessage(report, param), Report: &report}
	}
	return Receipt{
		Message: fmt.Sprintf("%s %s", done, plural(report.Count(), "device")),
		Report:  &report,
	}
}

// skippedMessage explains a batch in which every device was skipped.
func skippedMessage(report adjust.Report, param string) string {
	var missing, nonNumeric int
	for _, err := range report.Skipped {
		switch {
		case errors.Is(err, adjust.ErrAttributeMissing):
			missing++
		case errors.Is(err, adjust.ErrNonNumericAttribute):
			nonNumeric++
		}
	}
	name := spaced(param)
	switch len(report.Skipped) {
	case missing:
		return fmt.Sprintf("Sorry, none of those devices report %s.", name)
	case nonNumeric:
		return fmt.Sprintf("Sorry, the %s of those devices isn't a number I can change.", name)
	}
	return fmt.Sprintf("Sorry, I couldn't read the current %s of those devices.", name)
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, adjust.ErrActionNotSupported):
		return "Sorry, none of those devices can do that."
	case errors.Is(err, adjust.ErrDeviceNotFound):
		return "Sorry, I couldn't find those devices any more."
	case errors.Is(err, adjust.ErrNonNumericAmount):
		return "Sorry, that amount isn't a number."
	}
	return "Sorry, I couldn't reach any of those devices."
}

// query reports the requested parameter, or the on/off state when none was
// given, for every device.
func (s *Submitter) query(ctx context.Context, cat *catalog.Catalog, slots Slots) Receipt {
	if s.reader == nil {
		return Receipt{Message: "Sorry, I can't read device states right now."}
	}

	param := slots.parameter()
	values := make(map[string]any, len(slots.Device))
	var parts []string

	for _, id := range slots.Device {
		st, err := s.reader.State(ctx, id)
		if err != nil {
			continue
		}
		name := cat.DeviceName(id)
		if param == "" {
			values[id] = st.State
			parts = append(parts, fmt.Sprintf("the %s is %s", name, st.State))
			continue
		}
		v, present := st.Attributes[param]
		if !present {
			continue
		}
		values[id] = v
		parts = append(parts, fmt.Sprintf("the %s %s is %s", name, spaced(param), formatValue(v)))
	}

	if len(parts) == 0 {
		return Receipt{Message: "Sorry, none of those devices reported a value.", Values: values}
	}
	msg := englishList(parts, "and")
	return Receipt{Message: strings.ToUpper(msg[:1]) + msg[1:] + ".", Values: values}
}

func formatValue(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return n
	}
	return fmt.Sprint(v)
}
