package dialogue

import (
	"fmt"
	"strings"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/resolve"
)

var prompts = map[string]string{
	SlotLocation:  "Which room do you mean?",
	SlotDevice:    "Which device?",
	SlotAction:    "What would you like me to do?",
	SlotAmount:    "By how much?",
	SlotParameter: "Which setting should I change?",
}

// Prompt returns the question asking for slot.
func Prompt(slot string) string {
	if p, ok := prompts[slot]; ok {
		return p
	}
	return "Could you tell me more?"
}

// englishList joins items with commas and conj, using a serial comma for
// three or more.
func englishList(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " " + conj + " " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", " + conj + " " + items[len(items)-1]
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func spaced(s string) string {
	return strings.ReplaceAll(s, "_", " ")
}

func locationNames(cat *catalog.Catalog, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, cat.LocationName(id))
	}
	return names
}

func deviceNames(cat *catalog.Catalog, values []string) []string {
	names := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := cat.Device(v); ok {
			names = append(names, cat.DeviceName(v))
			continue
		}
		names = append(names, v)
	}
	return names
}

func unknownLocationMessage(name string) string {
	return fmt.Sprintf("Sorry, I don't know the location %s.", name)
}

// noMatchMessage lists every active constraint, e.g. "Sorry, I don't know of
// any devices in the kitchen called lamp with a volume."
func noMatchMessage(cat *catalog.Catalog, s Slots) string {
	var filters []string
	if len(s.Location) > 0 {
		filters = append(filters, "in "+englishList(locationNames(cat, s.Location), "and"))
	}
	if len(s.Device) > 0 {
		filters = append(filters, "called "+englishList(deviceNames(cat, s.Device), "or"))
	}
	if len(s.Parameter) > 0 {
		filters = append(filters, "with a "+englishList(spacedAll(s.Parameter), "or"))
	}
	if len(s.Action) > 0 {
		filters = append(filters, "that we can "+englishList(spacedAll(s.Action), "or"))
	}
	if len(filters) == 0 {
		return "Sorry, I don't know of any devices."
	}
	return fmt.Sprintf("Sorry, I don't know of any devices %s.", strings.Join(filters, " "))
}

// alternativesMessage describes what a search without the parameter and
// action filters found. It only mentions a dropped filter when the user had
// set it.
func alternativesMessage(cat *catalog.Catalog, s Slots, alt resolve.Result) string {
	descr := []string{}
	if len(s.Device) > 0 {
		descr = append(descr, "called "+englishList(deviceNames(cat, s.Device), "or"))
	}
	if len(s.Action) > 0 {
		if alt.Actions.Len() > 0 {
			descr = append(descr, "that can "+englishList(spacedAll(alt.Actions.Sorted()), "or"))
		} else {
			descr = append(descr, "with no actions")
		}
	}
	if len(s.Parameter) > 0 {
		if alt.Attributes.Len() > 0 {
			descr = append(descr, "with a "+englishList(spacedAll(alt.Attributes.Sorted()), "or"))
		} else {
			descr = append(descr, "with no parameters")
		}
	}
	msg := "However I did find " + plural(alt.Devices.Len(), "device")
	if len(descr) > 0 {
		msg += " " + strings.Join(descr, " ")
	}
	return msg + "."
}

func ambiguousMessage(res resolve.Result) string {
	return fmt.Sprintf("Found %d devices in %s, but it sounds like you only wanted one. Do you want to adjust them all?",
		res.Devices.Len(), plural(res.Areas.Len(), "location"))
}

func badAmountMessage(raw string) string {
	return fmt.Sprintf("Sorry, I didn't understand the amount %s.", raw)
}

func spacedAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = spaced(v)
	}
	return out
}

var irregularPast = map[string]string{
	"stop":  "stopped",
	"set":   "set",
	"run":   "ran",
	"shut":  "shut",
	"begin": "began",
}

// pastTense turns an action name into a sentence opener: "turn_off" becomes
// "Turned off", "close_cover" becomes "Closed cover".
func pastTense(action string) string {
	words := strings.Split(strings.TrimPrefix(action, "media_"), "_")
	if len(words) == 0 || words[0] == "" {
		return action
	}
	verb := words[0]
	switch {
	case irregularPast[verb] != "":
		verb = irregularPast[verb]
	case strings.HasSuffix(verb, "e"):
		verb += "d"
	case strings.HasSuffix(verb, "y") && len(verb) > 1 && !strings.ContainsRune("aeiou", rune(verb[len(verb)-2])):
		verb = verb[:len(verb)-1] + "ied"
	default:
		verb += "ed"
	}
	words[0] = verb
	sentence := strings.Join(words, " ")
	return strings.ToUpper(sentence[:1]) + sentence[1:]
}
