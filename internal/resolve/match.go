package resolve

import (
	"slices"
	"strings"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
)

// Adjustment pseudo-actions. They set an attribute rather than invoke a
// named device action, so devices are not required to list them.
const (
	ActionSetAbsolute = "set_absolute"
	ActionSetRelative = "set_relative"
)

// IsAdjustment reports whether action is one of the pseudo-actions.
func IsAdjustment(action string) bool {
	return action == ActionSetAbsolute || action == ActionSetRelative
}

// Constraints narrows the device set. Empty fields do not filter.
type Constraints struct {
	// Locations are area and/or floor ids. Empty means every area.
	Locations []string `json:"locations,omitempty"`
	// Devices are display names, device ids or domains.
	Devices []string `json:"devices,omitempty"`
	// Parameters are attribute names.
	Parameters []string `json:"parameters,omitempty"`
	// Actions are action names, matched with the tri-form rule.
	Actions []string `json:"actions,omitempty"`
}

// Result is what survived the filters.
type Result struct {
	Devices Set `json:"devices"`
	// Areas are the area ids that contributed at least one device.
	Areas Set `json:"areas"`
	// Attributes are the matched devices' attributes, limited to the
	// parameter filter when one was given.
	Attributes Set `json:"attributes"`
	// Actions are canonical device action names, limited to the action
	// filter when one was given.
	Actions Set `json:"actions"`
}

// Match returns the devices satisfying every active constraint.
//
// With no location every area is searched, plus devices that belong to no
// area at all. Floor ids expand to their member areas.
func Match(cat *catalog.Catalog, c Constraints) Result {
	res := Result{
		Devices:    NewSet(),
		Areas:      NewSet(),
		Attributes: NewSet(),
		Actions:    NewSet(),
	}

	deviceFilter := lowerAll(c.Devices)
	paramFilter := lowerAll(c.Parameters)
	actionFilter := lowerAll(c.Actions)

	consider := func(areaID string, d *catalog.Device) {
		actions, ok := acceptDevice(d, deviceFilter, paramFilter, actionFilter)
		if !ok {
			return
		}
		res.Devices.Add(d.ID)
		if areaID != "" {
			res.Areas.Add(areaID)
		}
		if len(paramFilter) == 0 {
			res.Attributes.Add(d.Attributes...)
		} else {
			for _, attr := range d.Attributes {
				if slices.Contains(paramFilter, attr) {
					res.Attributes.Add(attr)
				}
			}
		}
		res.Actions.Add(actions...)
	}

	var areaIDs []string
	if len(c.Locations) == 0 {
		areaIDs = cat.AreaIDs()
		for _, id := range cat.UnassignedDeviceIDs() {
			if d, ok := cat.Device(id); ok {
				consider("", d)
			}
		}
	} else {
		areaIDs = cat.AreaIDsFor(c.Locations)
	}

	for _, areaID := range areaIDs {
		area, ok := cat.Area(areaID)
		if !ok {
			continue
		}
		for _, id := range area.DeviceIDs {
			if d, ok := cat.Device(id); ok {
				consider(areaID, d)
			}
		}
	}

	return res
}

// acceptDevice applies the device, parameter and action filters and returns
// the action names to report for an accepted device.
func acceptDevice(d *catalog.Device, devices, params, actions []string) ([]string, bool) {
	if len(devices) > 0 && !matchesDeviceFilter(d, devices) {
		return nil, false
	}

	if len(params) > 0 {
		if len(d.Attributes) == 0 {
			return nil, false
		}
		found := false
		for _, attr := range d.Attributes {
			if slices.Contains(params, attr) {
				found = true
				break
			}
		}
		if !found {
			return nil, false
		}
	}

	if len(actions) == 0 {
		return d.Actions, true
	}

	var matched []string
	exempt := false
	for _, a := range actions {
		if canonical, ok := Canonical(d, a); ok {
			matched = append(matched, canonical)
			continue
		}
		if IsAdjustment(a) {
			exempt = true
			matched = append(matched, a)
		}
	}
	if len(matched) == 0 && !exempt {
		return nil, false
	}
	return matched, true
}

func matchesDeviceFilter(d *catalog.Device, filters []string) bool {
	for _, f := range filters {
		if f == d.Domain || f == strings.ToLower(d.ID) || slices.Contains(d.Names, f) {
			return true
		}
	}
	return false
}

// Canonical resolves action to the name the device actually supports using
// the tri-form rule: the device action s matches a when s == a, or
// s == a_domain, or s == domain_a. "stop" on a cover resolves to "stop_cover".
func Canonical(d *catalog.Device, action string) (string, bool) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		return "", false
	}
	for _, s := range d.Actions {
		if s == action || s == action+"_"+d.Domain || s == d.Domain+"_"+action {
			return s, true
		}
	}
	return "", false
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
