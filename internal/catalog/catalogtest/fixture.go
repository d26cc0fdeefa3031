// Package catalogtest provides a small house inventory shared by tests.
package catalogtest

import (
	"testing"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
)

// Device ids in the fixture house.
const (
	Lamp       = "light.lamp1"
	Ceiling    = "light.kitchen_ceiling"
	Landing    = "light.landing"
	Blind      = "cover.kitchen_blind"
	Speaker    = "media_player.speaker"
	Kettle     = "switch.kettle"
	Thermostat = "climate.hall"
	Outdoor    = "sensor.outdoor"
)

// Inventory returns a fresh copy of the fixture house:
//
//	ground floor: living_room (lamp, speaker), kitchen (ceiling, blind, kettle)
//	upstairs:     landing (landing light, thermostat)
//	no area:      outdoor thermometer
func Inventory() catalog.Inventory {
	return catalog.Inventory{
		Floors: []catalog.FloorRecord{
			{ID: "ground", Names: []string{"Ground Floor", "downstairs"}},
			{ID: "upstairs", Names: []string{"Upstairs", "first floor"}},
		},
		Areas: []catalog.AreaRecord{
			{ID: "living_room", Names: []string{"Living Room", "lounge"}, FloorID: "ground"},
			{ID: "kitchen", Names: []string{"Kitchen"}, FloorID: "ground"},
			{ID: "landing", Names: []string{"Landing"}, FloorID: "upstairs"},
		},
		Devices: []catalog.DeviceRecord{
			{
				ID: Lamp, Names: []string{"Lamp", "Reading Lamp"}, Domain: "light",
				Attributes: []string{"brightness"},
				Actions:    []string{"turn_on", "turn_off"},
				AreaIDs:    []string{"living_room"},
			},
			{
				ID: Ceiling, Names: []string{"Ceiling Light"}, Domain: "light",
				Attributes: []string{"brightness"},
				Actions:    []string{"turn_on", "turn_off", "toggle"},
				AreaIDs:    []string{"kitchen"},
			},
			{
				ID: Landing, Names: []string{"Landing Light"}, Domain: "light",
				Attributes: []string{"brightness"},
				Actions:    []string{"turn_on", "turn_off"},
				AreaIDs:    []string{"landing"},
			},
			{
				ID: Blind, Names: []string{"Blind", "Kitchen Blind"}, Domain: "cover",
				Attributes: []string{"current_position"},
				Actions:    []string{"open_cover", "close_cover", "stop_cover"},
				AreaIDs:    []string{"kitchen"},
			},
			{
				ID: Speaker, Names: []string{"Speaker"}, Domain: "media_player",
				Attributes: []string{"volume_level"},
				Actions:    []string{"turn_on", "turn_off", "media_pause"},
				AreaIDs:    []string{"living_room"},
			},
			{
				ID: Kettle, Names: []string{"Kettle"}, Domain: "switch",
				Actions: []string{"turn_on", "turn_off"},
				AreaIDs: []string{"kitchen"},
			},
			{
				ID: Thermostat, Names: []string{"Thermostat"}, Domain: "climate",
				Attributes: []string{"temperature"},
				Actions:    []string{"turn_on", "turn_off"},
				AreaIDs:    []string{"landing"},
			},
			{
				ID: Outdoor, Names: []string{"Outdoor Thermometer"}, Domain: "sensor",
				Attributes: []string{"temperature"},
			},
		},
	}
}

// Catalog builds the fixture house, failing the test on error.
func Catalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Build(Inventory())
	if err != nil {
		t.Fatalf("building fixture catalog: %v", err)
	}
	return c
}

// Build builds an arbitrary inventory, failing the test on error.
func Build(t testing.TB, inv catalog.Inventory) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Build(inv)
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return c
}
