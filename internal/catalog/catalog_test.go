package catalog_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/catalog/catalogtest"
)

func TestBuild_Hierarchy(t *testing.T) {
	c := catalogtest.Catalog(t)

	stats := c.Stats()
	if stats.Devices != 8 || stats.Areas != 3 || stats.Floors != 2 {
		t.Fatalf("Stats() = %+v, want 8 devices, 3 areas, 2 floors", stats)
	}

	kitchen, ok := c.Area("kitchen")
	if !ok {
		t.Fatal("Area(kitchen) not found")
	}
	wantKitchen := []string{catalogtest.Blind, catalogtest.Ceiling, catalogtest.Kettle}
	if !slices.Equal(kitchen.DeviceIDs, wantKitchen) {
		t.Errorf("kitchen.DeviceIDs = %v, want %v", kitchen.DeviceIDs, wantKitchen)
	}
	if kitchen.FloorID != "ground" {
		t.Errorf("kitchen.FloorID = %q, want ground", kitchen.FloorID)
	}

	ground, _ := c.Floor("ground")
	if !slices.Equal(ground.AreaIDs, []string{"kitchen", "living_room"}) {
		t.Errorf("ground.AreaIDs = %v", ground.AreaIDs)
	}
	if len(ground.DeviceIDs) != 5 {
		t.Errorf("ground.DeviceIDs = %v, want 5 devices", ground.DeviceIDs)
	}

	lamp, _ := c.Device(catalogtest.Lamp)
	if lamp.Name() != "lamp" {
		t.Errorf("lamp.Name() = %q, want lowercased primary name", lamp.Name())
	}
	if !lamp.HasAttribute("brightness") {
		t.Error("lamp.HasAttribute(brightness) = false")
	}

	if got := c.UnassignedDeviceIDs(); !slices.Equal(got, []string{catalogtest.Outdoor}) {
		t.Errorf("UnassignedDeviceIDs() = %v, want [%s]", got, catalogtest.Outdoor)
	}
}

func TestBuild_MissingID(t *testing.T) {
	tests := []struct {
		name string
		inv  catalog.Inventory
	}{
		{"device", catalog.Inventory{Devices: []catalog.DeviceRecord{{Names: []string{"x"}}}}},
		{"area", catalog.Inventory{Areas: []catalog.AreaRecord{{ID: "  "}}}},
		{"floor", catalog.Inventory{Floors: []catalog.FloorRecord{{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Build(tt.inv)
			if !errors.Is(err, catalog.ErrMalformedInventory) {
				t.Errorf("Build() error = %v, want ErrMalformedInventory", err)
			}
		})
	}
}

func TestBuild_Anomalies(t *testing.T) {
	inv := catalog.Inventory{
		Floors: []catalog.FloorRecord{{ID: "f1", Names: []string{"first"}}},
		Areas: []catalog.AreaRecord{
			{ID: "a1", Names: []string{"hall"}, FloorID: "f1"},
			{ID: "a2", Names: []string{"porch"}, FloorID: "missing_floor"},
			{ID: "a3", Names: []string{"unused"}},
		},
		Devices: []catalog.DeviceRecord{
			{ID: "light.one", Names: []string{"one"}, AreaIDs: []string{"a1", "ghost"}},
			{ID: "light.two", Names: []string{"two"}, AreaIDs: []string{"a2"}},
			{ID: "light.one", Names: []string{"impostor"}},
		},
	}

	c := catalogtest.Build(t, inv)

	want := []catalog.Anomaly{
		{Kind: catalog.AnomalyDuplicateID, Tier: catalog.KindDevice, ID: "light.one"},
		{Kind: catalog.AnomalyUnknownArea, Tier: catalog.KindDevice, ID: "light.one", Ref: "ghost"},
		{Kind: catalog.AnomalyUnknownFloor, Tier: catalog.KindArea, ID: "a2", Ref: "missing_floor"},
	}
	got := c.Anomalies()
	if len(got) != len(want) {
		t.Fatalf("Anomalies() = %+v, want %d entries", got, len(want))
	}
	for _, w := range want {
		if !slices.Contains(got, w) {
			t.Errorf("Anomalies() missing %+v; got %+v", w, got)
		}
	}

	if _, ok := c.Area("a3"); ok {
		t.Error("area without devices should not be built")
	}
	porch, _ := c.Area("a2")
	if porch.FloorID != "" {
		t.Errorf("porch.FloorID = %q, want dangling floor dropped", porch.FloorID)
	}
	if id, _ := c.LookupDevice("impostor"); id != "" {
		t.Errorf("duplicate record names should not be indexed, got %q", id)
	}
	one, _ := c.Device("light.one")
	if one.Domain != "light" {
		t.Errorf("Domain = %q, want light derived from entity id", one.Domain)
	}
}

func TestBuild_DeviceInTwoAreas(t *testing.T) {
	inv := catalog.Inventory{
		Floors: []catalog.FloorRecord{{ID: "f"}},
		Areas: []catalog.AreaRecord{
			{ID: "a", Names: []string{"a"}, FloorID: "f"},
			{ID: "b", Names: []string{"b"}, FloorID: "f"},
		},
		Devices: []catalog.DeviceRecord{
			{ID: "light.x", AreaIDs: []string{"a", "b", "a"}},
		},
	}
	c := catalogtest.Build(t, inv)

	x, _ := c.Device("light.x")
	if !slices.Equal(x.AreaIDs, []string{"a", "b"}) {
		t.Errorf("AreaIDs = %v, want [a b]", x.AreaIDs)
	}
	f, _ := c.Floor("f")
	if !slices.Equal(f.DeviceIDs, []string{"light.x"}) {
		t.Errorf("floor DeviceIDs = %v, want flattened without duplicates", f.DeviceIDs)
	}
	if x.Name() != "light.x" {
		t.Errorf("Name() = %q, want id fallback", x.Name())
	}
}

func TestCatalog_LookupLocation(t *testing.T) {
	inv := catalogtest.Inventory()
	// "attic" names both an area and a floor
	inv.Floors = append(inv.Floors, catalog.FloorRecord{ID: "attic_floor", Names: []string{"Attic"}})
	inv.Areas = append(inv.Areas, catalog.AreaRecord{ID: "attic_room", Names: []string{"attic"}, FloorID: "attic_floor"})
	inv.Devices = append(inv.Devices, catalog.DeviceRecord{ID: "light.attic", AreaIDs: []string{"attic_room"}})
	c := catalogtest.Build(t, inv)

	tests := []struct {
		name string
		want []string
	}{
		{"Lounge", []string{"living_room"}},
		{"downstairs", []string{"ground"}},
		{"ATTIC", []string{"attic_room", "attic_floor"}},
		{"garage", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.LookupLocation(tt.name); !slices.Equal(got, tt.want) {
				t.Errorf("LookupLocation(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestCatalog_AreaIDsFor(t *testing.T) {
	c := catalogtest.Catalog(t)

	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{"floor expands", []string{"ground"}, []string{"kitchen", "living_room"}},
		{"mixed floor and area", []string{"upstairs", "kitchen"}, []string{"kitchen", "landing"}},
		{"overlap deduplicated", []string{"ground", "kitchen"}, []string{"kitchen", "living_room"}},
		{"unknown dropped", []string{"garage"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.AreaIDsFor(tt.ids); !slices.Equal(got, tt.want) {
				t.Errorf("AreaIDsFor(%v) = %v, want %v", tt.ids, got, tt.want)
			}
		})
	}
}

func TestCatalog_Collisions(t *testing.T) {
	inv := catalog.Inventory{
		Areas: []catalog.AreaRecord{
			{ID: "study", Names: []string{"Office"}},
			{ID: "den", Names: []string{"office", "den"}},
		},
		Devices: []catalog.DeviceRecord{
			{ID: "light.a", Names: []string{"Desk Lamp"}, AreaIDs: []string{"study"}},
			{ID: "light.b", Names: []string{"desk lamp"}, AreaIDs: []string{"den"}},
		},
	}
	c := catalogtest.Build(t, inv)

	want := []catalog.Collision{
		{Kind: catalog.KindArea, Name: "office", KeptID: "study", DroppedID: "den"},
		{Kind: catalog.KindDevice, Name: "desk lamp", KeptID: "light.a", DroppedID: "light.b"},
	}
	if got := c.Collisions(); !slices.Equal(got, want) {
		t.Errorf("Collisions() = %+v, want %+v", got, want)
	}

	// Exactly one entry per name, still resolvable
	if got := c.LookupLocation("office"); !slices.Equal(got, []string{"study"}) {
		t.Errorf("LookupLocation(office) = %v, want [study]", got)
	}
	if got := c.LookupLocation("den"); !slices.Equal(got, []string{"den"}) {
		t.Errorf("LookupLocation(den) = %v, want [den]", got)
	}
}
