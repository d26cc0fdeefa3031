package catalog_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/catalog/catalogtest"
	"github.com/nerrad567/gray-logic-dialogue/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-dialogue/migrations"
)

const inventoryYAML = `
floors:
  - id: ground
    names: [Ground Floor]
areas:
  - id: living_room
    names: [Living Room, lounge]
    floor_id: ground
devices:
  - id: light.lamp1
    names: [Lamp]
    domain: light
    attributes: [brightness]
    actions: [turn_on, turn_off]
    area_ids: [living_room]
`

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.yaml")
	if err := os.WriteFile(path, []byte(inventoryYAML), 0600); err != nil {
		t.Fatalf("writing inventory: %v", err)
	}

	inv, err := catalog.NewFileSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	c := catalogtest.Build(t, inv)

	if got := c.LookupLocation("lounge"); !slices.Equal(got, []string{"living_room"}) {
		t.Errorf("LookupLocation(lounge) = %v", got)
	}
	lamp, ok := c.Device("light.lamp1")
	if !ok || !slices.Equal(lamp.Actions, []string{"turn_on", "turn_off"}) {
		t.Errorf("Device(light.lamp1) = %+v, %v", lamp, ok)
	}
}

func TestFileSource_Errors(t *testing.T) {
	_, err := catalog.NewFileSource("/nonexistent/inventory.yaml").Load(context.Background())
	if !errors.Is(err, catalog.ErrSourceUnavailable) {
		t.Errorf("missing file error = %v, want ErrSourceUnavailable", err)
	}

	_, err = catalog.ParseYAML([]byte("devices: [unterminated"))
	if !errors.Is(err, catalog.ErrMalformedInventory) {
		t.Errorf("bad yaml error = %v, want ErrMalformedInventory", err)
	}
}

func TestYAMLRoundTripBuildsSameCatalog(t *testing.T) {
	data, err := catalog.MarshalYAML(catalogtest.Inventory())
	if err != nil {
		t.Fatalf("MarshalYAML() error = %v", err)
	}
	inv, err := catalog.ParseYAML(data)
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	if got, want := catalogtest.Build(t, inv).Stats().Devices, catalogtest.Catalog(t).Stats().Devices; got != want {
		t.Errorf("devices after round trip = %d, want %d", got, want)
	}
}

// setupTestDB opens an in-memory database with the inventory schema applied.
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(context.Background(), migrations.FS, "."); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func TestSQLiteSource_SaveLoad(t *testing.T) {
	db := setupTestDB(t)
	src := catalog.NewSQLiteSource(db.DB)
	ctx := context.Background()

	empty, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load() on empty tables error = %v", err)
	}
	if len(empty.Devices) != 0 {
		t.Errorf("empty Load() devices = %d", len(empty.Devices))
	}

	want := catalogtest.Inventory()
	if err := src.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Devices) != len(want.Devices) || len(got.Areas) != len(want.Areas) || len(got.Floors) != len(want.Floors) {
		t.Fatalf("Load() = %d devices %d areas %d floors", len(got.Devices), len(got.Areas), len(got.Floors))
	}
	for i, d := range got.Devices {
		w := want.Devices[i]
		if d.ID != w.ID || d.Domain != w.Domain {
			t.Errorf("device %d = %s/%s, want %s/%s (insertion order)", i, d.ID, d.Domain, w.ID, w.Domain)
		}
		if !slices.Equal(d.Names, w.Names) || !slices.Equal(d.Actions, w.Actions) ||
			!slices.Equal(d.Attributes, w.Attributes) || !slices.Equal(d.AreaIDs, w.AreaIDs) {
			t.Errorf("device %s = %+v, want %+v", d.ID, d, w)
		}
	}

	// Save replaces rather than appends
	small := catalog.Inventory{Devices: []catalog.DeviceRecord{{ID: "light.only", Domain: "light"}}}
	if err := src.Save(ctx, small); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	got, _ = src.Load(ctx)
	if len(got.Devices) != 1 || len(got.Areas) != 0 {
		t.Errorf("after replace: %d devices %d areas, want 1 and 0", len(got.Devices), len(got.Areas))
	}
}

func TestCachingSource(t *testing.T) {
	db := setupTestDB(t)
	cache := catalog.NewSQLiteSource(db.DB)
	primary := &switchableSource{inv: catalogtest.Inventory()}
	src := catalog.NewCachingSource(primary, cache)
	ctx := context.Background()

	if _, err := src.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	primary.set(catalog.Inventory{}, errors.New("home assistant unreachable"))
	inv, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("Load() with failing primary error = %v", err)
	}
	if len(inv.Devices) != len(catalogtest.Inventory().Devices) {
		t.Errorf("cached Load() devices = %d", len(inv.Devices))
	}

	// A malformed primary inventory is passed on but not cached
	primary.set(catalog.Inventory{Devices: []catalog.DeviceRecord{{}}}, nil)
	if _, err := src.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cached, _ := cache.Load(ctx)
	if len(cached.Devices) != len(catalogtest.Inventory().Devices) {
		t.Error("malformed inventory overwrote the cache")
	}
}

func TestCachingSource_NoSnapshot(t *testing.T) {
	db := setupTestDB(t)
	primary := &switchableSource{err: errors.New("offline")}
	src := catalog.NewCachingSource(primary, catalog.NewSQLiteSource(db.DB))

	_, err := src.Load(context.Background())
	if !errors.Is(err, catalog.ErrNoSnapshot) {
		t.Errorf("Load() error = %v, want ErrNoSnapshot", err)
	}
}
