package catalog

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Catalog is an immutable snapshot of the device hierarchy.
//
// Thread Safety:
//   - A built Catalog is never mutated and may be shared freely between goroutines.
type Catalog struct {
	devices map[string]*Device
	areas   map[string]*Area
	floors  map[string]*Floor

	deviceIDs  []string
	areaIDs    []string
	floorIDs   []string
	unassigned []string

	deviceNames *NameIndex
	areaNames   *NameIndex
	floorNames  *NameIndex

	anomalies []Anomaly
	builtAt   time.Time
}

// Empty returns a catalog with no entries. A Store publishes it until the
// first successful load.
func Empty() *Catalog {
	c, _ := Build(Inventory{}) //nolint:errcheck // an empty inventory cannot be malformed
	return c
}

// Build derives a Catalog from an inventory snapshot in a single pass.
//
// A record without an id fails the whole build with ErrMalformedInventory.
// Dangling area or floor references and duplicate ids are dropped and
// reported as anomalies.
func Build(inv Inventory) (*Catalog, error) {
	if err := checkIDs(inv); err != nil {
		return nil, err
	}

	c := &Catalog{
		devices: make(map[string]*Device, len(inv.Devices)),
		areas:   make(map[string]*Area),
		floors:  make(map[string]*Floor),
		builtAt: time.Now().UTC(),
	}

	floorRecs := make(map[string]FloorRecord, len(inv.Floors))
	for _, f := range inv.Floors {
		id := strings.TrimSpace(f.ID)
		if _, dup := floorRecs[id]; dup {
			c.anomaly(AnomalyDuplicateID, KindFloor, id, "")
			continue
		}
		floorRecs[id] = f
	}

	areaRecs := make(map[string]AreaRecord, len(inv.Areas))
	var areaOrder []string
	for _, a := range inv.Areas {
		id := strings.TrimSpace(a.ID)
		if _, dup := areaRecs[id]; dup {
			c.anomaly(AnomalyDuplicateID, KindArea, id, "")
			continue
		}
		areaRecs[id] = a
		areaOrder = append(areaOrder, id)
	}

	// Devices, in inventory order so name ownership follows it.
	var deviceNamed []Named
	for _, rec := range inv.Devices {
		id := strings.TrimSpace(rec.ID)
		if _, dup := c.devices[id]; dup {
			c.anomaly(AnomalyDuplicateID, KindDevice, id, "")
			continue
		}

		d := &Device{
			ID:         id,
			Names:      normaliseAll(rec.Names),
			Domain:     normalise(rec.Domain),
			Attributes: normaliseAll(rec.Attributes),
			Actions:    normaliseAll(rec.Actions),
		}
		if len(d.Names) == 0 {
			d.Names = []string{strings.ToLower(id)}
		}
		if d.Domain == "" {
			// entity ids of the form "light.kitchen" carry their domain
			if domain, _, ok := strings.Cut(id, "."); ok {
				d.Domain = strings.ToLower(domain)
			}
		}

		for _, ref := range uniqueTrimmed(rec.AreaIDs) {
			ar, known := areaRecs[ref]
			if !known {
				c.anomaly(AnomalyUnknownArea, KindDevice, id, ref)
				continue
			}
			area := c.areas[ref]
			if area == nil {
				area = &Area{ID: ref, Names: normaliseAll(ar.Names)}
				if len(area.Names) == 0 {
					area.Names = []string{strings.ToLower(ref)}
				}
				c.areas[ref] = area
			}
			area.DeviceIDs = append(area.DeviceIDs, id)
			d.AreaIDs = append(d.AreaIDs, ref)
		}
		if len(d.AreaIDs) == 0 {
			c.unassigned = append(c.unassigned, id)
		}

		c.devices[id] = d
		c.deviceIDs = append(c.deviceIDs, id)
		deviceNamed = append(deviceNamed, Named{ID: id, Names: d.Names})
	}

	// Areas that hold devices, attached to their floors.
	var areaNamed []Named
	for _, id := range areaOrder {
		area, used := c.areas[id]
		if !used {
			continue
		}
		floorID := strings.TrimSpace(areaRecs[id].FloorID)
		if floorID != "" {
			fr, known := floorRecs[floorID]
			if !known {
				c.anomaly(AnomalyUnknownFloor, KindArea, id, floorID)
			} else {
				floor := c.floors[floorID]
				if floor == nil {
					floor = &Floor{ID: floorID, Names: normaliseAll(fr.Names)}
					if len(floor.Names) == 0 {
						floor.Names = []string{strings.ToLower(floorID)}
					}
					c.floors[floorID] = floor
				}
				area.FloorID = floorID
				floor.AreaIDs = append(floor.AreaIDs, id)
			}
		}
		c.areaIDs = append(c.areaIDs, id)
		areaNamed = append(areaNamed, Named{ID: id, Names: area.Names})
	}

	var floorNamed []Named
	for _, f := range inv.Floors {
		id := strings.TrimSpace(f.ID)
		floor, used := c.floors[id]
		if !used || floor.DeviceIDs != nil {
			continue
		}
		floor.DeviceIDs = []string{}
		seen := make(map[string]bool)
		for _, areaID := range floor.AreaIDs {
			for _, devID := range c.areas[areaID].DeviceIDs {
				if !seen[devID] {
					seen[devID] = true
					floor.DeviceIDs = append(floor.DeviceIDs, devID)
				}
			}
		}
		sort.Strings(floor.DeviceIDs)
		sort.Strings(floor.AreaIDs)
		c.floorIDs = append(c.floorIDs, id)
		floorNamed = append(floorNamed, Named{ID: id, Names: floor.Names})
	}

	for _, area := range c.areas {
		sort.Strings(area.DeviceIDs)
	}
	sort.Strings(c.deviceIDs)
	sort.Strings(c.areaIDs)
	sort.Strings(c.floorIDs)
	sort.Strings(c.unassigned)

	c.deviceNames = NewNameIndex(KindDevice, deviceNamed)
	c.areaNames = NewNameIndex(KindArea, areaNamed)
	c.floorNames = NewNameIndex(KindFloor, floorNamed)

	return c, nil
}

func checkIDs(inv Inventory) error {
	for i, f := range inv.Floors {
		if strings.TrimSpace(f.ID) == "" {
			return fmt.Errorf("%w: floor record %d has no id", ErrMalformedInventory, i)
		}
	}
	for i, a := range inv.Areas {
		if strings.TrimSpace(a.ID) == "" {
			return fmt.Errorf("%w: area record %d has no id", ErrMalformedInventory, i)
		}
	}
	for i, d := range inv.Devices {
		if strings.TrimSpace(d.ID) == "" {
			return fmt.Errorf("%w: device record %d has no id", ErrMalformedInventory, i)
		}
	}
	return nil
}

func uniqueTrimmed(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func (c *Catalog) anomaly(kind AnomalyKind, tier Kind, id, ref string) {
	c.anomalies = append(c.anomalies, Anomaly{Kind: kind, Tier: tier, ID: id, Ref: ref})
}

// Device returns the device with the given id.
func (c *Catalog) Device(id string) (*Device, bool) {
	d, ok := c.devices[id]
	return d, ok
}

// Area returns the area with the given id.
func (c *Catalog) Area(id string) (*Area, bool) {
	a, ok := c.areas[id]
	return a, ok
}

// Floor returns the floor with the given id.
func (c *Catalog) Floor(id string) (*Floor, bool) {
	f, ok := c.floors[id]
	return f, ok
}

// Devices returns all devices ordered by id.
func (c *Catalog) Devices() []*Device {
	out := make([]*Device, 0, len(c.deviceIDs))
	for _, id := range c.deviceIDs {
		out = append(out, c.devices[id])
	}
	return out
}

// Areas returns all areas ordered by id.
func (c *Catalog) Areas() []*Area {
	out := make([]*Area, 0, len(c.areaIDs))
	for _, id := range c.areaIDs {
		out = append(out, c.areas[id])
	}
	return out
}

// Floors returns all floors ordered by id.
func (c *Catalog) Floors() []*Floor {
	out := make([]*Floor, 0, len(c.floorIDs))
	for _, id := range c.floorIDs {
		out = append(out, c.floors[id])
	}
	return out
}

// AreaIDs returns every area id, sorted.
func (c *Catalog) AreaIDs() []string {
	return append([]string(nil), c.areaIDs...)
}

// UnassignedDeviceIDs returns the devices that belong to no area.
func (c *Catalog) UnassignedDeviceIDs() []string {
	return append([]string(nil), c.unassigned...)
}

// LookupDevice resolves a device name to its id.
func (c *Catalog) LookupDevice(name string) (string, bool) {
	return c.deviceNames.Lookup(name)
}

// LookupLocation resolves a place name. An area match comes first, then a
// floor match; a name used by both returns both ids. Nil means unknown.
func (c *Catalog) LookupLocation(name string) []string {
	var ids []string
	if id, ok := c.areaNames.Lookup(name); ok {
		ids = append(ids, id)
	}
	if id, ok := c.floorNames.Lookup(name); ok {
		ids = append(ids, id)
	}
	return ids
}

// IsLocationID reports whether id names an area or a floor.
func (c *Catalog) IsLocationID(id string) bool {
	_, area := c.areas[id]
	_, floor := c.floors[id]
	return area || floor
}

// AreaIDsFor expands floor ids into their member areas and passes area ids
// through. Unknown ids are dropped. The result is sorted and unique.
func (c *Catalog) AreaIDsFor(ids []string) []string {
	set := make(map[string]bool)
	for _, id := range ids {
		if _, ok := c.areas[id]; ok {
			set[id] = true
		}
		if f, ok := c.floors[id]; ok {
			for _, areaID := range f.AreaIDs {
				set[areaID] = true
			}
		}
	}
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LocationName returns the primary name of an area or floor id, or the id
// itself when it is unknown.
func (c *Catalog) LocationName(id string) string {
	if a, ok := c.areas[id]; ok {
		return a.Name()
	}
	if f, ok := c.floors[id]; ok {
		return f.Name()
	}
	return id
}

// DeviceName returns the primary name of a device id, or the id itself.
func (c *Catalog) DeviceName(id string) string {
	if d, ok := c.devices[id]; ok {
		return d.Name()
	}
	return id
}

// Anomalies returns the references dropped while building.
func (c *Catalog) Anomalies() []Anomaly {
	return c.anomalies
}

// Collisions returns name clashes across all three tiers.
func (c *Catalog) Collisions() []Collision {
	var out []Collision
	out = append(out, c.floorNames.Collisions()...)
	out = append(out, c.areaNames.Collisions()...)
	out = append(out, c.deviceNames.Collisions()...)
	return out
}

// Stats summarises a snapshot.
type Stats struct {
	Devices    int       `json:"devices"`
	Areas      int       `json:"areas"`
	Floors     int       `json:"floors"`
	Anomalies  int       `json:"anomalies"`
	Collisions int       `json:"collisions"`
	BuiltAt    time.Time `json:"built_at"`
}

// Stats returns counts for the snapshot.
func (c *Catalog) Stats() Stats {
	return Stats{
		Devices:    len(c.devices),
		Areas:      len(c.areas),
		Floors:     len(c.floors),
		Anomalies:  len(c.anomalies),
		Collisions: len(c.Collisions()),
		BuiltAt:    c.builtAt,
	}
}
