package catalog

import "slices"

// Kind identifies the tier of the hierarchy an entry belongs to.
type Kind string

// Tiers of the floors > areas > devices hierarchy.
const (
	KindFloor  Kind = "floor"
	KindArea   Kind = "area"
	KindDevice Kind = "device"
)

// DeviceRecord is a device as delivered by an inventory source.
type DeviceRecord struct {
	ID         string   `json:"id" yaml:"id"`
	Names      []string `json:"names" yaml:"names"`
	Domain     string   `json:"domain" yaml:"domain"`
	Attributes []string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Actions    []string `json:"actions,omitempty" yaml:"actions,omitempty"`
	AreaIDs    []string `json:"area_ids,omitempty" yaml:"area_ids,omitempty"`
}

// AreaRecord is an area as delivered by an inventory source.
type AreaRecord struct {
	ID      string   `json:"id" yaml:"id"`
	Names   []string `json:"names" yaml:"names"`
	FloorID string   `json:"floor_id,omitempty" yaml:"floor_id,omitempty"`
}

// FloorRecord is a floor as delivered by an inventory source.
type FloorRecord struct {
	ID    string   `json:"id" yaml:"id"`
	Names []string `json:"names" yaml:"names"`
}

// Inventory is one complete snapshot from a Source.
type Inventory struct {
	Floors  []FloorRecord  `json:"floors,omitempty" yaml:"floors,omitempty"`
	Areas   []AreaRecord   `json:"areas,omitempty" yaml:"areas,omitempty"`
	Devices []DeviceRecord `json:"devices" yaml:"devices"`
}

// Device is a controllable endpoint in a built Catalog.
// Values returned by a Catalog are shared and must be treated as read-only.
type Device struct {
	ID     string   `json:"id"`
	Names  []string `json:"names"`
	Domain string   `json:"domain"`
	// Attributes are the adjustable parameters, e.g. brightness, volume_level.
	Attributes []string `json:"attributes"`
	// Actions are device-specific action names, e.g. turn_on, stop_cover.
	Actions []string `json:"actions"`
	AreaIDs []string `json:"area_ids"`
}

// Name returns the primary display name.
func (d *Device) Name() string {
	if len(d.Names) == 0 {
		return d.ID
	}
	return d.Names[0]
}

// HasAttribute reports whether the device exposes attr.
func (d *Device) HasAttribute(attr string) bool {
	return slices.Contains(d.Attributes, attr)
}

// Area is a named place holding devices, optionally on a floor.
type Area struct {
	ID        string   `json:"id"`
	Names     []string `json:"names"`
	FloorID   string   `json:"floor_id,omitempty"`
	DeviceIDs []string `json:"device_ids"`
}

// Name returns the primary display name.
func (a *Area) Name() string {
	if len(a.Names) == 0 {
		return a.ID
	}
	return a.Names[0]
}

// Floor groups areas. Its DeviceIDs are the union of its areas' devices.
type Floor struct {
	ID        string   `json:"id"`
	Names     []string `json:"names"`
	AreaIDs   []string `json:"area_ids"`
	DeviceIDs []string `json:"device_ids"`
}

// Name returns the primary display name.
func (f *Floor) Name() string {
	if len(f.Names) == 0 {
		return f.ID
	}
	return f.Names[0]
}

// AnomalyKind classifies a non-fatal problem found while building a Catalog.
type AnomalyKind string

// Anomaly kinds.
const (
	AnomalyUnknownArea  AnomalyKind = "unknown_area"
	AnomalyUnknownFloor AnomalyKind = "unknown_floor"
	AnomalyDuplicateID  AnomalyKind = "duplicate_id"
)

// Anomaly records a reference or record the builder had to drop.
type Anomaly struct {
	Kind AnomalyKind `json:"kind"`
	// Tier is the kind of record the anomaly was found on.
	Tier Kind `json:"tier"`
	// ID is the record carrying the bad reference (or the duplicated id).
	ID string `json:"id"`
	// Ref is the missing area or floor id, empty for duplicates.
	Ref string `json:"ref,omitempty"`
}
