package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StaticSource serves a fixed inventory. Tests and the one-shot CLI use it.
type StaticSource struct {
	Inventory Inventory
}

// Load returns the fixed inventory.
func (s StaticSource) Load(context.Context) (Inventory, error) {
	return s.Inventory, nil
}

// FileSource reads an inventory from a YAML file on every Load, so edits to
// the file are picked up by the next reload.
//
// File layout:
//
//	floors:
//	  - id: ground
//	    names: [ground floor, downstairs]
//	areas:
//	  - id: living_room
//	    names: [living room, lounge]
//	    floor_id: ground
//	devices:
//	  - id: light.lamp
//	    names: [lamp]
//	    domain: light
//	    attributes: [brightness]
//	    actions: [turn_on, turn_off]
//	    area_ids: [living_room]
type FileSource struct {
	Path string
}

// NewFileSource creates a source for the YAML file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads and parses the file.
func (s *FileSource) Load(ctx context.Context) (Inventory, error) {
	if err := ctx.Err(); err != nil {
		return Inventory{}, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return Inventory{}, fmt.Errorf("%w: reading %s: %w", ErrSourceUnavailable, s.Path, err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes an inventory document.
func ParseYAML(data []byte) (Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return Inventory{}, fmt.Errorf("%w: parsing inventory yaml: %w", ErrMalformedInventory, err)
	}
	return inv, nil
}

// MarshalYAML encodes an inventory in the FileSource layout.
func MarshalYAML(inv Inventory) ([]byte, error) {
	data, err := yaml.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("encoding inventory yaml: %w", err)
	}
	return data, nil
}

// Snapshotter persists inventories; SQLiteSource implements it.
type Snapshotter interface {
	Source
	Save(ctx context.Context, inv Inventory) error
}

// CachingSource loads from Primary and mirrors every successful load into
// Cache. When Primary fails the last cached inventory is served instead.
type CachingSource struct {
	Primary Source
	Cache   Snapshotter
	logger  Logger
}

// NewCachingSource wraps primary with a snapshot cache.
func NewCachingSource(primary Source, cache Snapshotter) *CachingSource {
	return &CachingSource{Primary: primary, Cache: cache, logger: noopLogger{}}
}

// SetLogger sets the logger for the source.
func (s *CachingSource) SetLogger(logger Logger) {
	s.logger = logger
}

// Load tries the primary source first.
func (s *CachingSource) Load(ctx context.Context) (Inventory, error) {
	inv, err := s.Primary.Load(ctx)
	if err == nil {
		// Only cache inventories that would build; a malformed one must not
		// replace a good fallback.
		if _, buildErr := Build(inv); buildErr != nil {
			return inv, nil
		}
		if saveErr := s.Cache.Save(ctx, inv); saveErr != nil {
			s.logger.Warn("caching inventory snapshot failed", "error", saveErr)
		}
		return inv, nil
	}

	cached, cacheErr := s.Cache.Load(ctx)
	if cacheErr != nil {
		return Inventory{}, errors.Join(err, cacheErr)
	}
	if len(cached.Devices) == 0 && len(cached.Areas) == 0 && len(cached.Floors) == 0 {
		return Inventory{}, errors.Join(err, ErrNoSnapshot)
	}
	s.logger.Warn("primary inventory source failed, serving cached snapshot", "error", err)
	return cached, nil
}
