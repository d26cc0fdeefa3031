package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteSource reads and writes the inventory tables created by the
// inventory migration.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLiteSource creates a source over db. The schema must already exist.
func NewSQLiteSource(db *sql.DB) *SQLiteSource {
	return &SQLiteSource{db: db}
}

// Load reads the stored inventory. Rows come back in insertion order so the
// name ownership of the original import is preserved.
func (s *SQLiteSource) Load(ctx context.Context) (Inventory, error) {
	names, err := s.loadNames(ctx)
	if err != nil {
		return Inventory{}, err
	}

	var inv Inventory

	floorIDs, err := s.queryStrings(ctx, "SELECT id FROM inventory_floors ORDER BY rowid")
	if err != nil {
		return Inventory{}, err
	}
	for _, id := range floorIDs {
		inv.Floors = append(inv.Floors, FloorRecord{ID: id, Names: names[nameKey{KindFloor, id}]})
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, COALESCE(floor_id, '') FROM inventory_areas ORDER BY rowid")
	if err != nil {
		return Inventory{}, fmt.Errorf("%w: querying areas: %w", ErrSourceUnavailable, err)
	}
	for rows.Next() {
		var a AreaRecord
		if err := rows.Scan(&a.ID, &a.FloorID); err != nil {
			rows.Close()
			return Inventory{}, fmt.Errorf("scanning area: %w", err)
		}
		a.Names = names[nameKey{KindArea, a.ID}]
		inv.Areas = append(inv.Areas, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Inventory{}, fmt.Errorf("iterating areas: %w", err)
	}

	attrs, err := s.loadDeviceLists(ctx, "SELECT device_id, attribute FROM inventory_device_attributes ORDER BY rowid")
	if err != nil {
		return Inventory{}, err
	}
	actions, err := s.loadDeviceLists(ctx, "SELECT device_id, action FROM inventory_device_actions ORDER BY rowid")
	if err != nil {
		return Inventory{}, err
	}
	areas, err := s.loadDeviceLists(ctx, "SELECT device_id, area_id FROM inventory_device_areas ORDER BY rowid")
	if err != nil {
		return Inventory{}, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT id, domain FROM inventory_devices ORDER BY rowid")
	if err != nil {
		return Inventory{}, fmt.Errorf("%w: querying devices: %w", ErrSourceUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var d DeviceRecord
		if err := rows.Scan(&d.ID, &d.Domain); err != nil {
			return Inventory{}, fmt.Errorf("scanning device: %w", err)
		}
		d.Names = names[nameKey{KindDevice, d.ID}]
		d.Attributes = attrs[d.ID]
		d.Actions = actions[d.ID]
		d.AreaIDs = areas[d.ID]
		inv.Devices = append(inv.Devices, d)
	}
	if err := rows.Err(); err != nil {
		return Inventory{}, fmt.Errorf("iterating devices: %w", err)
	}

	return inv, nil
}

type nameKey struct {
	kind Kind
	id   string
}

func (s *SQLiteSource) loadNames(ctx context.Context) (map[nameKey][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT owner_kind, owner_id, name FROM inventory_names ORDER BY owner_kind, owner_id, position")
	if err != nil {
		return nil, fmt.Errorf("%w: querying names: %w", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	names := make(map[nameKey][]string)
	for rows.Next() {
		var kind, id, name string
		if err := rows.Scan(&kind, &id, &name); err != nil {
			return nil, fmt.Errorf("scanning name: %w", err)
		}
		k := nameKey{Kind(kind), id}
		names[k] = append(names[k], name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating names: %w", err)
	}
	return names, nil
}

func (s *SQLiteSource) loadDeviceLists(ctx context.Context, query string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var id, value string
		if err := rows.Scan(&id, &value); err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		out[id] = append(out[id], value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteSource) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return out, nil
}

// Save replaces the stored inventory in one transaction. Duplicate ids keep
// their first record, mirroring Build.
func (s *SQLiteSource) Save(ctx context.Context, inv Inventory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, table := range []string{
		"inventory_device_areas",
		"inventory_device_actions",
		"inventory_device_attributes",
		"inventory_names",
		"inventory_devices",
		"inventory_areas",
		"inventory_floors",
	} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	w := &txWriter{ctx: ctx, tx: tx}

	for _, f := range inv.Floors {
		if w.exec("INSERT OR IGNORE INTO inventory_floors (id, updated_at) VALUES (?, ?)", f.ID, now) {
			w.names(KindFloor, f.ID, f.Names)
		}
	}
	for _, a := range inv.Areas {
		var floorID any
		if a.FloorID != "" {
			floorID = a.FloorID
		}
		if w.exec("INSERT OR IGNORE INTO inventory_areas (id, floor_id, updated_at) VALUES (?, ?, ?)", a.ID, floorID, now) {
			w.names(KindArea, a.ID, a.Names)
		}
	}
	for _, d := range inv.Devices {
		if !w.exec("INSERT OR IGNORE INTO inventory_devices (id, domain, updated_at) VALUES (?, ?, ?)", d.ID, d.Domain, now) {
			continue
		}
		w.names(KindDevice, d.ID, d.Names)
		for _, attr := range d.Attributes {
			w.exec("INSERT OR IGNORE INTO inventory_device_attributes (device_id, attribute) VALUES (?, ?)", d.ID, attr)
		}
		for _, action := range d.Actions {
			w.exec("INSERT OR IGNORE INTO inventory_device_actions (device_id, action) VALUES (?, ?)", d.ID, action)
		}
		for _, areaID := range d.AreaIDs {
			w.exec("INSERT OR IGNORE INTO inventory_device_areas (device_id, area_id) VALUES (?, ?)", d.ID, areaID)
		}
	}
	if w.err != nil {
		return w.err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing inventory: %w", err)
	}
	return nil
}

// txWriter remembers the first failed statement so Save can issue a long
// run of inserts without checking each one.
type txWriter struct {
	ctx context.Context
	tx  *sql.Tx
	err error
}

// exec runs one statement and reports whether it inserted a row.
func (w *txWriter) exec(query string, args ...any) bool {
	if w.err != nil {
		return false
	}
	res, err := w.tx.ExecContext(w.ctx, query, args...)
	if err != nil {
		w.err = fmt.Errorf("writing inventory: %w", err)
		return false
	}
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

func (w *txWriter) names(kind Kind, id string, names []string) {
	for i, name := range names {
		w.exec("INSERT OR IGNORE INTO inventory_names (owner_kind, owner_id, position, name) VALUES (?, ?, ?, ?)",
			string(kind), id, i, name)
	}
}
