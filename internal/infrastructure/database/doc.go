// Package database provides SQLite connectivity for the Gray Logic dialogue service.
//
// The database holds the inventory tables read by catalog.SQLiteSource, which
// either act as the primary inventory or cache the last snapshot loaded from
// Home Assistant.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS, "."); err != nil {
//	    log.Fatal(err)
//	}
//
// Migrations are additive-only, one YYYYMMDD_HHMMSS_name.up.sql file each.
package database
