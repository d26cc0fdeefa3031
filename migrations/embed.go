// Package migrations embeds the SQL migration files into the binary.
//
// Pass FS with dir "." to database.DB.Migrate.
package migrations

import "embed"

// FS holds every *.up.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
