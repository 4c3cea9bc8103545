// Package migrations embeds the SQL schema for the SimLock audit store.
package migrations

import "embed"

// FS holds every *.sql file in this directory at its root, ready for
// (*database.DB).Migrate.
//
//go:embed *.sql
var FS embed.FS
