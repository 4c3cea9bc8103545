// Package database provides the SQLite store behind the SimLock action
// audit log.
//
// The store is optional. When enabled, every finished or cancelled action
// is appended to the action_log table so operators can see who asked the
// lock to do what, and when. Lock state itself is never persisted; the
// device always boots locked with an empty user table.
//
// Schema changes are forward-only .up.sql files named
// YYYYMMDD_HHMMSS_description, read from any fs.FS (normally the embedded
// migrations package). Each migration runs in its own transaction and is
// recorded in schema_migrations; GetMigrationStatus reports the applied
// schema version.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
