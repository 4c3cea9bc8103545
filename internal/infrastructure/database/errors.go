package database

import "errors"

var (
	// ErrNoPath is returned by Open when the configuration has no file path.
	ErrNoPath = errors.New("database: path is required")

	// ErrDuplicateVersion is returned when two migration files share a
	// version.
	ErrDuplicateVersion = errors.New("database: duplicate migration version")
)
