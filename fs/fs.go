// Package appfs holds the files embedded in the binaries: migrations, email templates and assets.
package appfs

import "embed"

//go:embed migrations all:templates assets
var FS embed.FS

// MigrationsDir returns the goose migrations directory for the given database engine.
func MigrationsDir(engine string) string {
	return "migrations/" + engine
}
