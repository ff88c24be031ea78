package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrations returns the embedded migration files rooted at the directory
// golang-migrate expects.
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic("migrations directory missing from embedded FS: " + err.Error())
	}
	return sub
}
