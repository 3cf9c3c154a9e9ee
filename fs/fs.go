// Package appfs holds the files shipped inside the binaries.
package appfs

import "embed"

//go:embed migrations all:assets
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "assets/templates/email"
)
