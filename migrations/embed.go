// Package migrations holds the SQL schema migrations applied by cmd/migrate.
package migrations

import "embed"

// FS contains every *.sql migration in this directory.
//
//go:embed *.sql
var FS embed.FS
