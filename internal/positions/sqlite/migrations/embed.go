package migrations

import "embed"

// FS contains embedded SQLite migrations for position storage.
//
//go:embed *.sql
var FS embed.FS
