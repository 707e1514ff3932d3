// Package migrations embeds the goose SQL migrations that define the
// task ledger schema.
package migrations

import "embed"

// FS holds the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS
