// Package migrations embeds the goose SQL migrations for the kv_store
// schema so the binary can migrate the database on startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
