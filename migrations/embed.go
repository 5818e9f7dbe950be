// Package migrations embeds the audit database schema migrations so the
// server and the migrate CLI run without a migrations directory on disk.
package migrations

import "embed"

// FS holds the *.up.sql / *.down.sql pairs
//
//go:embed *.sql
var FS embed.FS
