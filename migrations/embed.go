// Package migrations holds the versioned, forward-only schema migrations
// applied by db.Migrator before the server accepts traffic.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
