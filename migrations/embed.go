// Package migrations embeds the SQL migrations applied by db.Open.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
