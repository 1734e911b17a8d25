// Package migrations embeds the SQL schema so the binary can migrate itself
// at startup without shipping loose files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
