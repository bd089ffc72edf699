// Package migrations embeds the SQL schema so binaries can migrate on boot.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
