// Package postgres embeds the SQL migrations applied at startup.
package postgres

import "embed"

//go:embed *.sql
var FS embed.FS
