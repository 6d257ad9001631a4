// Package appfs embeds the files the binaries need at runtime: SQL migrations, email templates & the common passwords list.
package appfs

import "embed"

//go:embed migrations/*.sql templates/email/* assets/*.txt
var FS embed.FS
