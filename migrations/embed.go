package migrations

import "embed"

// Files exposes the SQL migrations for every supported dialect, one
// directory per dialect.
//
//go:embed postgres/*.sql sqlite/*.sql
var Files embed.FS
