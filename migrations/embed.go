// Package migrations embeds the goose migration files for the local
// SQLite cache and the remote PostgreSQL mirror.
package migrations

import "embed"

// LocalFS holds the SQLite migrations under local/.
//
//go:embed local/*.sql
var LocalFS embed.FS

// RemoteFS holds the PostgreSQL migrations under remote/.
//
//go:embed remote/*.sql
var RemoteFS embed.FS

// Directory names inside the embedded filesystems.
const (
	LocalDir  = "local"
	RemoteDir = "remote"
)
