// gamedex synchronizes game libraries from Steam, Epic, GOG, and itch.io
// into a local catalog enriched with IGDB metadata.
package main

import (
	"github.com/gamedex/gamedex/cmd/gamedex/cmd"
)

// Version information set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cmd.Execute(version, commit, date)
}
