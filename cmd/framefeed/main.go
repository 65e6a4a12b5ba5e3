// Framefeed - pull photos from local-network shares into cached albums.
package main

import (
	"os"

	"github.com/framefeed/framefeed/internal/cli"
	"github.com/framefeed/framefeed/internal/version"
)

// Version information
var (
	Version   = "v0.3.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
