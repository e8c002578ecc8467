// lisfy - LAN file server and terminal browser.
//
// Build with: go build -ldflags "-X main.Version=v0.3.1 -X main.BuildTime=$(date -u +%Y-%m-%d)" ./cmd/lisfy
package main

import (
	"os"

	"github.com/jmmpc/lisfy/internal/cli"
	"github.com/jmmpc/lisfy/internal/version"
)

// Set by ldflags; empty values keep the defaults in internal/version.
var (
	Version   string
	BuildTime string
)

func main() {
	if Version != "" {
		version.Version = Version
	}
	if BuildTime != "" {
		version.BuildTime = BuildTime
	}

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
