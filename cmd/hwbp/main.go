package main

import (
	"os"

	"github.com/go-delve/hwbreak/cmd/hwbp/cmds"
	"github.com/go-delve/hwbreak/pkg/config"
	"github.com/go-delve/hwbreak/pkg/version"
)

// Build is the git sha of this binaries build.
var Build string

func main() {
	if Build != "" {
		version.HWBPVersion.Build = Build
	}
	if err := cmds.New(config.LoadConfig()).Execute(); err != nil {
		os.Exit(1)
	}
}
