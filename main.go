package main

import (
	"fmt"
	"os"

	"github.com/rdmcfg/rdm/cmd"
	"github.com/rdmcfg/rdm/rdmerr"
	"github.com/rdmcfg/rdm/report"
)

// Version information set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, date)
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, rdmerr.Render(err, report.TerminalWidth(os.Stderr)))
		os.Exit(1)
	}
}
