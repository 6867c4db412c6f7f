package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set at build time via -ldflags
var (
	GitCommit, Version string
)

func release() string {
	if Version == "" {
		return "dev"
	}

	return Version
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gelfship %s", release())
		if GitCommit != "" {
			fmt.Printf(" (%s)", GitCommit)
		}
		fmt.Println()
	},
}
