package main

import (
	"fmt"
	"runtime"

	zmq "github.com/pebbe/zmq4"
	"github.com/spf13/cobra"
)

// Set at build time.
var (
	version = "dev"
	commit  = "none"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			major, minor, patch := zmq.Version()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "oestream %s (%s)\n", version, commit)
			fmt.Fprintf(out, "libzmq %d.%d.%d\n", major, minor, patch)
			fmt.Fprintf(out, "%s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
