// Package relayd is the "relayd" binary: a cobra-driven CLI that loads a
// Configuration, wires the protocol core to a reference transport/tcp
// listener and an administrative HTTP surface, and runs until signalled to
// drain and stop. Structured the way the teacher's registry binary splits
// a library package (cobra commands, a Registry runtime type) from a thin
// cmd/registry/main.go.
package relayd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ambercast/relay/version"
)

var showVersion bool

func init() {
	RootCmd.AddCommand(ServeCmd)
	RootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "show the version and exit")
}

// RootCmd is the main command for the "relayd" binary.
var RootCmd = &cobra.Command{
	Use:   "relayd",
	Short: "`relayd` relays namespaced, room-addressable events over a transport connection",
	Long:  "`relayd` relays namespaced, room-addressable events over a transport connection",
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			version.PrintVersion()
			return
		}
		// nolint:errcheck
		cmd.Usage()
	},
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
