// Command plcctl reads and writes PLC addresses from the command line.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	target := &targetFlags{}

	rootCmd := &cobra.Command{
		Use:   "plcctl",
		Short: "Read and write PLC addresses",
		Long: `plcctl talks to Fatek, Panasonic, Allen-Bradley and Modbus TCP controllers.

The target is either a device of a configuration file (--config, --device) or
given directly (--vendor, --host, --port, --station, --slot).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	target.register(rootCmd)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newReadCmd(target))
	rootCmd.AddCommand(newWriteCmd(target))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "plcctl %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
