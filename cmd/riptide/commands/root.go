// Package commands wires the riptide CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "riptide",
	Short: "Riptide - network vulnerability scan executor",
	Long: `Riptide runs vulnerability detection plugins against a single target.
Plugins live in out-of-process plugin servers that riptide spawns locally
or dials at a configured address.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Riptide CLI. Use --help for available commands.")
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (YAML)")
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

// exitCode carries the scan outcome out of the command tree. 0 unless a
// run finished FAILED or errored.
var exitCode int
