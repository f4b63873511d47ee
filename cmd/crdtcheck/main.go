// Command crdtcheck runs the bundled reference applications through the
// exploration harness and reports any property violations it discovers.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crdtcheck",
	Short: "Model-check replicated CRDT applications for convergence bugs",
	Long: "crdtcheck explores the reachable state space of a small replicated\n" +
		"application built on a CRDT document, checking convergence and\n" +
		"consistency properties at every state it visits.",
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(versionCmd)
}

var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the crdtcheck version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
