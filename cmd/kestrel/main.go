// Kestrel: guest execution environment for an AArch64 binary-translation core.
//
// This is the driver entry point. It loads a program image into a fresh
// guest environment, hands the environment to the reference execution
// core, and inspects the outcome: final registers, tick consumption, the
// self-modification flag, and the interrupt log. Outcomes can be recorded
// into a run log database for comparison across runs.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version information.
var (
	Version   = "0.1.0"
	GitCommit = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Guest execution harness for an AArch64 binary-translation core.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := log.ParseLevel(getString(cmd, "log-level"))
		if err != nil {
			log.Fatalf("invalid log level: %v", err)
		}
		log.SetLevel(level)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("db", "kestrel.db", "Path to the run log database")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("kestrel %s (%s)\n", Version, GitCommit)
	},
}

// getString reads a string flag, panicking on misconfiguration.
func getString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		log.Fatalf("flag %q: %v", name, err)
	}
	return v
}

// getUint64 reads a uint64 flag, panicking on misconfiguration.
func getUint64(cmd *cobra.Command, name string) uint64 {
	v, err := cmd.Flags().GetUint64(name)
	if err != nil {
		log.Fatalf("flag %q: %v", name, err)
	}
	return v
}

// getBool reads a bool flag, panicking on misconfiguration.
func getBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		log.Fatalf("flag %q: %v", name, err)
	}
	return v
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
