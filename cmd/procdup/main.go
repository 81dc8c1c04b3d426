package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "procdup",
	Short: "procdup -- process duplication toolkit",
	Long: `procdup duplicates its own process under a set of scenarios and checks
what the original observes: exit codes, pids, non-blocking waits, kill and
repeated waits. It exits 1 when a scenario fails and 130 when interrupted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, errInterrupted) {
		return 130
	}
	return 1
}
