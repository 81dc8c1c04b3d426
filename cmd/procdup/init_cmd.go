package main

import (
	"fmt"
	"os"

	"github.com/kahiteam/procdup/internal/config"
	"github.com/spf13/cobra"
)

var initOutput string
var initStdout bool
var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a sample procdup.toml config file",
	Long: `init writes a commented procdup.toml with one scenario of each kind:

  exit        the duplicate exits with exit_code; wait must return it
  pid         the duplicate sends its pid over a pipe; it must match Pid()
  try-wait    try_wait must be empty until the duplicate exits after delay
  kill        kill must stop a long-running duplicate promptly
  wait-twice  two waits must return the same status
  run         a closure runs in the duplicate; success exits 0

Edit exit_code, delay, settle and expect to tune each scenario, then run
"procdup probe".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		content := config.DefaultConfigTOML
		sample, _, err := config.LoadBytes([]byte(content), "sample config")
		if err != nil {
			return err
		}

		if initStdout {
			_, err = fmt.Fprint(cmd.OutOrStdout(), content)
			return err
		}

		outPath := initOutput
		if outPath == "" {
			outPath = "procdup.toml"
		}

		if !initForce {
			if _, err := os.Stat(outPath); err == nil {
				return fmt.Errorf("file %s already exists; use --force to overwrite", outPath)
			}
		}

		if err := os.WriteFile(outPath, []byte(content), 0644); err != nil {
			return fmt.Errorf("cannot write config: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s with %d scenarios\n", outPath, len(sample.Scenarios))
		return err
	},
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "", "write config to file (default: procdup.toml)")
	initCmd.Flags().BoolVar(&initStdout, "stdout", false, "print config to stdout instead of writing a file")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing file")
	rootCmd.AddCommand(initCmd)
}
