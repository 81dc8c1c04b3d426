package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/kahiteam/procdup/fork"
	"github.com/kahiteam/procdup/internal/config"
	"github.com/kahiteam/procdup/internal/logging"
	"github.com/kahiteam/procdup/internal/metrics"
	"github.com/kahiteam/procdup/internal/probe"
	"github.com/kahiteam/procdup/internal/version"
	"github.com/spf13/cobra"
)

var (
	probeConfig      string
	probeScenarios   []string
	probeMetricsFile string
	probeLogLevel    string
	probeLogFormat   string
)

// errInterrupted is returned when SIGINT stops the probe between scenarios.
var errInterrupted = errors.New("probe interrupted")

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Fork this process under each scenario and check the results",
	Long: `probe forks procdup once per scenario and checks what the original process
observes: exit codes, pids, try_wait polling, kill and repeated waits.

Scenarios come from the config file (-c, $PROCDUP_CONFIG, ./procdup.toml,
/etc/procdup/procdup.toml). Without one, the built-in scenarios run.`,
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().StringVarP(&probeConfig, "config", "c", "", "config file path")
	probeCmd.Flags().StringSliceVarP(&probeScenarios, "scenario", "s", nil, "run only these scenarios (repeatable)")
	probeCmd.Flags().StringVar(&probeMetricsFile, "metrics-file", "", "write Prometheus metrics to this file")
	probeCmd.Flags().StringVar(&probeLogLevel, "log-level", "", "override probe.log_level")
	probeCmd.Flags().StringVar(&probeLogFormat, "log-format", "", "override probe.log_format")
	rootCmd.AddCommand(probeCmd)
}

func loadProbeConfig() (*config.Config, []string, error) {
	path, err := config.Resolve(probeConfig)
	if errors.Is(err, config.ErrNoConfig) {
		return config.Default(), nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return config.Load(path)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, warnings, err := loadProbeConfig()
	if err != nil {
		return err
	}
	if probeLogLevel != "" {
		cfg.Probe.LogLevel = probeLogLevel
	}
	if probeLogFormat != "" {
		cfg.Probe.LogFormat = probeLogFormat
	}
	if probeMetricsFile != "" {
		cfg.Probe.MetricsFile = probeMetricsFile
	}

	logger := logging.New(logging.LogConfig{
		Level:  cfg.Probe.LogLevel,
		Format: cfg.Probe.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	for _, w := range warnings {
		logger.Warn(w)
	}
	fork.SetLogger(logger)

	scenarios, err := cfg.Select(probeScenarios...)
	if err != nil {
		return err
	}

	m := metrics.New()
	m.SetBuildInfo(version.Version, version.Go(), version.Platform())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger.Info("probe starting", "scenarios", len(scenarios), "platform", version.Platform())
	report := probe.NewRunner(logger, m, cfg.Probe).Run(ctx, scenarios)

	if err := printReport(cmd.OutOrStdout(), report); err != nil {
		return err
	}

	if cfg.Probe.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.Probe.MetricsFile); err != nil {
			return fmt.Errorf("cannot write metrics: %w", err)
		}
		logger.Debug("metrics written", "path", cfg.Probe.MetricsFile)
	}

	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d of %d scenarios failed", n, len(report.Results))
	}
	if len(report.Results) < len(scenarios) {
		return fmt.Errorf("%w after %d of %d scenarios", errInterrupted, len(report.Results), len(scenarios))
	}
	return nil
}

func printReport(w io.Writer, report probe.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RESULT\tSCENARIO\tKIND\tPID\tSTATUS\tTIME\tERROR")
	for _, res := range report.Results {
		result, msg := "PASS", ""
		if !res.Passed {
			result, msg = "FAIL", res.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			result, res.Scenario, res.Kind, res.Pid, res.Status, res.Duration.Round(time.Millisecond), msg)
	}
	return tw.Flush()
}
