// Package probe checks the fork primitive on the running platform by
// forking this process once per scenario and verifying what the original
// observes.
package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/kahiteam/procdup/internal/config"
	"github.com/kahiteam/procdup/internal/metrics"
)

// killTimeout bounds how long Wait may take after Kill before the scenario
// is failed.
const killTimeout = 10 * time.Second

// Result is the outcome of one scenario.
type Result struct {
	Scenario string
	Kind     string
	Passed   bool
	Err      error
	Pid      int
	Status   int
	Duration time.Duration
}

// Report collects the results of a run in scenario order.
type Report struct {
	Results []Result
}

// Failed returns the number of scenarios that did not pass.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.Passed {
			n++
		}
	}
	return n
}

// Runner executes scenarios. Metrics must not be nil.
type Runner struct {
	Logger       *slog.Logger
	Metrics      *metrics.Collector
	PollInterval time.Duration
}

// NewRunner returns a Runner configured from the probe settings.
func NewRunner(logger *slog.Logger, m *metrics.Collector, cfg config.ProbeConfig) *Runner {
	return &Runner{
		Logger:       logger,
		Metrics:      m,
		PollInterval: cfg.PollInterval,
	}
}

// Run executes the scenarios in order. Cancelling ctx stops the run between
// scenarios; a scenario in progress always finishes, since the duplicate
// cannot be asked to stop early.
func (r *Runner) Run(ctx context.Context, scenarios []config.Scenario) Report {
	var report Report
	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			r.Logger.Warn("probe interrupted", "remaining", len(scenarios)-len(report.Results), "err", err)
			break
		}
		report.Results = append(report.Results, r.runOne(s))
	}
	return report
}

func (r *Runner) runOne(s config.Scenario) Result {
	logger := r.Logger.With("scenario", s.Name, "kind", s.Kind)
	logger.Debug("scenario starting")

	start := time.Now()
	obs, err := r.execute(s)
	res := Result{
		Scenario: s.Name,
		Kind:     s.Kind,
		Passed:   err == nil,
		Err:      err,
		Pid:      obs.pid,
		Status:   obs.status,
		Duration: time.Since(start),
	}
	r.Metrics.ObserveScenario(s.Name, res.Passed, res.Duration.Seconds())

	if err != nil {
		logger.Error("scenario failed", "pid", res.Pid, "duration", res.Duration, "err", err)
	} else {
		logger.Info("scenario passed", "pid", res.Pid, "status", res.Status, "duration", res.Duration)
	}
	return res
}

// observation is what the original process saw of the duplicate.
type observation struct {
	pid    int
	status int
}
