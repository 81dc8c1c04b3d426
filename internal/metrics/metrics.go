// Package metrics collects and exposes Prometheus metrics for procdup.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all procdup Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	// Process duplication.
	ForkTotal *prometheus.CounterVec
	WaitTotal *prometheus.CounterVec
	KillTotal *prometheus.CounterVec

	// Probe scenarios.
	ScenarioTotal    *prometheus.CounterVec
	ScenarioDuration *prometheus.HistogramVec
	BuildInfo        *prometheus.GaugeVec
}

// New creates and registers all procdup metrics.
func New() *Collector {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	c := &Collector{
		registry: reg,

		ForkTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procdup_fork_total",
				Help: "Total number of process duplications, by result.",
			},
			[]string{"result"},
		),

		WaitTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procdup_wait_total",
				Help: "Total number of wait calls, by mode (blocking, poll) and result.",
			},
			[]string{"mode", "result"},
		),

		KillTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procdup_kill_total",
				Help: "Total number of kill calls, by result.",
			},
			[]string{"result"},
		),

		ScenarioTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procdup_scenario_total",
				Help: "Total number of probe scenarios run, by name and result.",
			},
			[]string{"name", "result"},
		),

		ScenarioDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "procdup_scenario_duration_seconds",
				Help:    "Wall time spent in a probe scenario.",
				Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10},
			},
			[]string{"name"},
		),

		BuildInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "procdup_build_info",
				Help: "Build information about procdup.",
			},
			[]string{"version", "go_version", "platform"},
		),
	}

	reg.MustRegister(
		c.ForkTotal,
		c.WaitTotal,
		c.KillTotal,
		c.ScenarioTotal,
		c.ScenarioDuration,
		c.BuildInfo,
	)

	return c
}

// Handler returns an http.Handler that serves the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes every metric to path in the text exposition format
// read by node_exporter's textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// SetBuildInfo sets the constant build info gauge.
func (c *Collector) SetBuildInfo(version, goVersion, platform string) {
	c.BuildInfo.WithLabelValues(version, goVersion, platform).Set(1)
}

// ObserveFork counts a duplication attempt.
func (c *Collector) ObserveFork(err error) {
	c.ForkTotal.WithLabelValues(result(err)).Inc()
}

// ObserveWait counts a Wait (blocking) or TryWait (poll) call.
func (c *Collector) ObserveWait(blocking bool, err error) {
	mode := "poll"
	if blocking {
		mode = "blocking"
	}
	c.WaitTotal.WithLabelValues(mode, result(err)).Inc()
}

// ObserveKill counts a kill call.
func (c *Collector) ObserveKill(err error) {
	c.KillTotal.WithLabelValues(result(err)).Inc()
}

// ObserveScenario records the outcome and duration of a probe scenario.
func (c *Collector) ObserveScenario(name string, passed bool, seconds float64) {
	label := "fail"
	if passed {
		label = "pass"
	}
	c.ScenarioTotal.WithLabelValues(name, label).Inc()
	c.ScenarioDuration.WithLabelValues(name).Observe(seconds)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
