// Package config handles loading and validating procdup probe configuration.
package config

import (
	"slices"
	"time"
)

// Scenario kinds.
const (
	KindExit      = "exit"
	KindPid       = "pid"
	KindTryWait   = "try-wait"
	KindKill      = "kill"
	KindWaitTwice = "wait-twice"
	KindRun       = "run"
)

// Config is the top-level procdup configuration.
type Config struct {
	Probe     ProbeConfig         `toml:"probe"`
	Scenarios map[string]Scenario `toml:"scenarios"`
}

// ProbeConfig holds settings for a probe run.
type ProbeConfig struct {
	LogLevel     string        `toml:"log_level"`
	LogFormat    string        `toml:"log_format"`
	MetricsFile  string        `toml:"metrics_file"`
	PollInterval time.Duration `toml:"poll_interval"`
}

// Scenario describes one duplication check. The duplicate sleeps Delay and
// exits with ExitCode; the original expects to observe Expect.
type Scenario struct {
	Name     string        `toml:"-"`
	Kind     string        `toml:"kind"`
	ExitCode *int          `toml:"exit_code"`
	Delay    time.Duration `toml:"delay"`
	Settle   time.Duration `toml:"settle"`
	Expect   *int          `toml:"expect"`
}

// ScenarioList returns the scenarios sorted by name, with Name filled in.
func (c *Config) ScenarioList() []Scenario {
	names := make([]string, 0, len(c.Scenarios))
	for name := range c.Scenarios {
		names = append(names, name)
	}
	slices.Sort(names)

	list := make([]Scenario, 0, len(names))
	for _, name := range names {
		s := c.Scenarios[name]
		s.Name = name
		list = append(list, s)
	}
	return list
}

// Select returns the named scenarios in the given order. With no names it
// returns ScenarioList.
func (c *Config) Select(names ...string) ([]Scenario, error) {
	if len(names) == 0 {
		return c.ScenarioList(), nil
	}
	list := make([]Scenario, 0, len(names))
	for _, name := range names {
		s, ok := c.Scenarios[name]
		if !ok {
			return nil, &UnknownScenarioError{Name: name}
		}
		s.Name = name
		list = append(list, s)
	}
	return list, nil
}

// UnknownScenarioError is returned by Select for a name with no scenario.
type UnknownScenarioError struct {
	Name string
}

func (e *UnknownScenarioError) Error() string {
	return "unknown scenario: " + e.Name
}

func intPtr(v int) *int { return &v }
