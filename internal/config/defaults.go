package config

import (
	"time"

	"github.com/kahiteam/procdup/fork"
)

// ApplyDefaults fills in zero-value fields with their default values. A
// config without scenarios gets the built-in set.
func ApplyDefaults(cfg *Config) {
	if cfg.Probe.LogLevel == "" {
		cfg.Probe.LogLevel = "info"
	}
	if cfg.Probe.LogFormat == "" {
		cfg.Probe.LogFormat = "auto"
	}
	if cfg.Probe.PollInterval == 0 {
		cfg.Probe.PollInterval = 50 * time.Millisecond
	}

	if len(cfg.Scenarios) == 0 {
		cfg.Scenarios = DefaultScenarios()
	}

	for name, s := range cfg.Scenarios {
		applyScenarioDefaults(&s)
		cfg.Scenarios[name] = s
	}
}

func applyScenarioDefaults(s *Scenario) {
	if s.ExitCode == nil {
		switch s.Kind {
		case KindExit, KindTryWait:
			s.ExitCode = intPtr(42)
		default:
			s.ExitCode = intPtr(0)
		}
	}

	switch s.Kind {
	case KindTryWait:
		if s.Delay == 0 {
			s.Delay = time.Second
		}
		if s.Settle == 0 {
			s.Settle = s.Delay + time.Second
		}
	case KindKill:
		if s.Delay == 0 {
			s.Delay = time.Minute
		}
	}

	if s.Expect == nil {
		switch {
		case s.Kind == KindKill:
			s.Expect = intPtr(fork.KilledStatus)
		case s.Kind == KindRun && *s.ExitCode != 0:
			// fork.Run reports any failure as 1.
			s.Expect = intPtr(1)
		default:
			s.Expect = intPtr(*s.ExitCode)
		}
	}
}

// DefaultScenarios returns one scenario of each kind.
func DefaultScenarios() map[string]Scenario {
	return map[string]Scenario{
		"exit-code":  {Kind: KindExit},
		"pid":        {Kind: KindPid},
		"try-wait":   {Kind: KindTryWait},
		"kill":       {Kind: KindKill},
		"wait-twice": {Kind: KindWaitTwice, ExitCode: intPtr(3)},
		"run":        {Kind: KindRun},
	}
}
