package config

import (
	"fmt"
	"strings"
)

var validKinds = map[string]bool{
	KindExit: true, KindPid: true, KindTryWait: true,
	KindKill: true, KindWaitTwice: true, KindRun: true,
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"auto": true, "json": true, "text": true,
}

// Validate checks the config for semantic errors and returns all of them.
func Validate(cfg *Config) []error {
	var errs []error

	if !validLogLevels[strings.ToLower(cfg.Probe.LogLevel)] {
		errs = append(errs, fmt.Errorf("probe: invalid log_level %q", cfg.Probe.LogLevel))
	}
	if !validLogFormats[strings.ToLower(cfg.Probe.LogFormat)] {
		errs = append(errs, fmt.Errorf("probe: log_format must be auto, json, or text, got %q", cfg.Probe.LogFormat))
	}
	if cfg.Probe.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("probe: poll_interval must be positive, got %s", cfg.Probe.PollInterval))
	}

	for _, s := range cfg.ScenarioList() {
		prefix := fmt.Sprintf("scenarios.%s", s.Name)

		if !validKinds[s.Kind] {
			errs = append(errs, fmt.Errorf("%s: unknown kind %q", prefix, s.Kind))
			continue
		}
		if s.ExitCode != nil && (*s.ExitCode < 0 || *s.ExitCode > 255) {
			errs = append(errs, fmt.Errorf("%s: exit_code must be between 0 and 255, got %d", prefix, *s.ExitCode))
		}
		if s.Delay < 0 {
			errs = append(errs, fmt.Errorf("%s: delay must not be negative, got %s", prefix, s.Delay))
		}
		if s.Kind == KindTryWait && s.Settle <= s.Delay {
			errs = append(errs, fmt.Errorf("%s: settle (%s) must be longer than delay (%s)", prefix, s.Settle, s.Delay))
		}
	}

	return errs
}
