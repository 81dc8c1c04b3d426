package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

// Load reads a TOML config file, applies defaults, validates, and returns
// the config along with any warnings (e.g. unknown fields).
func Load(path string) (*Config, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read config: %s: %w", path, err)
	}

	return LoadBytes(data, path)
}

// LoadBytes parses TOML from raw bytes. The path argument is used only for
// error messages.
func LoadBytes(data []byte, path string) (*Config, []string, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("config parse error in %s: %w", path, err)
	}

	var warnings []string
	for _, key := range md.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown config key: %s", strings.Join(key, ".")))
	}
	warnings = append(warnings, ignoredKeyWarnings(md, &cfg)...)

	ApplyDefaults(&cfg)

	if errs := Validate(&cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, warnings, fmt.Errorf("config validation failed in %s:\n  %s",
			path, strings.Join(msgs, "\n  "))
	}

	return &cfg, warnings, nil
}

// ignoredKeyWarnings reports scenario keys that are valid TOML but never
// read by the scenario's kind.
func ignoredKeyWarnings(md toml.MetaData, cfg *Config) []string {
	var warnings []string
	for _, name := range slices.Sorted(maps.Keys(cfg.Scenarios)) {
		s := cfg.Scenarios[name]
		if s.Kind != KindTryWait && md.IsDefined("scenarios", name, "settle") {
			warnings = append(warnings, fmt.Sprintf("scenarios.%s.settle is only used by kind %q, ignored for %q",
				name, KindTryWait, s.Kind))
		}
	}
	return warnings
}

// Default returns the built-in configuration used when no file is found.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}
