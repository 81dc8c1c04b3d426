package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

// ErrNoConfig is returned by Resolve when no config file exists.
var ErrNoConfig = errors.New("no config file found")

// DefaultSearchPaths is the ordered list of config file paths to try.
var DefaultSearchPaths = []string{
	"./procdup.toml",
	"/etc/procdup/procdup.toml",
}

// Resolve finds the config file path by checking, in order:
//  1. Explicit path from -c flag (if non-empty)
//  2. PROCDUP_CONFIG environment variable
//  3. DefaultSearchPaths, with the per-user procdup/procdup.toml under
//     os.UserConfigDir tried after the working directory
//
// An explicit or environment path that does not exist is an error. When
// nothing is found along the search paths the error wraps ErrNoConfig.
func Resolve(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("cannot read config: %s: %w", explicit, err)
		}
		return explicit, nil
	}

	if env := os.Getenv("PROCDUP_CONFIG"); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("cannot read config: %s: %w", env, err)
		}
		return env, nil
	}

	paths := searchPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w; searched %v", ErrNoConfig, paths)
}

func searchPaths() []string {
	paths := slices.Clone(DefaultSearchPaths)
	dir, err := os.UserConfigDir()
	if err != nil || len(paths) == 0 {
		return paths
	}
	return slices.Insert(paths, 1, filepath.Join(dir, "procdup", "procdup.toml"))
}
