//go:build e2e

package e2e

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProbeBuiltinScenarios(t *testing.T) {
	dir := t.TempDir()
	stdout, stderr, code := runProcdup(t, dir, "probe", "--log-format", "json")
	if code != 0 {
		t.Fatalf("probe exited %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	for _, name := range []string{"exit-code", "pid", "try-wait", "kill", "wait-twice", "run"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("report missing scenario %q:\n%s", name, stdout)
		}
	}
	if strings.Contains(stdout, "FAIL") {
		t.Errorf("unexpected failure:\n%s", stdout)
	}

	// Every stderr line is a JSON log record from the original process.
	for _, line := range strings.Split(strings.TrimSpace(stderr), "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Errorf("stderr line is not JSON: %q", line)
		}
	}
}

func TestProbeWithGeneratedConfig(t *testing.T) {
	dir := t.TempDir()
	if _, stderr, code := runProcdup(t, dir, "init"); code != 0 {
		t.Fatalf("init exited %d: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "procdup.toml")); err != nil {
		t.Fatalf("init did not write procdup.toml: %v", err)
	}

	metricsPath := filepath.Join(dir, "procdup.prom")
	stdout, stderr, code := runProcdup(t, dir, "probe", "-s", "exit-code", "-s", "kill", "--metrics-file", metricsPath)
	if code != 0 {
		t.Fatalf("probe exited %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if got := strings.Count(stdout, "PASS"); got != 2 {
		t.Errorf("PASS lines = %d, want 2:\n%s", got, stdout)
	}

	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`procdup_fork_total{result="ok"} 2`,
		`procdup_scenario_total{name="kill",result="pass"} 1`,
		"procdup_build_info{",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestProbeFailingScenarioExitCode(t *testing.T) {
	dir := t.TempDir()
	cfg := "[scenarios.mismatch]\nkind = \"exit\"\nexit_code = 10\nexpect = 11\n"
	if err := os.WriteFile(filepath.Join(dir, "procdup.toml"), []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := runProcdup(t, dir, "probe")
	if code != 1 {
		t.Fatalf("probe exited %d, want 1\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stderr, "1 of 1 scenarios failed") {
		t.Errorf("stderr missing failure summary:\n%s", stderr)
	}
}
