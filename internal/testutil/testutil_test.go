package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestTempDir(t *testing.T) {
	dir := TempDir(t)
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("temp dir does not exist: %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := TempDir(t)
	path := WriteFile(t, dir, "procdup.toml", "[probe]\n")
	if path != filepath.Join(dir, "procdup.toml") {
		t.Fatalf("path = %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[probe]\n" {
		t.Fatalf("content = %q", data)
	}
}

func TestMustParseConfig(t *testing.T) {
	cfg := MustParseConfig(t, "[scenarios.a]\nkind = \"exit\"\n")
	if _, ok := cfg.Scenarios["a"]; !ok {
		t.Fatal("missing scenarios.a")
	}
}

func TestWaitFor(t *testing.T) {
	start := time.Now()
	WaitFor(t, func() bool { return time.Since(start) > 100*time.Millisecond }, 5*time.Second)
}

func TestLogger(t *testing.T) {
	logger, buf := Logger(t)
	logger.Debug("hello", "key", "value")
	if !buf.Contains("msg=hello") || !buf.Contains("key=value") {
		t.Fatalf("log = %q", buf.String())
	}
}
