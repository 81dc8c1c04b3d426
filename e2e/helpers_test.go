//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

// procdupBinary is the path to the built procdup binary, set by TestMain.
var procdupBinary string

func TestMain(m *testing.M) {
	tmpDir, err := os.MkdirTemp("", "procdup-e2e-bin-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create temp dir: %v\n", err)
		os.Exit(1)
	}
	defer os.RemoveAll(tmpDir)

	procdupBinary = filepath.Join(tmpDir, "procdup")
	cmd := exec.Command("go", "build", "-o", procdupBinary, "github.com/kahiteam/procdup/cmd/procdup")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to build procdup binary: %v\n", err)
		os.Exit(1)
	}

	// Suite-wide 5-minute timeout fallback.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	go func() {
		<-ctx.Done()
		if ctx.Err() == context.DeadlineExceeded {
			fmt.Fprintln(os.Stderr, "E2E suite timeout exceeded (5 minutes)")
			os.Exit(2)
		}
	}()

	os.Exit(m.Run())
}

// runProcdup runs the binary in dir and returns stdout, stderr and the exit
// code.
func runProcdup(t *testing.T, dir string, args ...string) (string, string, int) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, procdupBinary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "PROCDUP_CONFIG=")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		t.Fatalf("run procdup %v: %v", args, err)
	}
	return stdout.String(), stderr.String(), code
}
