//go:build linux || darwin || freebsd || netbsd || dragonfly

package fork

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func TestReapStopsRunningDuplicate(t *testing.T) {
	c := forkOrSkip(t)
	if c == nil {
		Sleep(time.Minute)
		Exit(0)
	}
	pid := c.Pid()

	reap(c)

	code, ok := c.status.get()
	if !ok {
		t.Fatal("reap did not record a status")
	}
	if code != KilledStatus {
		t.Fatalf("status = %d, want %d", code, KilledStatus)
	}
	if c.desc != noDescriptor {
		t.Fatal("descriptor still held after reap")
	}
	// Reaped, so not even a zombie is left under this pid.
	if err := unix.Kill(pid, 0); !errors.Is(err, unix.ESRCH) {
		t.Fatalf("kill(%d, 0) = %v, want ESRCH", pid, err)
	}
}
