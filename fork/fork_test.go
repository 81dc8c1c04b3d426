package fork

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"testing"
	"time"
)

// forkOrSkip forks the test binary. It returns nil in the duplicate, which
// must leave through Exit without touching t.
func forkOrSkip(t *testing.T) *Child {
	t.Helper()
	c, err := Fork()
	if errors.Is(err, errors.ErrUnsupported) {
		t.Skip(err)
	}
	if err != nil {
		t.Fatalf("Fork: %v", err)
	}
	if c != nil {
		t.Cleanup(func() { reap(c) })
	}
	return c
}

// reap kills and waits for c before releasing it, so a failed test leaves
// neither a running duplicate nor a zombie behind. Both calls are no-ops
// once the status is known.
func reap(c *Child) {
	_ = c.Kill()
	_, _ = c.Wait()
	_ = c.Close()
}

func TestForkExitCode(t *testing.T) {
	c := forkOrSkip(t)
	if c == nil {
		Exit(42)
	}

	code, err := c.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if code != 42 {
		t.Fatalf("status = %d, want 42", code)
	}
}

func TestForkPid(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	c := forkOrSkip(t)
	if c == nil {
		_, _ = w.Write(binary.LittleEndian.AppendUint32(nil, uint32(os.Getpid())))
		Exit(0)
	}
	w.Close()

	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		t.Fatal(err)
	}
	if pid := int(binary.LittleEndian.Uint32(buf)); pid != c.Pid() {
		t.Fatalf("duplicate reported pid %d, Pid() = %d", pid, c.Pid())
	}
	if _, err := c.Wait(); err != nil {
		t.Fatal(err)
	}
}

func TestForkTryWait(t *testing.T) {
	c := forkOrSkip(t)
	if c == nil {
		Sleep(time.Second)
		Exit(42)
	}

	if code, exited, err := c.TryWait(); err != nil || exited {
		t.Fatalf("TryWait = (%d, %v, %v), want still running", code, exited, err)
	}

	time.Sleep(2 * time.Second)

	code, exited, err := c.TryWait()
	if err != nil {
		t.Fatal(err)
	}
	if !exited || code != 42 {
		t.Fatalf("TryWait = (%d, %v), want (42, true)", code, exited)
	}

	code, err = c.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if code != 42 {
		t.Fatalf("Wait = %d, want 42", code)
	}
}

func TestForkTryWaitRepeated(t *testing.T) {
	c := forkOrSkip(t)
	if c == nil {
		Sleep(500 * time.Millisecond)
		Exit(7)
	}

	for i := 0; i < 5; i++ {
		if _, exited, err := c.TryWait(); err != nil || exited {
			t.Fatalf("poll %d: exited=%v err=%v", i, exited, err)
		}
	}

	deadline := time.Now().Add(10 * time.Second)
	for {
		code, exited, err := c.TryWait()
		if err != nil {
			t.Fatal(err)
		}
		if exited {
			if code != 7 {
				t.Fatalf("status = %d, want 7", code)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("duplicate did not exit")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWaitTwice(t *testing.T) {
	c := forkOrSkip(t)
	if c == nil {
		Exit(3)
	}

	first, err := c.Wait()
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if first != 3 || second != 3 {
		t.Fatalf("Wait = %d then %d, want 3 twice", first, second)
	}
}

func TestKillAfterWait(t *testing.T) {
	c := forkOrSkip(t)
	if c == nil {
		Exit(0)
	}

	if _, err := c.Wait(); err != nil {
		t.Fatal(err)
	}
	if err := c.Kill(); err != nil {
		t.Fatalf("Kill after Wait: %v", err)
	}
}

func TestKillRunning(t *testing.T) {
	c := forkOrSkip(t)
	if c == nil {
		Sleep(time.Minute)
		Exit(0)
	}

	if err := c.Kill(); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	var code int
	var werr error
	go func() {
		code, werr = c.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Wait did not return after Kill")
	}
	if werr != nil {
		t.Fatal(werr)
	}
	if code != KilledStatus {
		t.Fatalf("status = %d, want %d", code, KilledStatus)
	}
	if err := c.Kill(); err != nil {
		t.Fatalf("second Kill: %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	c := forkOrSkip(t)
	if c == nil {
		Exit(5)
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	// The duplicate is still reaped by pid after Close.
	code, err := c.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if code != 5 {
		t.Fatalf("status = %d, want 5", code)
	}
}

func TestRun(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	c, err := Run(func() error {
		_, err := w.Write([]byte("hello world"))
		return err
	})
	if errors.Is(err, errors.ErrUnsupported) {
		t.Skip(err)
	}
	if err != nil {
		t.Fatal(err)
	}
	defer reap(c)
	w.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("read %q, want %q", got, "hello world")
	}

	code, err := c.Wait()
	if err != nil {
		t.Fatal(err)
	}
	if code != 0 {
		t.Fatalf("status = %d, want 0", code)
	}
}

func TestRunFailure(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"error", func() error { return errors.New("boom") }},
		{"panic", func() error { panic("boom") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Run(tt.fn)
			if errors.Is(err, errors.ErrUnsupported) {
				t.Skip(err)
			}
			if err != nil {
				t.Fatal(err)
			}
			defer reap(c)

			code, err := c.Wait()
			if err != nil {
				t.Fatal(err)
			}
			if code != 1 {
				t.Fatalf("status = %d, want 1", code)
			}
		})
	}
}
