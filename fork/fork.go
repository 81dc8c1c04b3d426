// Package fork duplicates the calling process.
//
// Fork returns twice: once in the original process, with a *Child that can
// wait for, poll or kill the new process, and once in the duplicate, with a
// nil *Child. The duplicate starts as a copy of the caller at the point of the
// call, but only the calling thread is carried over. Every other OS thread,
// including the ones the Go runtime uses for scheduling and garbage
// collection, is absent in the duplicate, and a lock held by one of them at
// the time of the call stays locked there forever. Keep the work done in the
// duplicate short and self-contained and finish it with Exit.
//
// In particular the duplicate must not block in the Go scheduler: no
// time.Sleep, timers, channel operations or contended mutexes, and nothing
// that waits on the garbage collector. With no other thread left to wake
// it, the duplicate hangs and never exits. Use Sleep to pause, and plain
// syscalls such as writes to a pipe to talk to the original.
//
// Open descriptors are shared with the duplicate, so a pipe created before
// the call can carry data between the two processes.
package fork

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"syscall"
)

// backend is the per-platform duplication primitive. Exactly one
// implementation is compiled in for each target.
type backend interface {
	fork() (*Child, error)
	wait(c *Child) (int, error)
	tryWait(c *Child) (status int, exited bool, err error)
	kill(c *Child) error
}

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.New(slog.DiscardHandler))
}

// SetLogger sets the logger used by the original process. Nothing is logged
// from the duplicate. A nil logger discards output.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	logger.Store(l)
}

func currentLogger() *slog.Logger { return logger.Load() }

// Fork duplicates the calling process. In the original process it returns a
// non-nil *Child for the duplicate. In the duplicate it returns (nil, nil).
// On error no process was created. See the package documentation for what
// the duplicate may safely do.
func Fork() (*Child, error) {
	c, err := platform.fork()
	if err != nil {
		return nil, err
	}
	if c != nil {
		currentLogger().Debug("forked", "pid", c.pid, "descriptor", c.desc != noDescriptor)
	}
	return c, nil
}

// Run runs fn in a duplicate of the calling process and returns the Child in
// the original. The duplicate exits with status 0 when fn returns nil, and
// with status 1 when fn returns an error or panics. fn runs under the same
// restrictions as any duplicate: it must not block in the scheduler or rely
// on the garbage collector.
func Run(fn func() error) (*Child, error) {
	c, err := Fork()
	if err != nil || c != nil {
		return c, err
	}
	Exit(runDuplicate(fn))
	return nil, nil
}

// Exit ends the duplicate with the given status. Unlike os.Exit it skips the
// hooks that belong to the original process, such as writing coverage
// profiles or the race detector report, and it is allowed to exit 0 inside a
// test binary.
func Exit(code int) {
	syscall.Exit(code)
}

func runDuplicate(fn func() error) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic: %v\n", r)
			code = 1
		}
	}()
	if err := fn(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// statusCell holds an exit status that is set at most once.
type statusCell struct {
	code int
	set  bool
}

func (s *statusCell) get() (int, bool) { return s.code, s.set }

func (s *statusCell) store(code int) {
	if s.set {
		return
	}
	s.code, s.set = code, true
}

// Child is the original process's handle on a duplicate. It is not safe for
// concurrent use.
//
// Dropping a Child without calling Wait leaves the duplicate running; it is
// neither killed nor reaped.
type Child struct {
	pid     int
	desc    descriptor
	status  statusCell
	cleanup runtime.Cleanup
}

func newChild(pid int, d descriptor) *Child {
	c := &Child{pid: pid, desc: d}
	if d != noDescriptor {
		c.cleanup = runtime.AddCleanup(c, func(d descriptor) { _ = closeDescriptor(d) }, d)
	}
	return c
}

// Pid returns the process id of the duplicate.
func (c *Child) Pid() int { return c.pid }

// Wait blocks until the duplicate exits and returns its status: the exit
// code, or on Unix the number of the signal that terminated it. Once a
// status is known it is returned again without asking the OS, since the pid
// may already belong to another process.
func (c *Child) Wait() (int, error) {
	if code, ok := c.status.get(); ok {
		return code, nil
	}
	code, err := platform.wait(c)
	if err != nil {
		return 0, err
	}
	c.status.store(code)
	return code, nil
}

// TryWait reports the duplicate's status if it has exited, without blocking.
// exited is false while it is still running.
func (c *Child) TryWait() (status int, exited bool, err error) {
	if code, ok := c.status.get(); ok {
		return code, true, nil
	}
	code, exited, err := platform.tryWait(c)
	if err != nil || !exited {
		return 0, false, err
	}
	c.status.store(code)
	return code, true, nil
}

// Kill forcibly terminates the duplicate. It succeeds without doing anything
// once Wait or TryWait has observed the exit, and it treats a process that
// is already gone as success.
func (c *Child) Kill() error {
	if _, ok := c.status.get(); ok {
		return nil
	}
	return platform.kill(c)
}

// Close releases the process descriptor held by c, if any. It does not kill
// or reap the duplicate. Later calls return nil.
func (c *Child) Close() error {
	if c.desc == noDescriptor {
		return nil
	}
	c.cleanup.Stop()
	d := c.desc
	c.desc = noDescriptor
	return closeDescriptor(d)
}
