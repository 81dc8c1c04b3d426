//go:build linux || darwin || freebsd || netbsd || dragonfly

package fork

import (
	"errors"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// KilledStatus is the status Wait reports for a duplicate stopped by Kill.
const KilledStatus = int(unix.SIGKILL)

type descriptor = int

const noDescriptor descriptor = -1

var platform backend = nativeBackend{}

// nativeBackend duplicates with the kernel's fork. On Linux the child is
// tracked through a pidfd when one can be opened.
type nativeBackend struct{}

func (nativeBackend) fork() (*Child, error) {
	// Same lock os/exec holds, so no descriptor is created without
	// close-on-exec while the address space is copied.
	syscall.ForkLock.Lock()
	pid, inChild, errno := rawFork()
	syscall.ForkLock.Unlock()

	if errno != 0 {
		return nil, os.NewSyscallError("fork", errno)
	}
	if inChild {
		return nil, nil
	}
	return newChild(int(pid), openDescriptor(int(pid))), nil
}

func (nativeBackend) wait(c *Child) (int, error) {
	code, exited, err := waitChild(c, 0)
	if err != nil {
		return 0, err
	}
	if !exited {
		return -1, nil
	}
	return code, nil
}

func (nativeBackend) tryWait(c *Child) (int, bool, error) {
	return waitChild(c, unix.WNOHANG)
}

func waitChild(c *Child, options int) (int, bool, error) {
	if c.desc != noDescriptor {
		code, exited, err := waitDescriptor(c.desc, options)
		if !errors.Is(err, unix.EINVAL) {
			return code, exited, err
		}
		currentLogger().Debug("waitid on pidfd unsupported, using pid", "pid", c.pid)
		_ = c.Close()
	}

	var (
		ws   unix.WaitStatus
		wpid int
	)
	err := ignoringEINTR(func() error {
		var err error
		wpid, err = unix.Wait4(c.pid, &ws, options, nil)
		return err
	})
	if err != nil {
		return 0, false, os.NewSyscallError("wait4", err)
	}
	if wpid == 0 {
		return 0, false, nil
	}
	return decodeWaitStatus(ws), true, nil
}

// decodeWaitStatus returns the exit code, or the signal number when the
// process was killed by a signal.
func decodeWaitStatus(ws unix.WaitStatus) int {
	switch {
	case ws.Exited():
		return ws.ExitStatus()
	case ws.Signaled():
		return int(ws.Signal())
	default:
		return -1
	}
}

func (nativeBackend) kill(c *Child) error {
	var err error
	op := "kill"
	if c.desc != noDescriptor {
		op = "pidfd_send_signal"
		err = killDescriptor(c.desc)
	} else {
		err = unix.Kill(c.pid, unix.SIGKILL)
	}
	if errors.Is(err, unix.ESRCH) {
		currentLogger().Debug("kill: process already exited", "pid", c.pid)
		return nil
	}
	return os.NewSyscallError(op, err)
}

func closeDescriptor(d descriptor) error {
	return os.NewSyscallError("close", unix.Close(d))
}

func ignoringEINTR(fn func() error) error {
	for {
		err := fn()
		if err != unix.EINTR {
			return err
		}
	}
}
