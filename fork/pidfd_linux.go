package fork

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// openDescriptor opens a pidfd for pid. Kernels older than 5.3 have no
// pidfd_open; the child is then tracked by pid alone.
func openDescriptor(pid int) descriptor {
	fd, err := unix.PidfdOpen(pid, 0)
	if err != nil {
		currentLogger().Debug("pidfd unavailable, using pid", "pid", pid, "err", err)
		return noDescriptor
	}
	return fd
}

// waitid is replaced in tests to stand in for kernels without P_PIDFD.
var waitid = unix.Waitid

// waitDescriptor waits through the pidfd. Linux 5.3 has pidfd_open but
// rejects P_PIDFD with EINVAL; waitChild then falls back to the pid.
func waitDescriptor(fd descriptor, options int) (int, bool, error) {
	var info unix.Siginfo
	err := ignoringEINTR(func() error {
		return waitid(unix.P_PIDFD, fd, &info, unix.WEXITED|options, nil)
	})
	if err != nil {
		return 0, false, os.NewSyscallError("waitid", err)
	}
	pid, status := sigchldInfo(&info)
	if pid == 0 {
		// WNOHANG and nothing to report yet.
		return 0, false, nil
	}
	return int(status), true, nil
}

// sigchldInfo reads si_pid and si_status out of info. unix.Siginfo keeps
// the union opaque; it starts after si_signo, si_errno and si_code, aligned
// to the pointer size, and holds pid, uid and status in that order.
func sigchldInfo(info *unix.Siginfo) (pid, status int32) {
	const ptrSize = unsafe.Sizeof(uintptr(0))
	union := (3*unsafe.Sizeof(int32(0)) + ptrSize - 1) &^ (ptrSize - 1)
	p := unsafe.Pointer(info)
	pid = *(*int32)(unsafe.Add(p, union))
	status = *(*int32)(unsafe.Add(p, union+8))
	return pid, status
}

func killDescriptor(fd descriptor) error {
	return unix.PidfdSendSignal(fd, unix.SIGKILL, nil, 0)
}
