//go:build darwin || freebsd || netbsd || dragonfly

package fork

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// The BSD fork syscall returns the other process's pid in r1 on both sides
// and sets r2 to 1 in the child.
func rawFork() (pid uintptr, inChild bool, errno syscall.Errno) {
	r1, r2, errno := unix.RawSyscall(unix.SYS_FORK, 0, 0, 0)
	if errno != 0 {
		return 0, false, errno
	}
	return r1, r2 == 1, 0
}
