//go:build linux && (arm64 || riscv64 || loong64)

package fork

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// These architectures have no fork syscall; clone with only the exit signal
// set behaves the same.
func rawFork() (pid uintptr, inChild bool, errno syscall.Errno) {
	pid, _, errno = unix.RawSyscall(unix.SYS_CLONE, uintptr(unix.SIGCHLD), 0, 0)
	return pid, errno == 0 && pid == 0, errno
}
