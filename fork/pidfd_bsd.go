//go:build darwin || freebsd || netbsd || dragonfly

package fork

import "golang.org/x/sys/unix"

func openDescriptor(int) descriptor { return noDescriptor }

func waitDescriptor(descriptor, int) (int, bool, error) {
	return 0, false, unix.ENOSYS
}

func killDescriptor(descriptor) error { return unix.ENOSYS }
