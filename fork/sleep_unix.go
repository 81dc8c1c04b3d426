//go:build linux || freebsd || netbsd || dragonfly

package fork

import (
	"time"

	"golang.org/x/sys/unix"
)

// Sleep pauses the calling thread for d with nanosleep(2). Unlike
// time.Sleep it never parks the goroutine, so it is safe in the duplicate.
func Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	ts := unix.NsecToTimespec(d.Nanoseconds())
	for {
		var left unix.Timespec
		if err := unix.Nanosleep(&ts, &left); err != unix.EINTR {
			return
		}
		ts = left
	}
}
