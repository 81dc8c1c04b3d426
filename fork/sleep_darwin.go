package fork

import (
	"time"

	"golang.org/x/sys/unix"
)

// Sleep pauses the calling thread for d with an empty select(2). Unlike
// time.Sleep it never parks the goroutine, so it is safe in the duplicate.
func Sleep(d time.Duration) {
	deadline := time.Now().Add(d)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return
		}
		tv := unix.NsecToTimeval(left.Nanoseconds())
		if _, err := unix.Select(0, nil, nil, nil, &tv); err != unix.EINTR {
			return
		}
	}
}
