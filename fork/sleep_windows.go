//go:build windows && (amd64 || arm64)

package fork

import (
	"time"

	"golang.org/x/sys/windows"
)

// Sleep pauses the calling thread for d. Unlike time.Sleep it never parks
// the goroutine, so it is safe in the duplicate.
func Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	ms := d.Milliseconds()
	for ms > 0 {
		chunk := min(ms, windows.INFINITE-1)
		windows.SleepEx(uint32(chunk), false)
		ms -= chunk
	}
}
