//go:build !linux && !darwin && !freebsd && !netbsd && !dragonfly && !(windows && (amd64 || arm64))

package fork

import "time"

// Sleep pauses for d. Fork is unsupported here, so there is no duplicate to
// protect.
func Sleep(d time.Duration) { time.Sleep(d) }
