//go:build !linux && !darwin && !freebsd && !netbsd && !dragonfly && !(windows && (amd64 || arm64))

package fork

import (
	"errors"
	"fmt"
	"runtime"
)

// KilledStatus is the status Wait reports for a duplicate stopped by Kill.
const KilledStatus = -1

type descriptor = int

const noDescriptor descriptor = -1

var platform backend = unsupportedBackend{}

var errUnsupported = fmt.Errorf("fork: not supported on %s/%s: %w", runtime.GOOS, runtime.GOARCH, errors.ErrUnsupported)

type unsupportedBackend struct{}

func (unsupportedBackend) fork() (*Child, error) { return nil, errUnsupported }
func (unsupportedBackend) wait(*Child) (int, error) { return 0, errUnsupported }
func (unsupportedBackend) tryWait(*Child) (int, bool, error) { return 0, false, errUnsupported }
func (unsupportedBackend) kill(*Child) error { return errUnsupported }

func closeDescriptor(descriptor) error { return nil }
