//go:build windows && (amd64 || arm64)

package fork

import (
	"errors"
	"os"
	"slices"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	processHandleInformation = 51 // PROCESSINFOCLASS
	objInherit               = 0x00000002

	statusBufferOverflow     windows.NTStatus = 0x80000005
	statusInfoLengthMismatch windows.NTStatus = 0xc0000004
	statusBufferTooSmall     windows.NTStatus = 0xc0000023
)

// handleEntry is PROCESS_HANDLE_TABLE_ENTRY_INFO.
type handleEntry struct {
	HandleValue      windows.Handle
	HandleCount      uintptr
	PointerCount     uintptr
	GrantedAccess    uint32
	ObjectTypeIndex  uint32
	HandleAttributes uint32
	Reserved         uint32
}

// handleSnapshotHeader is the fixed part of
// PROCESS_HANDLE_SNAPSHOT_INFORMATION; the entries follow it.
type handleSnapshotHeader struct {
	NumberOfHandles uintptr
	Reserved        uintptr
}

// snapshotHandles lists every handle open in the current process. The
// required size is unknown up front, so the query grows its buffer until it
// fits.
func snapshotHandles() ([]handleEntry, error) {
	const word = unsafe.Sizeof(uintptr(0))
	buf := make([]uintptr, 0x800/word)

	for {
		size := uint32(uintptr(len(buf)) * word)
		err := windows.NtQueryInformationProcess(windows.CurrentProcess(), processHandleInformation,
			unsafe.Pointer(&buf[0]), size, &size)
		if err == nil {
			break
		}
		if !isBufferSizeStatus(err) {
			return nil, os.NewSyscallError("NtQueryInformationProcess", err)
		}
		n := (uintptr(size) + word - 1) / word
		if n <= uintptr(len(buf)) {
			n = uintptr(len(buf)) * 2
		}
		buf = make([]uintptr, n)
	}

	hdr := (*handleSnapshotHeader)(unsafe.Pointer(&buf[0]))
	first := (*handleEntry)(unsafe.Add(unsafe.Pointer(&buf[0]), unsafe.Sizeof(*hdr)))
	return slices.Clone(unsafe.Slice(first, hdr.NumberOfHandles)), nil
}

func isBufferSizeStatus(err error) bool {
	return errors.Is(err, statusInfoLengthMismatch) ||
		errors.Is(err, statusBufferTooSmall) ||
		errors.Is(err, statusBufferOverflow)
}

// inheritGuard undoes makeInheritable.
type inheritGuard struct {
	handles []handleEntry
}

// makeInheritable sets the inherit flag on every handle, leaving the other
// flags alone. Handles that refuse the change are skipped; they stay private
// to the original process.
func makeInheritable(handles []handleEntry) *inheritGuard {
	for _, h := range handles {
		_ = windows.SetHandleInformation(h.HandleValue, windows.HANDLE_FLAG_INHERIT, windows.HANDLE_FLAG_INHERIT)
	}
	return &inheritGuard{handles: handles}
}

// restore puts back the inherit flag each handle had when it was captured.
func (g *inheritGuard) restore() {
	for _, h := range g.handles {
		var flags uint32
		if h.HandleAttributes&objInherit != 0 {
			flags = windows.HANDLE_FLAG_INHERIT
		}
		_ = windows.SetHandleInformation(h.HandleValue, windows.HANDLE_FLAG_INHERIT, flags)
	}
}
