//go:build windows && (amd64 || arm64)

package fork

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// KilledStatus is the status Wait reports for a duplicate stopped by Kill.
const KilledStatus = 1

type descriptor = windows.Handle

const noDescriptor descriptor = windows.InvalidHandle

var platform backend = clonedBackend{}

var (
	modntdll    = windows.NewLazySystemDLL("ntdll.dll")
	modkernel32 = windows.NewLazySystemDLL("kernel32.dll")

	procNtCreateUserProcess = modntdll.NewProc("NtCreateUserProcess")
	procFreeConsole         = modkernel32.NewProc("FreeConsole")
	procAttachConsole       = modkernel32.NewProc("AttachConsole")
)

const (
	statusProcessCloned windows.NTStatus = 0x00000129

	processCreateFlagsInheritHandles = 0x00000004
	processAllAccess                 = 0x001fffff
	threadAllAccess                  = 0x001fffff
	attachParentProcess              = 0xffffffff
)

// psCreateInfo is PS_CREATE_INFO. Only Size is set on input; the union that
// follows State is left zeroed.
type psCreateInfo struct {
	Size  uintptr
	State uint32
	_     [76]byte
}

// clonedBackend emulates fork with NtCreateUserProcess, which clones the
// calling process when given no image or parameters.
type clonedBackend struct{}

func (clonedBackend) fork() (*Child, error) {
	if err := procNtCreateUserProcess.Find(); err != nil {
		return nil, fmt.Errorf("fork: %w", err)
	}

	handles, err := snapshotHandles()
	if err != nil {
		return nil, err
	}

	var process, thread windows.Handle
	status := createClone(handles, &process, &thread)

	if status == statusProcessCloned {
		reattachConsole()
		return nil, nil
	}
	if !ntSuccess(status) {
		currentLogger().Error("cannot clone the current process", "status", fmt.Sprintf("%#x", uint32(status)))
		return nil, os.NewSyscallError("NtCreateUserProcess", status)
	}

	_ = windows.CloseHandle(thread)
	pid, err := windows.GetProcessId(process)
	if err != nil {
		_ = windows.CloseHandle(process)
		return nil, os.NewSyscallError("GetProcessId", err)
	}
	return newChild(int(pid), process), nil
}

// createClone makes every handle inheritable for the duration of the
// NtCreateUserProcess call. The flags are restored in both processes.
func createClone(handles []handleEntry, process, thread *windows.Handle) windows.NTStatus {
	guard := makeInheritable(handles)
	defer guard.restore()

	info := psCreateInfo{Size: unsafe.Sizeof(psCreateInfo{})}
	r1, _, _ := procNtCreateUserProcess.Call(
		uintptr(unsafe.Pointer(process)),
		uintptr(unsafe.Pointer(thread)),
		processAllAccess,
		threadAllAccess,
		0, // process object attributes
		0, // thread object attributes
		processCreateFlagsInheritHandles,
		0, // thread flags
		0, // process parameters
		uintptr(unsafe.Pointer(&info)),
		0, // attribute list
	)
	return windows.NTStatus(uint32(r1))
}

// reattachConsole drops the console state inherited by the clone and
// attaches to the parent's console so standard I/O keeps working.
func reattachConsole() {
	_, _, _ = procFreeConsole.Call()
	_, _, _ = procAttachConsole.Call(attachParentProcess)
}

func ntSuccess(status windows.NTStatus) bool { return int32(status) >= 0 }

func (clonedBackend) wait(c *Child) (int, error) {
	event, err := windows.WaitForSingleObject(c.desc, windows.INFINITE)
	if err != nil {
		return 0, os.NewSyscallError("WaitForSingleObject", err)
	}
	if event != windows.WAIT_OBJECT_0 {
		return 0, fmt.Errorf("WaitForSingleObject: unexpected result %#x", event)
	}
	return exitCode(c.desc)
}

func (clonedBackend) tryWait(c *Child) (int, bool, error) {
	event, err := windows.WaitForSingleObject(c.desc, 0)
	if err != nil {
		return 0, false, os.NewSyscallError("WaitForSingleObject", err)
	}
	switch event {
	case windows.WAIT_OBJECT_0:
	case uint32(windows.WAIT_TIMEOUT):
		return 0, false, nil
	default:
		return 0, false, fmt.Errorf("WaitForSingleObject: unexpected result %#x", event)
	}
	code, err := exitCode(c.desc)
	if err != nil {
		return 0, false, err
	}
	return code, true, nil
}

func exitCode(h windows.Handle) (int, error) {
	var code uint32
	if err := windows.GetExitCodeProcess(h, &code); err != nil {
		return 0, os.NewSyscallError("GetExitCodeProcess", err)
	}
	return int(int32(code)), nil
}

// kill terminates the clone with exit code 1. TerminateProcess fails with
// ERROR_ACCESS_DENIED when the process has already terminated, so that error
// is only reported if the process is still running.
func (b clonedBackend) kill(c *Child) error {
	err := windows.TerminateProcess(c.desc, uint32(KilledStatus))
	if err == nil {
		return nil
	}
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		if _, exited, werr := b.tryWait(c); werr == nil && exited {
			currentLogger().Debug("kill: process already exited", "pid", c.pid)
			return nil
		}
	}
	return os.NewSyscallError("TerminateProcess", err)
}

func closeDescriptor(d descriptor) error {
	return os.NewSyscallError("CloseHandle", windows.CloseHandle(d))
}
