package native

import (
	"golang.org/x/sys/windows"

	"github.com/go-delve/hwbreak/pkg/amd64util"
	"github.com/go-delve/hwbreak/pkg/logflags"
	"github.com/go-delve/hwbreak/pkg/winutil"
)

// Thread is an open handle to an operating system thread, with the rights
// needed to suspend it and to read and write its context.
type Thread struct {
	ID      uint32
	hThread windows.Handle
}

// OpenThread opens the thread with the given id.
func OpenThread(tid uint32) (*Thread, error) {
	h, err := windows.OpenThread(_THREAD_SUSPEND_RESUME|_THREAD_GET_CONTEXT|_THREAD_SET_CONTEXT, false, tid)
	if err != nil {
		return nil, err
	}
	if logflags.Native() {
		logflags.NativeLogger().Debugf("OpenThread(%d) = %#x", tid, h)
	}
	return &Thread{ID: tid, hThread: h}, nil
}

// Suspend increments the suspend count of the thread.
func (t *Thread) Suspend() error {
	n, err := _SuspendThread(t.hThread)
	if logflags.Native() {
		logflags.NativeLogger().Debugf("SuspendThread(%d) = %d, %v", t.ID, n, err)
	}
	return err
}

// Resume decrements the suspend count of the thread.
func (t *Thread) Resume() error {
	n, err := _ResumeThread(t.hThread)
	if logflags.Native() {
		logflags.NativeLogger().Debugf("ResumeThread(%d) = %d, %v", t.ID, n, err)
	}
	return err
}

// GetDebugRegisters reads DR0-DR3, DR6 and DR7 of a suspended thread.
func (t *Thread) GetDebugRegisters(drs *amd64util.DebugRegisters) error {
	context := winutil.NewAMD64CONTEXT()
	context.SetFlags(winutil.CONTEXT_DEBUG_REGISTERS)

	if err := _GetThreadContext(t.hThread, context); err != nil {
		return err
	}
	context.DebugRegisters(drs)
	if logflags.Native() {
		logflags.NativeLogger().Debugf("GetThreadContext(%d): DR7=%#x", t.ID, drs.DR7)
	}
	return nil
}

// SetDebugRegisters writes DR0-DR3, DR6 and DR7 of a suspended thread.
// Only the debug registers are part of the write, the rest of the
// register file is not touched.
func (t *Thread) SetDebugRegisters(drs *amd64util.DebugRegisters) error {
	context := winutil.NewAMD64CONTEXT()
	context.SetFlags(winutil.CONTEXT_DEBUG_REGISTERS)
	context.SetDebugRegisters(drs)

	err := _SetThreadContext(t.hThread, context)
	if logflags.Native() {
		logflags.NativeLogger().Debugf("SetThreadContext(%d): DR7=%#x, %v", t.ID, drs.DR7, err)
	}
	return err
}

// Close closes the thread handle.
func (t *Thread) Close() error {
	return windows.CloseHandle(t.hThread)
}
