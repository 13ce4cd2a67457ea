package hwbreak

import (
	"github.com/go-delve/hwbreak/pkg/amd64util"
	"github.com/go-delve/hwbreak/pkg/logflags"
	"github.com/go-delve/hwbreak/pkg/native"
)

// Thread is an open handle to an operating system thread.
type Thread interface {
	Suspend() error
	Resume() error
	// GetDebugRegisters and SetDebugRegisters are only called while the
	// thread is suspended. SetDebugRegisters must write every register in
	// drs or none of them.
	GetDebugRegisters(drs *amd64util.DebugRegisters) error
	SetDebugRegisters(drs *amd64util.DebugRegisters) error
	Close() error
}

// Threads opens operating system threads by id.
type Threads interface {
	OpenThread(tid uint32) (Thread, error)
}

type nativeThreads struct{}

// NativeThreads returns the backend for the current operating system.
// On platforms without one every OpenThread call fails.
func NativeThreads() Threads {
	return nativeThreads{}
}

func (nativeThreads) OpenThread(tid uint32) (Thread, error) {
	t, err := native.OpenThread(tid)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// withDebugRegisters opens and suspends thread tid, reads its debug
// registers and calls f on them. If f returns nil and modified the
// registers they are written back. The thread is always resumed and the
// handle closed before returning.
func withDebugRegisters(threads Threads, tid uint32, op string, f func(*amd64util.DebugRegisters) error) error {
	logger := logflags.HWBreakLogger().WithFields(logflags.Fields{"op": op, "tid": tid})

	t, err := threads.OpenThread(tid)
	if err != nil {
		return &Error{Op: op, ThreadID: tid, Kind: HandleAcquisitionFailure, Err: err}
	}
	defer func() {
		if err := t.Close(); err != nil {
			logger.Errorf("could not close thread handle: %v", err)
		}
	}()

	if err := t.Suspend(); err != nil {
		return &Error{Op: op, ThreadID: tid, Kind: SuspendFailure, Err: err}
	}
	defer func() {
		if err := t.Resume(); err != nil {
			logger.Errorf("could not resume thread: %v", err)
		}
	}()

	var drs amd64util.DebugRegisters
	if err := t.GetDebugRegisters(&drs); err != nil {
		return &Error{Op: op, ThreadID: tid, Kind: ContextReadFailure, Err: err}
	}
	if logflags.HWBreak() {
		logger.Debugf("read DR7=%#x", drs.DR7)
	}

	if err := f(&drs); err != nil {
		return err
	}

	if !drs.Dirty {
		return nil
	}
	if err := t.SetDebugRegisters(&drs); err != nil {
		return &Error{Op: op, ThreadID: tid, Kind: ContextWriteFailure, Err: err}
	}
	if logflags.HWBreak() {
		logger.Debugf("wrote DR7=%#x", drs.DR7)
	}
	return nil
}

// Inspect returns the debug registers of thread tid. The thread is
// suspended while they are read.
func Inspect(threads Threads, tid uint32) (amd64util.DebugRegisters, error) {
	var r amd64util.DebugRegisters
	err := withDebugRegisters(threads, tid, "inspect", func(drs *amd64util.DebugRegisters) error {
		r = *drs
		return nil
	})
	return r, err
}
