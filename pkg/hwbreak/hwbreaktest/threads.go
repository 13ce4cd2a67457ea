// Package hwbreaktest provides an in-memory hwbreak.Threads for tests.
package hwbreaktest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-delve/hwbreak/pkg/amd64util"
	"github.com/go-delve/hwbreak/pkg/hwbreak"
)

// Step identifies one of the primitives of a thread backend.
type Step int

const (
	Open Step = iota
	Suspend
	GetContext
	SetContext
	Resume
	Close
	numSteps
)

func (s Step) String() string {
	switch s {
	case Open:
		return "open"
	case Suspend:
		return "suspend"
	case GetContext:
		return "getcontext"
	case SetContext:
		return "setcontext"
	case Resume:
		return "resume"
	case Close:
		return "close"
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// ErrInjected is the default error returned by failing steps.
var ErrInjected = errors.New("injected failure")

// Threads simulates the debug registers of a set of threads. Every thread
// id can be opened; threads that were never written start with zeroed
// registers. Threads is safe for concurrent use.
type Threads struct {
	mu        sync.Mutex
	regs      map[uint32]amd64util.DebugRegisters
	suspended map[uint32]int
	open      int
	calls     [numSteps]int
	fail      [numSteps]error

	// Hook, if set, is called without holding any lock after each
	// successful step.
	Hook func(tid uint32, step Step)
}

// NewThreads returns an empty Threads.
func NewThreads() *Threads {
	return &Threads{
		regs:      make(map[uint32]amd64util.DebugRegisters),
		suspended: make(map[uint32]int),
	}
}

// FailAt makes every subsequent call to step fail with err. A nil err
// restores normal behavior.
func (ts *Threads) FailAt(step Step, err error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.fail[step] = err
}

// Calls returns how many times step was attempted, failed calls included.
func (ts *Threads) Calls(step Step) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.calls[step]
}

// Registers returns a copy of the debug registers of thread tid.
func (ts *Threads) Registers(tid uint32) *amd64util.DebugRegisters {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	drs := ts.regs[tid]
	return &drs
}

// SetRegisters replaces the debug registers of thread tid.
func (ts *Threads) SetRegisters(tid uint32, drs amd64util.DebugRegisters) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	drs.Dirty = false
	ts.regs[tid] = drs
}

// SuspendCount returns the suspend count of thread tid.
func (ts *Threads) SuspendCount(tid uint32) int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.suspended[tid]
}

// OpenHandles returns the number of handles that have not been closed.
func (ts *Threads) OpenHandles() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.open
}

func (ts *Threads) step(tid uint32, step Step, f func() error) error {
	ts.mu.Lock()
	ts.calls[step]++
	err := ts.fail[step]
	if err == nil && f != nil {
		err = f()
	}
	ts.mu.Unlock()
	if err == nil && ts.Hook != nil {
		ts.Hook(tid, step)
	}
	return err
}

// OpenThread implements hwbreak.Threads.
func (ts *Threads) OpenThread(tid uint32) (hwbreak.Thread, error) {
	err := ts.step(tid, Open, func() error {
		ts.open++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &thread{ts: ts, tid: tid}, nil
}

type thread struct {
	ts     *Threads
	tid    uint32
	closed bool
}

var (
	errClosed       = errors.New("handle closed")
	errNotSuspended = errors.New("thread not suspended")
)

func (t *thread) Suspend() error {
	return t.ts.step(t.tid, Suspend, func() error {
		if t.closed {
			return errClosed
		}
		t.ts.suspended[t.tid]++
		return nil
	})
}

func (t *thread) Resume() error {
	return t.ts.step(t.tid, Resume, func() error {
		if t.closed {
			return errClosed
		}
		if t.ts.suspended[t.tid] == 0 {
			return errNotSuspended
		}
		t.ts.suspended[t.tid]--
		return nil
	})
}

func (t *thread) GetDebugRegisters(drs *amd64util.DebugRegisters) error {
	return t.ts.step(t.tid, GetContext, func() error {
		if t.closed {
			return errClosed
		}
		if t.ts.suspended[t.tid] == 0 {
			return errNotSuspended
		}
		*drs = t.ts.regs[t.tid]
		drs.Dirty = false
		return nil
	})
}

func (t *thread) SetDebugRegisters(drs *amd64util.DebugRegisters) error {
	return t.ts.step(t.tid, SetContext, func() error {
		if t.closed {
			return errClosed
		}
		if t.ts.suspended[t.tid] == 0 {
			return errNotSuspended
		}
		r := *drs
		r.Dirty = false
		t.ts.regs[t.tid] = r
		return nil
	})
}

func (t *thread) Close() error {
	return t.ts.step(t.tid, Close, func() error {
		if t.closed {
			return errClosed
		}
		t.closed = true
		t.ts.open--
		return nil
	})
}
