package hwbreak

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/go-delve/hwbreak/pkg/amd64util"
	"github.com/go-delve/hwbreak/pkg/logflags"
)

// Condition is the kind of access that triggers a breakpoint. The values
// are the R/Wn encodings of DR7.
type Condition uint8

const (
	Execute     Condition = Condition(amd64util.RWExecute)   // instruction execution only
	Write       Condition = Condition(amd64util.RWWrite)     // data writes only
	IOReadWrite Condition = Condition(amd64util.RWIO)        // I/O reads or writes
	ReadWrite   Condition = Condition(amd64util.RWReadWrite) // data reads or writes
)

func (c Condition) String() string {
	switch c {
	case Execute:
		return "execute"
	case Write:
		return "write"
	case IOReadWrite:
		return "io"
	case ReadWrite:
		return "readwrite"
	}
	return fmt.Sprintf("Condition(%d)", uint8(c))
}

// ParseCondition converts the name of a condition, as returned by
// Condition.String, or its short form (x, w, io, rw) into a Condition.
func ParseCondition(s string) (Condition, error) {
	switch strings.ToLower(s) {
	case "execute", "exec", "x":
		return Execute, nil
	case "write", "w":
		return Write, nil
	case "io", "iorw":
		return IOReadWrite, nil
	case "readwrite", "rw":
		return ReadWrite, nil
	}
	return 0, fmt.Errorf("unknown breakpoint condition %q", s)
}

// Length is the size of the watched region. The values are the LENn
// encodings of DR7, which are not in size order.
type Length uint8

const (
	Len1 Length = 0x0
	Len2 Length = 0x1
	Len8 Length = 0x2
	Len4 Length = 0x3
)

// LengthFromSize returns the Length for a region of sz bytes.
func LengthFromSize(sz int) (Length, error) {
	code, err := amd64util.LenCode(sz)
	if err != nil {
		return 0, err
	}
	return Length(code), nil
}

// Bytes returns the size of the watched region in bytes.
func (l Length) Bytes() int {
	return amd64util.LenSize(uint8(l))
}

func (l Length) String() string {
	if l > Len4 {
		return fmt.Sprintf("Length(%d)", uint8(l))
	}
	return fmt.Sprintf("%d bytes", l.Bytes())
}

const unassigned = -1

// Breakpoint is a hardware breakpoint request for a single thread.
// A Breakpoint has an assigned slot if and only if it is enabled.
//
// Breakpoint values are not safe for concurrent use.
type Breakpoint struct {
	id        string
	target    uint64
	tid       uint32
	cond      Condition
	length    Length
	slot      int8
	destroyed bool

	threads Threads
}

// Create returns a disabled breakpoint on target for thread tid using the
// native backend.
func Create(target uint64, tid uint32, cond Condition, length Length) (*Breakpoint, error) {
	return CreateOn(NativeThreads(), target, tid, cond, length)
}

// CreateOn is like Create but uses threads to access the target thread.
// The combination of cond and length is not checked against the
// restrictions of the processor: an Execute breakpoint should use Len1.
func CreateOn(threads Threads, target uint64, tid uint32, cond Condition, length Length) (*Breakpoint, error) {
	if threads == nil {
		return nil, &Error{Op: "create", ThreadID: tid, Kind: InvalidArgument, Err: errors.New("nil Threads")}
	}
	if cond > ReadWrite {
		return nil, &Error{Op: "create", ThreadID: tid, Kind: InvalidArgument, Err: fmt.Errorf("bad condition %d", uint8(cond))}
	}
	if length > Len4 {
		return nil, &Error{Op: "create", ThreadID: tid, Kind: InvalidArgument, Err: fmt.Errorf("bad length %d", uint8(length))}
	}
	return &Breakpoint{
		id:      uuid.NewString(),
		target:  target,
		tid:     tid,
		cond:    cond,
		length:  length,
		slot:    unassigned,
		threads: threads,
	}, nil
}

// ID returns a unique identifier for the breakpoint.
func (bp *Breakpoint) ID() string { return bp.id }

// Target returns the watched address.
func (bp *Breakpoint) Target() uint64 { return bp.target }

// ThreadID returns the id of the monitored thread.
func (bp *Breakpoint) ThreadID() uint32 { return bp.tid }

func (bp *Breakpoint) Condition() Condition { return bp.cond }

func (bp *Breakpoint) Length() Length { return bp.length }

// Slot returns the debug register slot assigned to the breakpoint. If the
// breakpoint is disabled ok is false.
func (bp *Breakpoint) Slot() (slot int, ok bool) {
	if bp.slot == unassigned {
		return 0, false
	}
	return int(bp.slot), true
}

// Enabled returns true if the breakpoint is armed.
func (bp *Breakpoint) Enabled() bool {
	return bp.slot != unassigned
}

func (bp *Breakpoint) String() string {
	state := "disabled"
	if bp.Enabled() {
		state = fmt.Sprintf("slot %d", bp.slot)
	}
	return fmt.Sprintf("%s %#x (%s, %s) thread %d [%s]", bp.id, bp.target, bp.cond, bp.length, bp.tid, state)
}

func (bp *Breakpoint) logger(op string) logflags.Logger {
	return logflags.HWBreakLogger().WithFields(logflags.Fields{"op": op, "tid": bp.tid, "bp": bp.id})
}

// Enable assigns the first free debug register slot of the thread to the
// breakpoint and arms it. If Enable fails the breakpoint is unchanged.
func (bp *Breakpoint) Enable() error {
	const op = "enable"
	if bp.destroyed || bp.Enabled() {
		return &Error{Op: op, ThreadID: bp.tid, Kind: InvalidState}
	}

	var idx uint8
	err := withDebugRegisters(bp.threads, bp.tid, op, func(drs *amd64util.DebugRegisters) error {
		var err error
		idx, err = drs.AllocBreakpoint(bp.target, uint8(bp.cond), bp.length.Bytes())
		switch {
		case errors.Is(err, amd64util.ErrExhausted):
			return &Error{Op: op, ThreadID: bp.tid, Kind: SlotExhausted}
		case err != nil:
			return &Error{Op: op, ThreadID: bp.tid, Kind: InvalidArgument, Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	bp.slot = int8(idx)
	if logflags.HWBreak() {
		bp.logger(op).Debugf("%#x armed in slot %d", bp.target, idx)
	}
	return nil
}

// Disable disarms the breakpoint and releases its slot. Disable on a
// breakpoint that is not enabled returns InvalidState.
func (bp *Breakpoint) Disable() error {
	const op = "disable"
	if bp.destroyed || !bp.Enabled() {
		return &Error{Op: op, ThreadID: bp.tid, Kind: InvalidState}
	}

	err := withDebugRegisters(bp.threads, bp.tid, op, func(drs *amd64util.DebugRegisters) error {
		if err := drs.ClearBreakpoint(uint8(bp.slot)); err != nil {
			return &Error{Op: op, ThreadID: bp.tid, Kind: InvalidState, Err: err}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if logflags.HWBreak() {
		bp.logger(op).Debugf("slot %d released", bp.slot)
	}
	bp.slot = unassigned
	return nil
}

// Destroy releases the breakpoint, disabling it first if it is still
// enabled. If disabling fails the breakpoint is left enabled and usable.
// Destroying a breakpoint twice is a no-op.
func (bp *Breakpoint) Destroy() error {
	if bp.destroyed {
		return nil
	}
	if bp.Enabled() {
		if err := bp.Disable(); err != nil {
			return err
		}
	}
	bp.destroyed = true
	bp.threads = nil
	return nil
}
