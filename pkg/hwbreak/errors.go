package hwbreak

import "fmt"

// ErrorKind classifies the failures reported by this package. An ErrorKind
// is itself an error so that callers can write
//
//	errors.Is(err, hwbreak.SlotExhausted)
type ErrorKind uint8

const (
	// AllocationFailure is part of the taxonomy for completeness: the Go
	// runtime aborts on out of memory conditions so Create never returns
	// it.
	AllocationFailure ErrorKind = iota + 1
	HandleAcquisitionFailure
	SuspendFailure
	ContextReadFailure
	ContextWriteFailure
	SlotExhausted
	InvalidState
	InvalidArgument
)

func (k ErrorKind) Error() string {
	switch k {
	case AllocationFailure:
		return "allocation failure"
	case HandleAcquisitionFailure:
		return "could not open thread"
	case SuspendFailure:
		return "could not suspend thread"
	case ContextReadFailure:
		return "could not read thread context"
	case ContextWriteFailure:
		return "could not write thread context"
	case SlotExhausted:
		return "hardware breakpoints exhausted"
	case InvalidState:
		return "invalid breakpoint state"
	case InvalidArgument:
		return "invalid argument"
	}
	return fmt.Sprintf("unknown error kind %d", uint8(k))
}

// Error is the error returned by Create, Enable, Disable, Destroy and
// Inspect.
type Error struct {
	Op       string // "create", "enable", "disable" or "inspect"
	ThreadID uint32
	Kind     ErrorKind
	Err      error // underlying error, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s thread %d: %v: %v", e.Op, e.ThreadID, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s thread %d: %v", e.Op, e.ThreadID, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the ErrorKind of e.
func (e *Error) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}
