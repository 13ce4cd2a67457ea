package winutil

import (
	"unsafe"

	"github.com/go-delve/hwbreak/pkg/amd64util"
)

// Values for CONTEXT.ContextFlags on amd64.
const (
	CONTEXT_AMD64           = 0x100000
	CONTEXT_CONTROL         = (CONTEXT_AMD64 | 0x1)
	CONTEXT_INTEGER         = (CONTEXT_AMD64 | 0x2)
	CONTEXT_SEGMENTS        = (CONTEXT_AMD64 | 0x4)
	CONTEXT_FLOATING_POINT  = (CONTEXT_AMD64 | 0x8)
	CONTEXT_DEBUG_REGISTERS = (CONTEXT_AMD64 | 0x10)
)

// AMD64CONTEXT tracks the _CONTEXT of windows. Only the control and debug
// registers are named, the floating point and vector state is kept as an
// opaque area so that the structure has the size GetThreadContext expects.
type AMD64CONTEXT struct {
	P1Home, P2Home, P3Home, P4Home, P5Home, P6Home uint64

	ContextFlags uint32
	MxCsr        uint32

	SegCs, SegDs, SegEs, SegFs, SegGs, SegSs uint16
	EFlags                                   uint32

	Dr0, Dr1, Dr2, Dr3 uint64
	Dr6, Dr7           uint64

	// Rax, Rcx, Rdx, Rbx, Rsp, Rbp, Rsi, Rdi, R8-R15
	Gpr [16]uint64
	Rip uint64

	// FltSave, VectorRegister, VectorControl and the last branch records.
	ExtendedState [0x3d0]byte
}

// NewAMD64CONTEXT allocates Windows CONTEXT structure aligned to 16 bytes.
func NewAMD64CONTEXT() *AMD64CONTEXT {
	var c *AMD64CONTEXT
	buf := make([]byte, unsafe.Sizeof(*c)+15)
	return (*AMD64CONTEXT)(unsafe.Pointer((uintptr(unsafe.Pointer(&buf[15]))) &^ 15))
}

func (ctx *AMD64CONTEXT) SetFlags(flags uint32) {
	ctx.ContextFlags = flags
}

// DebugRegisters copies DR0-DR3, DR6 and DR7 out of the context.
func (ctx *AMD64CONTEXT) DebugRegisters(drs *amd64util.DebugRegisters) {
	drs.Addrs = [amd64util.NumSlots]uint64{ctx.Dr0, ctx.Dr1, ctx.Dr2, ctx.Dr3}
	drs.DR6 = ctx.Dr6
	drs.DR7 = ctx.Dr7
	drs.Dirty = false
}

// SetDebugRegisters copies DR0-DR3, DR6 and DR7 into the context.
func (ctx *AMD64CONTEXT) SetDebugRegisters(drs *amd64util.DebugRegisters) {
	ctx.Dr0, ctx.Dr1, ctx.Dr2, ctx.Dr3 = drs.Addrs[0], drs.Addrs[1], drs.Addrs[2], drs.Addrs[3]
	ctx.Dr6 = drs.DR6
	ctx.Dr7 = drs.DR7
}
