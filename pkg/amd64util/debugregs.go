package amd64util

import (
	"errors"
	"fmt"
	"strings"
)

// NumSlots is the number of hardware breakpoint slots (DR0 through DR3).
const NumSlots = 4

// Values of the R/Wn fields of DR7 (with CR4.DE set).
const (
	RWExecute   uint8 = 0x0 // break on instruction execution only
	RWWrite     uint8 = 0x1 // break on data writes only
	RWIO        uint8 = 0x2 // break on I/O reads or writes
	RWReadWrite uint8 = 0x3 // break on data reads or writes
)

var (
	// ErrExhausted is returned when every slot has its local enable bit set.
	ErrExhausted = errors.New("hardware breakpoints exhausted")
	// ErrSlotInUse is returned when writing a slot whose local enable bit
	// is already set.
	ErrSlotInUse = errors.New("hardware breakpoint slot already in use")
)

// DebugRegisters represents x86 debug registers described in the Intel 64
// and IA-32 Architectures Software Developer's Manual, Vol. 3B, section
// 17.2
type DebugRegisters struct {
	Addrs    [NumSlots]uint64
	DR6, DR7 uint64
	Dirty    bool
}

func lenrwBitsOffset(idx uint8) uint8 {
	return 16 + idx*4
}

func enableBitOffset(idx uint8) uint8 {
	return idx * 2
}

// slotBits covers every DR7 bit owned by some slot: L0-L3/G0-G3 (bits 0-7)
// and the R/W and LEN fields (bits 16-31).
const slotBits uint64 = 0xff | 0xffff<<16

// LenCode converts a watched region size in bytes into the LENn encoding.
func LenCode(sz int) (uint8, error) {
	switch sz {
	case 1:
		return 0x0, nil
	case 2:
		return 0x1, nil
	case 4:
		return 0x3, nil
	case 8:
		return 0x2, nil
	}
	return 0, fmt.Errorf("data breakpoint of size %d not supported", sz)
}

// LenSize converts a LENn encoding into a size in bytes.
func LenSize(code uint8) int {
	switch code & 0x3 {
	case 0x0:
		return 1
	case 0x1:
		return 2
	case 0x2:
		return 8 // sic
	default:
		return 4
	}
}

// Slot is the part of DR7 describing a single breakpoint slot.
type Slot struct {
	LocalEnable  bool
	GlobalEnable bool
	RW           uint8 // 2 bits, one of the RW* constants
	Len          uint8 // 2 bits, see LenSize
}

// ControlRegister is the decoded form of DR7. Bits that do not belong to
// any slot (LE, GE, RTM, GD and the reserved bits) are kept verbatim.
type ControlRegister struct {
	Slots [NumSlots]Slot
	other uint64
}

// DecodeDR7 splits a raw DR7 value into its per-slot fields.
func DecodeDR7(raw uint64) ControlRegister {
	cr := ControlRegister{other: raw &^ slotBits}
	for i := range cr.Slots {
		idx := uint8(i)
		lenrw := (raw >> lenrwBitsOffset(idx)) & 0xf
		cr.Slots[i] = Slot{
			LocalEnable:  raw&(1<<enableBitOffset(idx)) != 0,
			GlobalEnable: raw&(1<<(enableBitOffset(idx)+1)) != 0,
			RW:           uint8(lenrw & 0x3),
			Len:          uint8(lenrw >> 2),
		}
	}
	return cr
}

// Encode is the inverse of DecodeDR7.
func (cr ControlRegister) Encode() uint64 {
	raw := cr.other &^ slotBits
	for i, s := range cr.Slots {
		idx := uint8(i)
		if s.LocalEnable {
			raw |= 1 << enableBitOffset(idx)
		}
		if s.GlobalEnable {
			raw |= 1 << (enableBitOffset(idx) + 1)
		}
		lenrw := uint64(s.RW&0x3) | uint64(s.Len&0x3)<<2
		raw |= lenrw << lenrwBitsOffset(idx)
	}
	return raw
}

// Other returns the bits of DR7 that are not owned by any slot.
func (cr ControlRegister) Other() uint64 {
	return cr.other
}

// SetSlot rewrites the local enable bit and the R/W and LEN fields of slot
// idx. The global enable bit of the slot and every other slot are left
// untouched.
func (cr *ControlRegister) SetSlot(idx uint8, localEnable bool, rw, lencode uint8) {
	s := &cr.Slots[idx]
	s.LocalEnable = localEnable
	s.RW = rw & 0x3
	s.Len = lencode & 0x3
}

// ClearSlot zeroes the local enable bit and the R/W and LEN fields of slot
// idx. The corresponding address register is not modified.
func (cr *ControlRegister) ClearSlot(idx uint8) {
	cr.SetSlot(idx, false, 0, 0)
}

// FreeSlot returns the lowest slot whose local enable bit is clear. Global
// enable bits are ignored.
func (cr *ControlRegister) FreeSlot() (idx uint8, ok bool) {
	for i, s := range cr.Slots {
		if !s.LocalEnable {
			return uint8(i), true
		}
	}
	return 0, false
}

func (cr ControlRegister) String() string {
	var b strings.Builder
	for i, s := range cr.Slots {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%d:", i)
		if s.LocalEnable {
			b.WriteString("L")
		} else {
			b.WriteString("-")
		}
		if s.GlobalEnable {
			b.WriteString("G")
		} else {
			b.WriteString("-")
		}
		fmt.Fprintf(&b, "/rw=%d/len=%d", s.RW, LenSize(s.Len))
	}
	fmt.Fprintf(&b, " other=%#x", cr.other)
	return b.String()
}

// ControlRegister decodes DR7.
func (drs *DebugRegisters) ControlRegister() ControlRegister {
	return DecodeDR7(drs.DR7)
}

// Breakpoint returns the address, R/W type and size of the breakpoint in
// slot idx. If the slot is not locally enabled ok is false.
func (drs *DebugRegisters) Breakpoint(idx uint8) (addr uint64, rw uint8, sz int, ok bool) {
	if int(idx) >= NumSlots {
		return 0, 0, 0, false
	}
	s := drs.ControlRegister().Slots[idx]
	if !s.LocalEnable {
		return 0, 0, 0, false
	}
	return drs.Addrs[idx], s.RW, LenSize(s.Len), true
}

// SetBreakpoint sets hardware breakpoint at index 'idx' to the specified
// address, R/W type and size.
func (drs *DebugRegisters) SetBreakpoint(idx uint8, addr uint64, rw uint8, sz int) error {
	if int(idx) >= NumSlots {
		return ErrExhausted
	}
	lencode, err := LenCode(sz)
	if err != nil {
		return err
	}
	cr := drs.ControlRegister()
	if cr.Slots[idx].LocalEnable {
		return fmt.Errorf("%w: slot %d (address %#x)", ErrSlotInUse, idx, drs.Addrs[idx])
	}
	cr.SetSlot(idx, true, rw, lencode)

	drs.Addrs[idx] = addr
	drs.DR7 = cr.Encode()
	drs.Dirty = true
	return nil
}

// AllocBreakpoint sets a hardware breakpoint in the first free slot and
// returns its index.
func (drs *DebugRegisters) AllocBreakpoint(addr uint64, rw uint8, sz int) (uint8, error) {
	cr := drs.ControlRegister()
	idx, ok := cr.FreeSlot()
	if !ok {
		return 0, ErrExhausted
	}
	if err := drs.SetBreakpoint(idx, addr, rw, sz); err != nil {
		return 0, err
	}
	return idx, nil
}

// ClearBreakpoint disables the hardware breakpoint at index 'idx' and
// zeroes its address register.
func (drs *DebugRegisters) ClearBreakpoint(idx uint8) error {
	if int(idx) >= NumSlots {
		return fmt.Errorf("invalid hardware breakpoint index %d", idx)
	}
	cr := drs.ControlRegister()
	cr.ClearSlot(idx)
	drs.Addrs[idx] = 0
	drs.DR7 = cr.Encode()
	drs.Dirty = true
	return nil
}
