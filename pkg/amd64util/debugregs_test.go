package amd64util

import (
	"errors"
	"math/rand"
	"testing"
)

func randomDR7s(n int) []uint64 {
	r := rand.New(rand.NewSource(17))
	v := []uint64{0, ^uint64(0), 0x400, 0x55, 0xaa, 0xffff0000, 0x00000000ffff00ff}
	for i := 0; i < n; i++ {
		v = append(v, r.Uint64())
	}
	return v
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	for _, x := range randomDR7s(5000) {
		if got := DecodeDR7(x).Encode(); got != x {
			t.Fatalf("Encode(DecodeDR7(%#x)) = %#x", x, got)
		}
	}
}

func TestDecodeLayout(t *testing.T) {
	// L1, G3, RW2=write, LEN2=8 bytes, GD
	raw := uint64(1<<2 | 1<<7 | 0x1<<24 | 0x2<<26 | 1<<13)
	cr := DecodeDR7(raw)
	want := [NumSlots]Slot{
		{},
		{LocalEnable: true},
		{RW: RWWrite, Len: 0x2},
		{GlobalEnable: true},
	}
	if cr.Slots != want {
		t.Fatalf("slots mismatch:\ngot  %#v\nwant %#v", cr.Slots, want)
	}
	if cr.Other() != 1<<13 {
		t.Fatalf("other bits: got %#x want %#x", cr.Other(), uint64(1<<13))
	}
	if LenSize(cr.Slots[2].Len) != 8 {
		t.Fatalf("wrong size for slot 2: %d", LenSize(cr.Slots[2].Len))
	}
}

func TestLenCode(t *testing.T) {
	for _, tc := range []struct {
		sz   int
		code uint8
	}{
		{1, 0}, {2, 1}, {8, 2}, {4, 3},
	} {
		code, err := LenCode(tc.sz)
		if err != nil {
			t.Fatalf("LenCode(%d): %v", tc.sz, err)
		}
		if code != tc.code {
			t.Errorf("LenCode(%d) = %d, want %d", tc.sz, code, tc.code)
		}
		if sz := LenSize(tc.code); sz != tc.sz {
			t.Errorf("LenSize(%d) = %d, want %d", tc.code, sz, tc.sz)
		}
	}
	for _, sz := range []int{0, 3, 5, 16, -1} {
		if _, err := LenCode(sz); err == nil {
			t.Errorf("LenCode(%d) did not fail", sz)
		}
	}
}

// slotMask returns the DR7 bits owned by slot idx, excluding its global
// enable bit.
func slotMask(idx uint8) uint64 {
	return 1<<enableBitOffset(idx) | 0xf<<lenrwBitsOffset(idx)
}

func TestSetSlotIsolation(t *testing.T) {
	for _, x := range randomDR7s(500) {
		for idx := uint8(0); idx < NumSlots; idx++ {
			for _, rw := range []uint8{RWExecute, RWWrite, RWIO, RWReadWrite} {
				cr := DecodeDR7(x)
				cr.SetSlot(idx, true, rw, 0x3)
				got := cr.Encode()
				if got&^slotMask(idx) != x&^slotMask(idx) {
					t.Fatalf("SetSlot(%d) on %#x changed foreign bits: %#x", idx, x, got)
				}
				s := DecodeDR7(got).Slots[idx]
				if !s.LocalEnable || s.RW != rw || s.Len != 0x3 {
					t.Fatalf("SetSlot(%d) on %#x: slot decoded as %#v", idx, x, s)
				}

				cr.ClearSlot(idx)
				got = cr.Encode()
				if got&^slotMask(idx) != x&^slotMask(idx) {
					t.Fatalf("ClearSlot(%d) on %#x changed foreign bits: %#x", idx, x, got)
				}
				if got&slotMask(idx) != 0 {
					t.Fatalf("ClearSlot(%d) on %#x left slot bits set: %#x", idx, x, got)
				}
			}
		}
	}
}

func TestFreeSlot(t *testing.T) {
	for l := uint64(0); l < 16; l++ {
		// spread the 4 local enable bits over bits 0, 2, 4, 6 and set
		// every global enable bit, which must be ignored
		var raw uint64 = 0xaa
		for i := uint8(0); i < NumSlots; i++ {
			if l&(1<<i) != 0 {
				raw |= 1 << enableBitOffset(i)
			}
		}
		cr := DecodeDR7(raw)
		idx, ok := cr.FreeSlot()
		if l == 0xf {
			if ok {
				t.Errorf("%#x: expected exhausted, got %d", raw, idx)
			}
			continue
		}
		want := uint8(0)
		for l&(1<<want) != 0 {
			want++
		}
		if !ok || idx != want {
			t.Errorf("%#x: got (%d, %v) want (%d, true)", raw, idx, ok, want)
		}
	}
}

func TestSetBreakpoint(t *testing.T) {
	var drs DebugRegisters
	if err := drs.SetBreakpoint(0, 0x1000, RWWrite, 4); err != nil {
		t.Fatal(err)
	}
	if !drs.Dirty {
		t.Fatal("registers not marked dirty")
	}
	if drs.Addrs[0] != 0x1000 {
		t.Fatalf("DR0 = %#x", drs.Addrs[0])
	}
	if drs.DR7 != 0xd0001 {
		t.Fatalf("DR7 = %#x, want %#x", drs.DR7, 0xd0001)
	}
	addr, rw, sz, ok := drs.Breakpoint(0)
	if !ok || addr != 0x1000 || rw != RWWrite || sz != 4 {
		t.Fatalf("Breakpoint(0) = %#x %d %d %v", addr, rw, sz, ok)
	}

	if err := drs.SetBreakpoint(0, 0x2000, RWReadWrite, 8); !errors.Is(err, ErrSlotInUse) {
		t.Fatalf("expected ErrSlotInUse, got %v", err)
	}
	if err := drs.SetBreakpoint(1, 0x2000, RWReadWrite, 3); err == nil {
		t.Fatal("expected error for size 3")
	}
	if err := drs.SetBreakpoint(NumSlots, 0x2000, RWReadWrite, 8); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestAllocAndClearBreakpoint(t *testing.T) {
	drs := DebugRegisters{DR7: 0x400, DR6: 0xffff0ff0}
	for i := 0; i < NumSlots; i++ {
		idx, err := drs.AllocBreakpoint(uint64(0x1000*(i+1)), RWReadWrite, 8)
		if err != nil {
			t.Fatal(err)
		}
		if int(idx) != i {
			t.Fatalf("allocated slot %d, want %d", idx, i)
		}
	}
	before := drs
	if _, err := drs.AllocBreakpoint(0x9000, RWWrite, 1); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if drs != before {
		t.Fatal("failed allocation modified registers")
	}

	if err := drs.ClearBreakpoint(2); err != nil {
		t.Fatal(err)
	}
	if drs.Addrs[2] != 0 {
		t.Fatalf("DR2 not cleared: %#x", drs.Addrs[2])
	}
	if _, _, _, ok := drs.Breakpoint(2); ok {
		t.Fatal("slot 2 still enabled")
	}
	idx, err := drs.AllocBreakpoint(0xa000, RWExecute, 1)
	if err != nil || idx != 2 {
		t.Fatalf("expected slot 2 to be reused, got %d %v", idx, err)
	}

	for i := uint8(0); i < NumSlots; i++ {
		if err := drs.ClearBreakpoint(i); err != nil {
			t.Fatal(err)
		}
	}
	if drs.DR7 != 0x400 {
		t.Fatalf("DR7 = %#x after clearing every slot", drs.DR7)
	}
	if drs.DR6 != 0xffff0ff0 {
		t.Fatalf("DR6 modified: %#x", drs.DR6)
	}
	if err := drs.ClearBreakpoint(NumSlots); err == nil {
		t.Fatal("expected error for out of range index")
	}
}
