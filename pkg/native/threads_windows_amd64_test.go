package native

import (
	"runtime"
	"testing"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/go-delve/hwbreak/pkg/amd64util"
)

var watched uint64

// parkedThread starts an OS thread that blocks until the returned function
// is called and returns its id.
func parkedThread() (uint32, func()) {
	tidch := make(chan uint32)
	done := make(chan struct{})
	go func() {
		runtime.LockOSThread()
		tidch <- windows.GetCurrentThreadId()
		<-done
		// exit without unlocking so that the thread is destroyed
	}()
	return <-tidch, func() { close(done) }
}

func TestThreadDebugRegisters(t *testing.T) {
	tid, release := parkedThread()
	defer release()

	th, err := OpenThread(tid)
	if err != nil {
		t.Fatalf("OpenThread(%d): %v", tid, err)
	}
	defer th.Close()

	if err := th.Suspend(); err != nil {
		t.Fatal(err)
	}
	defer th.Resume()

	var drs amd64util.DebugRegisters
	if err := th.GetDebugRegisters(&drs); err != nil {
		t.Fatal(err)
	}
	orig := drs

	addr := uint64(uintptr(unsafe.Pointer(&watched)))
	idx, err := drs.AllocBreakpoint(addr, amd64util.RWWrite, 8)
	if err != nil {
		t.Fatal(err)
	}
	if err := th.SetDebugRegisters(&drs); err != nil {
		t.Fatal(err)
	}

	var after amd64util.DebugRegisters
	if err := th.GetDebugRegisters(&after); err != nil {
		t.Fatal(err)
	}
	if got, rw, sz, ok := after.Breakpoint(idx); !ok || got != addr || rw != amd64util.RWWrite || sz != 8 {
		t.Fatalf("breakpoint read back as %#x %d %d %v", got, rw, sz, ok)
	}

	if err := after.ClearBreakpoint(idx); err != nil {
		t.Fatal(err)
	}
	if err := th.SetDebugRegisters(&after); err != nil {
		t.Fatal(err)
	}
	if err := th.GetDebugRegisters(&after); err != nil {
		t.Fatal(err)
	}
	if after.DR7 != orig.DR7 || after.Addrs != orig.Addrs {
		t.Fatalf("registers not restored: DR7 %#x -> %#x", orig.DR7, after.DR7)
	}
}

func TestOpenThreadInvalid(t *testing.T) {
	if _, err := OpenThread(0); err == nil {
		t.Fatal("expected error opening thread 0")
	}
}
