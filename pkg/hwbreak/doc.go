// Package hwbreak arms and disarms x86 hardware breakpoints on operating
// system threads.
//
// A Breakpoint describes a watch on an address (execution, write, I/O or
// read/write access, 1, 2, 4 or 8 bytes wide) for a single thread. Enable
// assigns it one of the four debug register slots of that thread, Disable
// releases the slot. Both run the same protocol against the thread: open a
// handle, suspend the thread, read its debug registers, modify them, write
// them back, resume the thread and close the handle. A thread suspended by
// Enable or Disable is always resumed before they return.
//
// Nothing in this package serializes concurrent calls against the same
// thread: two Enable calls racing on one thread can both pick the same
// free slot. Callers that manage more than one breakpoint per thread from
// several goroutines should wrap their backend with Serialize.
//
// Reading the debug status register and handling the single step exception
// raised when a breakpoint fires is left to the caller.
package hwbreak
