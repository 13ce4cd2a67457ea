//go:generate go run golang.org/x/sys/windows/mkwinsyscall -output zsyscall_windows.go syscall_windows.go

package native

// Access rights requested by OpenThread.
const (
	_THREAD_SUSPEND_RESUME = 0x0002
	_THREAD_GET_CONTEXT    = 0x0008
	_THREAD_SET_CONTEXT    = 0x0010
)

//sys	_GetThreadContext(thread windows.Handle, context *winutil.AMD64CONTEXT) (err error) = kernel32.GetThreadContext
//sys	_SetThreadContext(thread windows.Handle, context *winutil.AMD64CONTEXT) (err error) = kernel32.SetThreadContext
//sys	_SuspendThread(thread windows.Handle) (prevsuspcount uint32, err error) [failretval==0xffffffff] = kernel32.SuspendThread
//sys	_ResumeThread(thread windows.Handle) (prevsuspcount uint32, err error) [failretval==0xffffffff] = kernel32.ResumeThread
