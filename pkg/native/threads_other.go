//go:build !windows || !amd64
// +build !windows !amd64

package native

import "github.com/go-delve/hwbreak/pkg/amd64util"

// Thread is an open handle to an operating system thread. There is no
// native backend for this platform, every method fails with
// ErrUnsupported.
type Thread struct {
	ID uint32
}

func OpenThread(tid uint32) (*Thread, error) {
	return nil, ErrUnsupported
}

func (t *Thread) Suspend() error {
	return ErrUnsupported
}

func (t *Thread) Resume() error {
	return ErrUnsupported
}

func (t *Thread) GetDebugRegisters(drs *amd64util.DebugRegisters) error {
	return ErrUnsupported
}

func (t *Thread) SetDebugRegisters(drs *amd64util.DebugRegisters) error {
	return ErrUnsupported
}

func (t *Thread) Close() error {
	return nil
}
