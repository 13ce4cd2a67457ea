// Package native implements the operating system primitives needed to
// read and write the debug registers of a live thread.
package native

import (
	"errors"
	"runtime"
)

// ErrUnsupported is returned by OpenThread on platforms without a native
// backend.
var ErrUnsupported = errors.New("hardware breakpoints not supported on " + runtime.GOOS + "/" + runtime.GOARCH)
