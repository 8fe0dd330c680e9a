//go:build !linux

package storage

import (
	"fmt"
	"os"
)

// On non-Linux platforms there's no O_DIRECT to wrap; WithDirectIO falls
// back to the buffered backend instead of failing Create/Open outright.
const directIOSupported = false

func openDirectDevice(name string, flag int, perm os.FileMode) (blockDevice, error) {
	return nil, fmt.Errorf("direct I/O backend unavailable on this platform")
}
