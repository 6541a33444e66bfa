//go:build linux

package capability

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func threadID() (uint32, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	return uint32(unix.Gettid()), nil //nolint:gosec // tids are positive
}
