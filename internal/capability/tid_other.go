//go:build !linux

package capability

import (
	"fmt"
	"runtime"

	"github.com/wagiedev/workerctl/internal/errors"
)

func threadID() (uint32, error) {
	return 0, fmt.Errorf("thread id on %s: %w", runtime.GOOS, errors.ErrUnsupported)
}
