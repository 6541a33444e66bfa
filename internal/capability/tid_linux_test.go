//go:build linux

package capability

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocal_ThreadID(t *testing.T) {
	l := New(slog.New(slog.DiscardHandler), nil)

	tid, err := l.ThreadID(context.Background())
	require.NoError(t, err)
	require.NotZero(t, tid)
}
