//go:build !windows

package command

import (
	"context"
	"testing"
	"time"

	"github.com/arthur-debert/relink/pkg/errors"
	"github.com/arthur-debert/relink/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerRun(t *testing.T) {
	r := NewRunner()
	ctx := context.Background()

	t.Run("successful command", func(t *testing.T) {
		res, err := r.Run(ctx, "echo", "hello")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "hello", res.Stdout)
	})

	t.Run("non-zero exit is not an error", func(t *testing.T) {
		res, err := r.Run(ctx, "false")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 1, res.ExitCode)
	})

	t.Run("exit code is reported verbatim", func(t *testing.T) {
		res, err := r.Run(ctx, "sh", "-c", "exit 7")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, 7, res.ExitCode)
	})

	t.Run("missing binary is an error", func(t *testing.T) {
		_, err := r.Run(ctx, "relink-no-such-binary")
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))
	})

	t.Run("timeout", func(t *testing.T) {
		short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := r.Run(short, "sleep", "5")
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrCommandTimeout))
	})
}

func TestRunnerQuery(t *testing.T) {
	r := NewRunner()
	ctx := context.Background()

	t.Run("non-zero exit with output is success", func(t *testing.T) {
		res, err := r.Query(ctx, "sh", "-c", "echo listing; exit 2")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 2, res.ExitCode)
		assert.Equal(t, "listing", res.Stdout)
	})

	t.Run("non-zero exit without output fails", func(t *testing.T) {
		res, err := r.Query(ctx, "sh", "-c", "exit 2")
		require.NoError(t, err)
		assert.False(t, res.Success)
	})
}

func TestCopyTreeSucceeded(t *testing.T) {
	assert.True(t, CopyTreeSucceeded(types.CommandResult{ExitCode: 0}))
	assert.False(t, CopyTreeSucceeded(types.CommandResult{ExitCode: 1}))
	assert.False(t, CopyTreeSucceeded(types.CommandResult{ExitCode: -1}))
	// Summary output must never make a failed copy look successful.
	assert.False(t, CopyTreeSucceeded(types.CommandResult{
		ExitCode: 8,
		Stdout:   "Total Copied Skipped FAILED",
	}))
}

func TestProbeShell(t *testing.T) {
	r := NewRunner()
	probe := ProbeShell()
	res, err := r.Run(context.Background(), probe.Name, probe.Args...)
	require.NoError(t, err)
	assert.True(t, res.Success)
}
