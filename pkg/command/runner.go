// Package command executes single OS-level commands for the relocation
// core. Commands are always built from an argument vector, never from
// concatenated strings, and any diagnostic wrapper noise the shell emits
// (PowerShell CLIXML) is decoded before results are returned.
package command

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	relinkerrors "github.com/arthur-debert/relink/pkg/errors"
	"github.com/arthur-debert/relink/pkg/logging"
	"github.com/arthur-debert/relink/pkg/types"
	"github.com/rs/zerolog"
)

// Runner implements types.CommandRunner on the host OS.
type Runner struct {
	logger zerolog.Logger
}

// NewRunner creates a Runner.
func NewRunner() *Runner {
	return &Runner{logger: logging.GetLogger("command")}
}

// Run executes the command, waiting for it to finish or for the context to
// expire. A non-zero exit is reported through CommandResult.Success, not
// through the error return.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (types.CommandResult, error) {
	return r.run(ctx, false, name, args...)
}

// Query runs a read-only command. Some tools (robocopy, reparse-point
// listings) exit non-zero while still producing valid output; Query treats
// any run that produced stdout as successful.
func (r *Runner) Query(ctx context.Context, name string, args ...string) (types.CommandResult, error) {
	return r.run(ctx, true, name, args...)
}

func (r *Runner) run(ctx context.Context, query bool, name string, args ...string) (types.CommandResult, error) {
	r.logger.Debug().Str("command", name).Strs("args", args).Msg("Executing command")

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := types.CommandResult{
		ExitCode: -1,
		Stdout:   CleanOutput(stdout.String()),
		Stderr:   CleanDiagnostics(stderr.String()),
	}

	switch {
	case err == nil:
		result.Success = true
		result.ExitCode = 0
	case ctx.Err() != nil:
		return result, relinkerrors.Wrapf(ctx.Err(), relinkerrors.ErrCommandTimeout,
			"command %s timed out", name)
	default:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Could not be started at all.
			return result, relinkerrors.Wrapf(err, relinkerrors.ErrCommandFailed,
				"cannot execute %s", name)
		}
		result.ExitCode = exitErr.ExitCode()
		result.Success = query && strings.TrimSpace(result.Stdout) != ""
		if result.Success {
			r.logger.Debug().
				Str("command", name).
				Int("exit_code", exitErr.ExitCode()).
				Msg("Command exited non-zero but produced output, treating as success")
		}
	}

	if result.Success {
		r.logger.Debug().Str("command", name).Msg("Command succeeded")
	} else {
		r.logger.Error().
			Str("command", name).
			Str("stderr", result.Stderr).
			Msg("Command failed")
	}

	return result, nil
}
