package backup

import (
	"context"
	"path/filepath"

	"github.com/arthur-debert/relink/pkg/command"
	"github.com/arthur-debert/relink/pkg/errors"
	"github.com/cenkalti/backoff/v4"
)

// move relocates source to target. An atomic rename is attempted first;
// when that fails (cross-volume moves, permission boundaries) a bulk copy
// with retry/backoff runs instead, followed by deletion of the source.
// Either way the postcondition is asserted: target exists and source is
// gone.
func (o *Orchestrator) move(source, target string) error {
	if err := o.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrMove, "cannot create parent of %s", target)
	}
	if o.inspector.Exists(target) {
		return errors.Newf(errors.ErrMove, "effective target already exists: %s", target)
	}

	if err := o.fs.Rename(source, target); err != nil {
		o.logger.Warn().Err(err).Msg("Atomic rename failed, falling back to bulk copy")
		if copyErr := o.bulkCopy(source, target); copyErr != nil {
			return copyErr
		}
	}

	if !o.inspector.Exists(target) {
		return errors.Newf(errors.ErrMove, "move completed but target does not exist: %s", target)
	}
	if o.inspector.Exists(source) {
		// The fallback may have copied without being able to remove the
		// source. One final explicit delete before declaring failure.
		if err := o.fs.RemoveAll(source); err != nil || o.inspector.Exists(source) {
			return errors.Newf(errors.ErrMove, "move completed but source still exists: %s", source)
		}
	}

	return nil
}

// bulkCopy copies the tree with the platform copy command, retrying with
// exponential backoff to tolerate transient permission contention, then
// removes the source.
func (o *Orchestrator) bulkCopy(source, target string) error {
	ctx, cancel := context.WithTimeout(context.Background(), o.copyTimeout())
	defer cancel()

	argv := command.CopyTree(source, target)
	operation := func() error {
		res, err := o.runner.Run(ctx, argv.Name, argv.Args...)
		if err != nil {
			return backoff.Permanent(err)
		}
		// Judged by exit code, not Success: robocopy exits non-zero on
		// success and prints a summary even on failure.
		if !command.CopyTreeSucceeded(res) {
			return errors.Newf(errors.ErrMove, "bulk copy failed with exit code %d: %s",
				res.ExitCode, res.Stderr)
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return errors.Wrapf(err, errors.ErrMove, "bulk copy of %s failed", source)
	}

	if err := o.fs.RemoveAll(source); err != nil {
		o.logger.Warn().Err(err).Str("source", source).Msg("Copied but could not remove source")
	}
	return nil
}
