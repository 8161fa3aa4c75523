// Package backup drives the transactional relocation of a folder onto a
// synced volume: validate → snapshot → move → link → verify, with a
// durable write-ahead ledger and automatic compensating rollback on any
// failure from the move onward.
package backup

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/arthur-debert/relink/pkg/command"
	"github.com/arthur-debert/relink/pkg/config"
	"github.com/arthur-debert/relink/pkg/errors"
	"github.com/arthur-debert/relink/pkg/filesystem"
	"github.com/arthur-debert/relink/pkg/inspector"
	"github.com/arthur-debert/relink/pkg/ledger"
	"github.com/arthur-debert/relink/pkg/logging"
	"github.com/arthur-debert/relink/pkg/paths"
	"github.com/arthur-debert/relink/pkg/types"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Options configures an Orchestrator. Zero-value fields get working
// defaults against the host OS.
type Options struct {
	FS        types.FS
	Inspector types.Inspector
	Runner    types.CommandRunner
	Ledger    *ledger.Ledger
	Config    config.Backup
	Logger    zerolog.Logger
}

// Orchestrator executes one relocation attempt at a time. It is the only
// component that creates, mutates or deletes the rollback record.
type Orchestrator struct {
	fs        types.FS
	inspector types.Inspector
	runner    types.CommandRunner
	ledger    *ledger.Ledger
	cfg       config.Backup
	logger    zerolog.Logger

	mu    sync.Mutex
	state State
}

// New creates an orchestrator instance.
func New(opts Options) (*Orchestrator, error) {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("backup")
	}

	fs := opts.FS
	if fs == nil {
		fs = filesystem.NewOS()
	}

	insp := opts.Inspector
	if insp == nil {
		insp = inspector.NewOS()
	}

	runner := opts.Runner
	if runner == nil {
		runner = command.NewRunner()
	}

	// Defaults apply per field so a caller can set only what it cares
	// about. A zero MinFreeSpaceMB is an explicit choice and disables the
	// free-space check.
	cfg := opts.Config
	def := config.Default().Backup
	if cfg.MoveTimeoutSeconds <= 0 {
		cfg.MoveTimeoutSeconds = def.MoveTimeoutSeconds
	}
	if cfg.CopyTimeoutSeconds <= 0 {
		cfg.CopyTimeoutSeconds = def.CopyTimeoutSeconds
	}

	led := opts.Ledger
	if led == nil {
		var err error
		led, err = ledger.NewDefault(fs)
		if err != nil {
			return nil, err
		}
	}

	return &Orchestrator{
		fs:        fs,
		inspector: insp,
		runner:    runner,
		ledger:    led,
		cfg:       cfg,
		logger:    logger,
		state:     StateIdle,
	}, nil
}

// State returns the current state machine position.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.logger.Debug().Str("state", s.String()).Msg("State transition")
}

// ValidatePaths checks a relocation request without mutating anything and
// without touching the ledger. Every rejection carries a distinct error
// code so callers can present precise diagnostics.
func (o *Orchestrator) ValidatePaths(source, target string) error {
	source = paths.SanitizePath(source)
	target = paths.SanitizePath(target)

	if err := paths.ValidatePath(source); err != nil {
		return err
	}
	if err := paths.ValidatePath(target); err != nil {
		return err
	}

	if !o.inspector.Exists(source) {
		return errors.Newf(errors.ErrSourceMissing, "source does not exist: %s", source)
	}
	if o.inspector.IsJunction(source) {
		return errors.Newf(errors.ErrSourceIsJunction,
			"source is already a junction, cannot back up a link: %s", source)
	}
	if !o.inspector.IsDirectory(source) {
		return errors.Newf(errors.ErrSourceNotDirectory, "source is not a directory: %s", source)
	}
	if _, err := o.fs.ReadDir(source); err != nil {
		return errors.Wrapf(err, errors.ErrSourceUnreadable, "source is not readable: %s", source)
	}

	canonSource, err := paths.Canonicalize(source)
	if err != nil {
		return err
	}
	if len(canonSource) > paths.MaxPathLength {
		return errors.Newf(errors.ErrPathTooLong,
			"source path exceeds the %d character limit: %s", paths.MaxPathLength, canonSource)
	}

	if o.inspector.Exists(target) && !o.inspector.IsDirectory(target) {
		return errors.Newf(errors.ErrTargetIsFile, "target is a file, not a directory: %s", target)
	}

	effective := paths.EffectiveTarget(o.inspector, source, target)
	canonTarget, err := paths.Canonicalize(effective)
	if err != nil {
		return err
	}
	if len(canonTarget) > paths.MaxPathLength {
		return errors.Newf(errors.ErrPathTooLong,
			"effective target path exceeds the %d character limit: %s", paths.MaxPathLength, canonTarget)
	}

	parent := filepath.Dir(effective)
	if !o.inspector.Exists(parent) {
		return errors.Newf(errors.ErrTargetParent, "target parent directory does not exist: %s", parent)
	}
	if !o.inspector.IsDirectory(parent) {
		return errors.Newf(errors.ErrTargetParent, "target parent is not a directory: %s", parent)
	}
	if !o.inspector.IsWritable(parent) {
		return errors.Newf(errors.ErrTargetUnwritable, "no write permission for target parent: %s", parent)
	}

	if o.cfg.MinFreeSpaceMB > 0 {
		required := uint64(o.cfg.MinFreeSpaceMB) * 1024 * 1024
		if free, err := o.inspector.FreeSpaceBytes(parent); err == nil && free < required {
			return errors.Newf(errors.ErrInsufficientSpace,
				"insufficient free space at %s: %s available, %s required",
				parent, humanize.IBytes(free), humanize.IBytes(required))
		}
	}

	// Nesting into a populated directory merges with whatever is already
	// there; allowed, but worth a trace in the log.
	if o.inspector.Exists(target) && o.inspector.IsDirectory(target) {
		if entries, err := o.fs.ReadDir(target); err == nil && len(entries) > 0 {
			o.logger.Info().
				Str("target", target).
				Str("effective", effective).
				Msg("Target directory has existing contents, source will nest beside them")
		}
	}

	return nil
}

// ExecuteBackup runs the full relocation state machine. It is synchronous;
// callers needing responsiveness run it on a worker goroutine and receive
// milestones through progress. Once the move begins the operation runs to
// completion: success, or failure followed by exactly one automatic
// rollback attempt.
func (o *Orchestrator) ExecuteBackup(source, target string, progress types.ProgressFunc) error {
	if progress == nil {
		progress = func(types.Stage, int) {}
	}
	source = paths.SanitizePath(source)
	target = paths.SanitizePath(target)

	o.logger.Info().Str("source", source).Str("target", target).Msg("Starting backup")

	if err := o.ledger.Acquire(); err != nil {
		return err
	}
	defer o.ledger.Release()

	o.setState(StateValidating)
	progress(types.StageValidating, 10)
	if err := o.ValidatePaths(source, target); err != nil {
		o.setState(StateIdle)
		return err
	}

	effective := paths.EffectiveTarget(o.inspector, source, target)
	canonSource, err := paths.Canonicalize(source)
	if err != nil {
		o.setState(StateIdle)
		return err
	}
	canonTarget, err := paths.Canonicalize(effective)
	if err != nil {
		o.setState(StateIdle)
		return err
	}

	record := &types.RollbackRecord{
		Source:            canonSource,
		Target:            canonTarget,
		SourceExisted:     true,
		TargetExisted:     o.inspector.Exists(canonTarget),
		SourceWasJunction: o.inspector.IsJunction(canonSource),
		Timestamp:         time.Now(),
	}
	if record.SourceWasJunction {
		if orig, ok := o.inspector.JunctionTarget(canonSource); ok {
			record.OriginalJunctionTarget = orig
		}
	}

	if err := o.ledger.Snapshot(record); err != nil {
		o.setState(StateIdle)
		return err
	}
	o.setState(StateSnapshotWritten)
	progress(types.StageSnapshot, 20)

	o.setState(StateMoving)
	progress(types.StageMoving, 50)
	if err := o.move(canonSource, canonTarget); err != nil {
		return o.failAndRollback(progress, err)
	}
	o.setState(StateMoved)

	created := true
	if err := o.ledger.Update(ledger.StatusUpdate{BackupCreated: &created}); err != nil {
		return o.failAndRollback(progress, err)
	}

	o.setState(StateLinking)
	progress(types.StageLinking, 80)
	if err := o.link(canonSource, canonTarget); err != nil {
		return o.failAndRollback(progress, err)
	}
	o.setState(StateLinked)

	if err := o.ledger.Update(ledger.StatusUpdate{JunctionCreated: &created}); err != nil {
		return o.failAndRollback(progress, err)
	}

	o.setState(StateVerifying)
	progress(types.StageVerifying, 90)
	if err := o.verify(canonSource, canonTarget); err != nil {
		return o.failAndRollback(progress, err)
	}

	clearErr := o.ledger.Clear()
	o.setState(StateCommitted)
	progress(types.StageDone, 100)

	if clearErr != nil {
		// The stale record would make a later rollback undo a committed
		// relocation; the caller must know the slot needs clearing.
		o.logger.Error().Err(clearErr).Msg("Backup committed but ledger slot could not be cleared")
		return errors.Wrapf(clearErr, errors.ErrLedgerWrite,
			"backup completed but the rollback record at the ledger slot could not be cleared; "+
				"remove it before running rollback")
	}

	o.logger.Info().Str("source", canonSource).Str("target", canonTarget).Msg("Backup completed")
	return nil
}

// failAndRollback runs exactly one compensating rollback for a failure
// from the moving stage onward. A rollback failure is surfaced as a
// distinct, higher-severity error that preserves the trigger.
func (o *Orchestrator) failAndRollback(progress types.ProgressFunc, trigger error) error {
	o.logger.Error().Err(trigger).Msg("Backup step failed, rolling back")
	o.setState(StateRollingBack)
	progress(types.StageRollingBack, 30)

	if rbErr := o.compensate(); rbErr != nil {
		o.setState(StateRollbackFailed)
		return errors.Wrap(stderrors.Join(trigger, rbErr), errors.ErrRollback,
			"automatic rollback failed, filesystem may require manual intervention")
	}

	o.setState(StateRolledBack)
	return trigger
}

// Rollback drives compensating actions for a pending relocation attempt,
// loading the record from durable storage if this process has none in
// memory (crash recovery). Calling it with no pending record is a no-op.
func (o *Orchestrator) Rollback() error {
	if err := o.ledger.Acquire(); err != nil {
		return err
	}
	defer o.ledger.Release()

	return o.compensate()
}

// compensate executes the compensating sequence in strict reverse order of
// forward progress, continuing past individual failures and reporting them
// combined.
func (o *Orchestrator) compensate() error {
	record, err := o.ledger.Load()
	if err != nil {
		return err
	}
	if record == nil {
		o.logger.Debug().Msg("No rollback record pending, nothing to do")
		return nil
	}

	o.logger.Info().
		Str("source", record.Source).
		Str("target", record.Target).
		Bool("backup_created", record.BackupCreated).
		Bool("junction_created", record.JunctionCreated).
		Msg("Starting rollback")

	var failures []error

	if record.JunctionCreated {
		if err := o.removeLink(record.Source); err != nil {
			failures = append(failures, err)
		}
	}

	if record.BackupCreated {
		if err := o.moveBack(record.Target, record.Source); err != nil {
			failures = append(failures, err)
		}
	}

	if record.SourceWasJunction && record.OriginalJunctionTarget != "" {
		if err := o.restoreLink(record.Source, record.OriginalJunctionTarget); err != nil {
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		return errors.Wrap(stderrors.Join(failures...), errors.ErrRollback,
			"rollback completed with errors")
	}

	if err := o.ledger.Clear(); err != nil {
		return err
	}
	o.logger.Info().Msg("Rollback completed")
	return nil
}

func (o *Orchestrator) removeLink(source string) error {
	if !o.inspector.IsJunction(source) {
		return nil
	}

	argv := command.RemoveLink(source)
	res, err := o.run(argv, o.moveTimeout())
	if err != nil {
		return err
	}
	if !res.Success || o.inspector.IsJunction(source) {
		return errors.Newf(errors.ErrRollback, "cannot remove junction at %s: %s", source, res.Stderr)
	}
	return nil
}

func (o *Orchestrator) moveBack(target, source string) error {
	if !o.inspector.Exists(target) {
		return nil
	}

	if err := o.fs.MkdirAll(filepath.Dir(source), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrRollback, "cannot recreate parent of %s", source)
	}

	if err := o.fs.Rename(target, source); err == nil {
		return nil
	}

	// Cross-volume move back: copy then delete, same as the forward
	// fallback but without retries. Judged by exit code, robocopy exits
	// non-zero after a successful copy.
	copyArgv := command.CopyTree(target, source)
	res, err := o.run(copyArgv, o.copyTimeout())
	if err != nil {
		return err
	}
	if !command.CopyTreeSucceeded(res) {
		return errors.Newf(errors.ErrRollback, "cannot copy %s back to %s (exit code %d): %s",
			target, source, res.ExitCode, res.Stderr)
	}
	if err := o.fs.RemoveAll(target); err != nil {
		return errors.Wrapf(err, errors.ErrRollback, "copied back but cannot remove %s", target)
	}
	return nil
}

func (o *Orchestrator) restoreLink(source, originalTarget string) error {
	argv := command.MakeLink(source, originalTarget)
	res, err := o.run(argv, o.moveTimeout())
	if err != nil {
		return err
	}
	if !res.Success || !o.inspector.IsJunction(source) {
		return errors.Newf(errors.ErrRollback,
			"cannot restore original junction %s -> %s: %s", source, originalTarget, res.Stderr)
	}
	return nil
}

func (o *Orchestrator) run(argv command.Argv, timeout time.Duration) (types.CommandResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return o.runner.Run(ctx, argv.Name, argv.Args...)
}

func (o *Orchestrator) moveTimeout() time.Duration {
	return time.Duration(o.cfg.MoveTimeoutSeconds) * time.Second
}

func (o *Orchestrator) copyTimeout() time.Duration {
	return time.Duration(o.cfg.CopyTimeoutSeconds) * time.Second
}
