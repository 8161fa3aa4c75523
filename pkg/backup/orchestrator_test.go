//go:build !windows

package backup

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/relink/pkg/command"
	"github.com/arthur-debert/relink/pkg/config"
	"github.com/arthur-debert/relink/pkg/errors"
	"github.com/arthur-debert/relink/pkg/filesystem"
	"github.com/arthur-debert/relink/pkg/inspector"
	"github.com/arthur-debert/relink/pkg/ledger"
	"github.com/arthur-debert/relink/pkg/paths"
	"github.com/arthur-debert/relink/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingRunner passes commands through to the real runner except for one
// command name, which fails unconditionally.
type failingRunner struct {
	real     types.CommandRunner
	failName string
}

func (f *failingRunner) Run(ctx context.Context, name string, args ...string) (types.CommandResult, error) {
	if name == f.failName {
		return types.CommandResult{Success: false, Stderr: "injected failure"}, nil
	}
	return f.real.Run(ctx, name, args...)
}

func (f *failingRunner) Query(ctx context.Context, name string, args ...string) (types.CommandResult, error) {
	if name == f.failName {
		return types.CommandResult{Success: false, Stderr: "injected failure"}, nil
	}
	return f.real.Query(ctx, name, args...)
}

func testConfig() config.Backup {
	return config.Backup{
		MinFreeSpaceMB:     1,
		MoveTimeoutSeconds: 10,
		CopyTimeoutSeconds: 30,
	}
}

func newTestOrchestrator(t *testing.T, runner types.CommandRunner) (*Orchestrator, *ledger.Ledger) {
	t.Helper()
	fs := filesystem.NewOS()
	led := ledger.New(ledger.NewFSStore(fs, filepath.Join(t.TempDir(), "rollback.json")), "")
	if runner == nil {
		runner = command.NewRunner()
	}
	o, err := New(Options{
		FS:        fs,
		Inspector: inspector.NewOS(),
		Runner:    runner,
		Ledger:    led,
		Config:    testConfig(),
	})
	require.NoError(t, err)
	return o, led
}

// newSourceDir creates a populated source folder: a file, a subdirectory,
// and a nested file.
func newSourceDir(t *testing.T) string {
	t.Helper()
	src := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.Mkdir(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("notes"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(src, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "deep.txt"), []byte("deep"), 0644))
	return src
}

func assertSourceIntact(t *testing.T, src string) {
	t.Helper()
	info, err := os.Lstat(src)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Zero(t, info.Mode()&os.ModeSymlink, "source must not be a link")

	data, err := os.ReadFile(filepath.Join(src, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "notes", string(data))

	data, err = os.ReadFile(filepath.Join(src, "sub", "deep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))
}

func TestValidatePaths(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	src := newSourceDir(t)
	targetParent := t.TempDir()

	junction := filepath.Join(t.TempDir(), "linked")
	require.NoError(t, os.Symlink(src, junction))

	fileSource := filepath.Join(t.TempDir(), "afile")
	require.NoError(t, os.WriteFile(fileSource, []byte("x"), 0644))

	fileTarget := filepath.Join(targetParent, "taken.txt")
	require.NoError(t, os.WriteFile(fileTarget, []byte("x"), 0644))

	tests := []struct {
		name     string
		source   string
		target   string
		wantCode errors.ErrorCode
	}{
		{
			name:   "valid request",
			source: src,
			target: filepath.Join(targetParent, "backup"),
		},
		{
			name:     "missing source",
			source:   filepath.Join(targetParent, "nope"),
			target:   filepath.Join(targetParent, "backup"),
			wantCode: errors.ErrSourceMissing,
		},
		{
			name:     "source is a file",
			source:   fileSource,
			target:   filepath.Join(targetParent, "backup"),
			wantCode: errors.ErrSourceNotDirectory,
		},
		{
			name:     "source is already a junction",
			source:   junction,
			target:   filepath.Join(targetParent, "backup"),
			wantCode: errors.ErrSourceIsJunction,
		},
		{
			name:     "target parent missing",
			source:   src,
			target:   filepath.Join(targetParent, "no", "such", "dir"),
			wantCode: errors.ErrTargetParent,
		},
		{
			name:     "target is a file",
			source:   src,
			target:   fileTarget,
			wantCode: errors.ErrTargetIsFile,
		},
		{
			name:     "target exceeds path limit",
			source:   src,
			target:   filepath.Join(targetParent, strings.Repeat("x", 300)),
			wantCode: errors.ErrPathTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := o.ValidatePaths(tt.source, tt.target)
			if tt.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, tt.wantCode),
				"want %s, got %v", tt.wantCode, err)
		})
	}
}

func TestValidatePathsWritesNoLedgerRecord(t *testing.T) {
	o, led := newTestOrchestrator(t, nil)

	src := newSourceDir(t)
	junction := filepath.Join(t.TempDir(), "linked")
	require.NoError(t, os.Symlink(src, junction))

	err := o.ValidatePaths(junction, filepath.Join(t.TempDir(), "backup"))
	require.Error(t, err)

	record, err := led.Load()
	require.NoError(t, err)
	assert.Nil(t, record, "validation must never touch the ledger")
}

func TestExecuteBackupRoundTrip(t *testing.T) {
	o, led := newTestOrchestrator(t, nil)

	src := newSourceDir(t)
	target := filepath.Join(t.TempDir(), "onedrive", "backup")
	require.NoError(t, os.MkdirAll(filepath.Dir(target), 0755))

	var stages []types.Stage
	var percents []int
	progress := func(stage types.Stage, percent int) {
		stages = append(stages, stage)
		percents = append(percents, percent)
	}

	require.NoError(t, o.ExecuteBackup(src, target, progress))
	assert.Equal(t, StateCommitted, o.State())

	// Source is now a junction resolving to the effective target.
	insp := inspector.NewOS()
	require.True(t, insp.IsJunction(src))

	resolved, ok := insp.JunctionTarget(src)
	require.True(t, ok)
	canonResolved, err := paths.Canonicalize(resolved)
	require.NoError(t, err)
	canonTarget, err := paths.Canonicalize(target)
	require.NoError(t, err)
	assert.Equal(t, canonTarget, canonResolved)

	// The moved tree is intact, and reachable through the old path.
	data, err := os.ReadFile(filepath.Join(target, "sub", "deep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "deep", string(data))

	data, err = os.ReadFile(filepath.Join(src, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "notes", string(data), "old path must still work through the junction")

	// Ledger cleared on commit.
	record, err := led.Load()
	require.NoError(t, err)
	assert.Nil(t, record)

	// Progress hit every milestone in order.
	assert.Equal(t, []types.Stage{
		types.StageValidating, types.StageSnapshot, types.StageMoving,
		types.StageLinking, types.StageVerifying, types.StageDone,
	}, stages)
	assert.IsIncreasing(t, percents)
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestExecuteBackupNestsIntoExistingTarget(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	src := newSourceDir(t)
	target := filepath.Join(t.TempDir(), "backup")
	require.NoError(t, os.Mkdir(target, 0755))

	unrelated := filepath.Join(target, "unrelated.txt")
	require.NoError(t, os.WriteFile(unrelated, []byte("leave me"), 0644))

	require.NoError(t, o.ExecuteBackup(src, target, nil))

	// Effective target is target/<basename(source)>.
	effective := filepath.Join(target, filepath.Base(src))
	assert.DirExists(t, effective)
	assert.FileExists(t, filepath.Join(effective, "notes.txt"))

	// Unrelated siblings are untouched.
	data, err := os.ReadFile(unrelated)
	require.NoError(t, err)
	assert.Equal(t, "leave me", string(data))

	insp := inspector.NewOS()
	assert.True(t, insp.IsJunction(src))
}

func TestExecuteBackupMoveFailureRollsBack(t *testing.T) {
	o, led := newTestOrchestrator(t, nil)

	src := newSourceDir(t)
	target := filepath.Join(t.TempDir(), "backup")
	require.NoError(t, os.Mkdir(target, 0755))

	// Occupying the effective target slot forces the move step to fail.
	require.NoError(t, os.Mkdir(filepath.Join(target, filepath.Base(src)), 0755))

	err := o.ExecuteBackup(src, target, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrMove))
	assert.Equal(t, StateRolledBack, o.State())

	assertSourceIntact(t, src)

	record, loadErr := led.Load()
	require.NoError(t, loadErr)
	assert.Nil(t, record, "rollback consumes the ledger record")
}

func TestExecuteBackupLinkFailureRollsBack(t *testing.T) {
	runner := &failingRunner{real: command.NewRunner(), failName: "ln"}
	o, led := newTestOrchestrator(t, runner)

	src := newSourceDir(t)
	target := filepath.Join(t.TempDir(), "backup")

	err := o.ExecuteBackup(src, target, nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLink))
	assert.Equal(t, StateRolledBack, o.State())

	// The move is compensated: data back at source, target gone.
	assertSourceIntact(t, src)
	assert.NoDirExists(t, target)

	record, loadErr := led.Load()
	require.NoError(t, loadErr)
	assert.Nil(t, record)
}

func TestVerifyRejectsTargetMismatch(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)

	other := t.TempDir()
	target := t.TempDir()
	src := filepath.Join(t.TempDir(), "proj")
	require.NoError(t, os.Symlink(other, src))

	err := o.verify(src, target)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrVerification))
}

func TestRollbackWithNoRecordIsNoop(t *testing.T) {
	o, _ := newTestOrchestrator(t, nil)
	assert.NoError(t, o.Rollback())
}

func TestRollbackRecoversAfterCrash(t *testing.T) {
	fs := filesystem.NewOS()
	slot := filepath.Join(t.TempDir(), "rollback.json")

	src := newSourceDir(t)
	target := filepath.Join(t.TempDir(), "backup")

	canonSrc, err := paths.Canonicalize(src)
	require.NoError(t, err)
	canonTarget, err := paths.Canonicalize(target)
	require.NoError(t, err)

	// Reproduce the on-disk state of a process that died after the move
	// completed: ledger snapshotted and updated, data at the target.
	crashed := ledger.New(ledger.NewFSStore(fs, slot), "")
	require.NoError(t, crashed.Snapshot(&types.RollbackRecord{
		Source:        canonSrc,
		Target:        canonTarget,
		SourceExisted: true,
	}))
	created := true
	require.NoError(t, crashed.Update(ledger.StatusUpdate{BackupCreated: &created}))
	require.NoError(t, os.Rename(src, target))

	// A fresh process loads the record from durable storage and restores
	// the original state.
	fresh := ledger.New(ledger.NewFSStore(fs, slot), "")
	o, err := New(Options{
		FS:        fs,
		Inspector: inspector.NewOS(),
		Runner:    command.NewRunner(),
		Ledger:    fresh,
		Config:    testConfig(),
	})
	require.NoError(t, err)

	require.NoError(t, o.Rollback())

	assertSourceIntact(t, src)
	assert.NoDirExists(t, target)

	record, err := fresh.Load()
	require.NoError(t, err)
	assert.Nil(t, record)
}

// fixedRunner returns the same result for every invocation.
type fixedRunner struct {
	res types.CommandResult
}

func (f *fixedRunner) Run(context.Context, string, ...string) (types.CommandResult, error) {
	return f.res, nil
}

func (f *fixedRunner) Query(context.Context, string, ...string) (types.CommandResult, error) {
	return f.res, nil
}

func TestBulkCopyRejectsFailedCopyWithOutput(t *testing.T) {
	// The copy tool prints a summary to stdout even when copies failed;
	// only the exit code decides the outcome. Accepting output here would
	// let the caller delete the source after a failed copy.
	runner := &fixedRunner{res: types.CommandResult{
		Success:  false,
		ExitCode: 1,
		Stdout:   "Total Copied Skipped FAILED",
		Stderr:   "permission denied",
	}}
	o, _ := newTestOrchestrator(t, runner)

	src := newSourceDir(t)
	err := o.bulkCopy(src, filepath.Join(t.TempDir(), "backup"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrMove))
	assertSourceIntact(t, src)
}

// undeletableStore wraps a Store whose Delete always fails.
type undeletableStore struct {
	ledger.Store
}

func (s *undeletableStore) Delete() error {
	return stderrors.New("slot is read-only")
}

func TestExecuteBackupSurfacesFailedLedgerClear(t *testing.T) {
	fs := filesystem.NewOS()
	slot := filepath.Join(t.TempDir(), "rollback.json")
	led := ledger.New(&undeletableStore{ledger.NewFSStore(fs, slot)}, "")

	o, err := New(Options{
		FS:        fs,
		Inspector: inspector.NewOS(),
		Runner:    command.NewRunner(),
		Ledger:    led,
		Config:    testConfig(),
	})
	require.NoError(t, err)

	src := newSourceDir(t)
	target := filepath.Join(t.TempDir(), "backup")

	err = o.ExecuteBackup(src, target, nil)
	require.Error(t, err, "a stale record would make a later rollback undo the commit")
	assert.True(t, errors.IsErrorCode(err, errors.ErrLedgerWrite))

	// The relocation itself committed.
	assert.Equal(t, StateCommitted, o.State())
	assert.True(t, inspector.NewOS().IsJunction(src))
}

func TestNewDefaultsConfigPerField(t *testing.T) {
	fs := filesystem.NewOS()
	led := ledger.New(ledger.NewFSStore(fs, filepath.Join(t.TempDir(), "rollback.json")), "")

	o, err := New(Options{
		FS:        fs,
		Inspector: inspector.NewOS(),
		Runner:    command.NewRunner(),
		Ledger:    led,
		Config:    config.Backup{MoveTimeoutSeconds: 5},
	})
	require.NoError(t, err)

	// An explicit zero threshold disables the space check rather than
	// being swapped for the full default config.
	assert.Equal(t, int64(0), o.cfg.MinFreeSpaceMB)
	assert.Equal(t, 5, o.cfg.MoveTimeoutSeconds)
	assert.Equal(t, config.Default().Backup.CopyTimeoutSeconds, o.cfg.CopyTimeoutSeconds)
}

func TestValidatePathsZeroThresholdSkipsSpaceCheck(t *testing.T) {
	fs := filesystem.NewOS()
	led := ledger.New(ledger.NewFSStore(fs, filepath.Join(t.TempDir(), "rollback.json")), "")

	o, err := New(Options{
		FS:        fs,
		Inspector: inspector.NewOS(),
		Runner:    command.NewRunner(),
		Ledger:    led,
		Config:    config.Backup{MinFreeSpaceMB: 0, MoveTimeoutSeconds: 5, CopyTimeoutSeconds: 5},
	})
	require.NoError(t, err)

	src := newSourceDir(t)
	assert.NoError(t, o.ValidatePaths(src, filepath.Join(t.TempDir(), "backup")))
}

func TestExecuteBackupRejectsConcurrentAttempt(t *testing.T) {
	fs := filesystem.NewOS()
	dir := t.TempDir()
	slot := filepath.Join(dir, "rollback.json")
	lock := filepath.Join(dir, "rollback.lock")

	holder := ledger.New(ledger.NewFSStore(fs, slot), lock)
	require.NoError(t, holder.Acquire())
	defer holder.Release()

	contender := ledger.New(ledger.NewFSStore(fs, slot), lock)
	o, err := New(Options{
		FS:        fs,
		Inspector: inspector.NewOS(),
		Runner:    command.NewRunner(),
		Ledger:    contender,
		Config:    testConfig(),
	})
	require.NoError(t, err)

	src := newSourceDir(t)
	err = o.ExecuteBackup(src, filepath.Join(t.TempDir(), "backup"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrLedgerBusy))
	assertSourceIntact(t, src)
}
