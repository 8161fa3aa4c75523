// Package types defines the shared data model and the interfaces that the
// relocation core consumes: the filesystem abstraction, the command runner,
// and the path inspector.
package types

import (
	"context"
	"io/fs"
	"time"
)

// FS is the filesystem interface required for relink operations
type FS interface {
	// File operations
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// Directory operations
	MkdirAll(path string, perm fs.FileMode) error
	ReadDir(name string) ([]fs.DirEntry, error)

	// Link operations
	Symlink(oldname, newname string) error
	Readlink(name string) (string, error)

	// Other operations
	Remove(name string) error
	RemoveAll(path string) error
	Rename(oldpath, newpath string) error

	// For testing, Lstat can fall back to Stat
	Lstat(name string) (fs.FileInfo, error)
}

// RelocationRequest is the immutable input to one orchestration run.
type RelocationRequest struct {
	Source string
	Target string
}

// Stage identifies a milestone of the relocation state machine, delivered
// to progress callbacks.
type Stage string

const (
	StageValidating  Stage = "validating"
	StageSnapshot    Stage = "snapshot"
	StageMoving      Stage = "moving"
	StageLinking     Stage = "linking"
	StageVerifying   Stage = "verifying"
	StageDone        Stage = "done"
	StageRollingBack Stage = "rolling-back"
)

// ProgressFunc receives stage milestones during ExecuteBackup. The callback
// is invoked on the orchestrator's goroutine; callers updating shared state
// must marshal to their own context.
type ProgressFunc func(stage Stage, percent int)

// RollbackRecord is the durable write-ahead snapshot of one relocation
// attempt. It is persisted before any destructive action and updated after
// each irreversible step completes.
type RollbackRecord struct {
	Source                 string    `json:"source"`
	Target                 string    `json:"target"`
	SourceExisted          bool      `json:"source_existed"`
	TargetExisted          bool      `json:"target_existed"`
	SourceWasJunction      bool      `json:"source_was_junction"`
	OriginalJunctionTarget string    `json:"original_junction_target,omitempty"`
	BackupCreated          bool      `json:"backup_created"`
	JunctionCreated        bool      `json:"junction_created"`
	Timestamp              time.Time `json:"timestamp"`
}

// JunctionInfo describes one discovered directory link. Produced by
// scanning, never persisted.
type JunctionInfo struct {
	Source       string
	Target       string
	TargetExists bool
	Created      time.Time
}

// CommandResult carries the outcome of one external command invocation.
// Success reflects the exit status (or, for queries, the presence of
// parseable output); ExitCode is the raw process exit code (-1 when the
// process never ran); Stdout and Stderr are stripped of any diagnostic
// wrapper noise the shell may emit.
type CommandResult struct {
	Success  bool
	ExitCode int
	Stdout   string
	Stderr   string
}

// CommandRunner executes a single OS-level command from an argument vector.
// Implementations must never build command lines by string concatenation.
type CommandRunner interface {
	// Run executes the command. A non-zero exit reports Success=false with
	// a nil error; the error return is reserved for failures to execute at
	// all (binary missing, context deadline).
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)

	// Query is Run for read-only commands: a non-zero exit with usable
	// stdout is still reported as Success=true.
	Query(ctx context.Context, name string, args ...string) (CommandResult, error)
}

// Inspector answers point-in-time questions about paths. Implementations
// must not mutate the filesystem.
type Inspector interface {
	Exists(path string) bool
	IsDirectory(path string) bool
	IsWritable(path string) bool
	IsJunction(path string) bool

	// JunctionTarget resolves the link target of a junction. The second
	// return is false when path is not a junction or cannot be resolved.
	JunctionTarget(path string) (string, bool)

	FreeSpaceBytes(path string) (uint64, error)
}
