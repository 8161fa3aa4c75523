//go:build windows

package command

import "github.com/arthur-debert/relink/pkg/types"

// Argv is a fully-specified command invocation.
type Argv struct {
	Name string
	Args []string
}

// CopyTreeSucceeded interprets the exit status of the platform copy
// command. Robocopy exit codes 0-7 report success (combinations of files
// copied, extras and mismatches); 8 and above mean at least one copy
// failed. Exit codes must be checked directly: robocopy prints a summary
// to stdout even on failure, so output-based heuristics misclassify it.
func CopyTreeSucceeded(res types.CommandResult) bool {
	return res.ExitCode >= 0 && res.ExitCode < 8
}

// MakeLink returns the command that creates a directory junction at source
// pointing at target. mklink /J needs no elevation.
func MakeLink(source, target string) Argv {
	return Argv{Name: "cmd", Args: []string{"/c", "mklink", "/J", source, target}}
}

// RemoveLink returns the command that removes the junction itself, never
// the junction's target contents.
func RemoveLink(path string) Argv {
	return Argv{Name: "cmd", Args: []string{"/c", "rmdir", path}}
}

// CopyTree returns the bulk-copy command used when an atomic rename is not
// possible. Robocopy retries on its own for permission contention; callers
// judge the outcome with CopyTreeSucceeded, never the bare exit status.
func CopyTree(source, target string) Argv {
	return Argv{Name: "robocopy", Args: []string{source, target, "/E", "/R:3", "/W:10", "/MT:8"}}
}

// RemoveTree returns the command that deletes a directory tree.
func RemoveTree(path string) Argv {
	return Argv{Name: "cmd", Args: []string{"/c", "rmdir", "/s", "/q", path}}
}

// ProbeShell returns a cheap command used to check that the command runner
// is operational on this host.
func ProbeShell() Argv {
	return Argv{Name: "cmd", Args: []string{"/c", "ver"}}
}
