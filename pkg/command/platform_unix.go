//go:build !windows

package command

import "github.com/arthur-debert/relink/pkg/types"

// Argv is a fully-specified command invocation.
type Argv struct {
	Name string
	Args []string
}

// CopyTreeSucceeded interprets the exit status of the platform copy
// command. cp reports success only with exit code zero.
func CopyTreeSucceeded(res types.CommandResult) bool {
	return res.ExitCode == 0
}

// MakeLink returns the command that creates a directory link at source
// pointing at target.
func MakeLink(source, target string) Argv {
	return Argv{Name: "ln", Args: []string{"-s", "-n", "--", target, source}}
}

// RemoveLink returns the command that removes the link itself, never the
// linked contents.
func RemoveLink(path string) Argv {
	return Argv{Name: "rm", Args: []string{"--", path}}
}

// CopyTree returns the bulk-copy command used when an atomic rename is not
// possible (cross-volume moves, partial permissions).
func CopyTree(source, target string) Argv {
	return Argv{Name: "cp", Args: []string{"-a", "--", source, target}}
}

// RemoveTree returns the command that deletes a directory tree.
func RemoveTree(path string) Argv {
	return Argv{Name: "rm", Args: []string{"-rf", "--", path}}
}

// ProbeShell returns a cheap command used to check that the command runner
// is operational on this host.
func ProbeShell() Argv {
	return Argv{Name: "true"}
}
