// Package paths provides path validation and resolution helpers for relink.
// It covers the pre-flight checks of a relocation request, effective-target
// resolution, and canonicalization used for link verification.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/relink/pkg/errors"
	"github.com/arthur-debert/relink/pkg/types"
)

// MaxPathLength is the platform path limit enforced on both the source and
// the resolved effective target. 260 is the classic Windows MAX_PATH; the
// limit is applied everywhere so junctions created here stay portable onto
// synced volumes.
const MaxPathLength = 260

// EnvHome is the standard home directory variable
const EnvHome = "HOME"

// ValidatePath performs basic validation on a path.
// It checks for empty paths, null bytes, and excessive length.
func ValidatePath(path string) error {
	if path == "" {
		return errors.New(errors.ErrInvalidInput, "path cannot be empty")
	}

	if strings.Contains(path, "\x00") {
		return errors.New(errors.ErrInvalidInput, "path contains null bytes")
	}

	if len(path) > MaxPathLength {
		return errors.Newf(errors.ErrPathTooLong,
			"path exceeds maximum length of %d characters", MaxPathLength)
	}

	return nil
}

// EffectiveTarget resolves the actual destination of a relocation: when
// target exists and is a directory the folder is nested under it as
// target/basename(source), otherwise target is used as-is. Computed once
// and used consistently for move, link and verify.
func EffectiveTarget(inspector types.Inspector, source, target string) string {
	if inspector.Exists(target) && inspector.IsDirectory(target) {
		return filepath.Join(target, filepath.Base(source))
	}
	return target
}

// Canonicalize resolves a path to its absolute, symlink-free form. For a
// path that does not exist yet (the usual case for a relocation target),
// the longest existing ancestor is resolved and the remaining elements are
// appended unchanged.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(ExpandHome(path))
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "cannot absolutize %s", path)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", errors.Wrapf(err, errors.ErrInvalidInput, "cannot canonicalize %s", path)
	}

	// Walk up until an existing ancestor resolves, then re-append the rest.
	var tail []string
	dir := abs
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		tail = append([]string{filepath.Base(dir)}, tail...)
		dir = parent

		resolved, err = filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, errors.ErrInvalidInput, "cannot canonicalize %s", path)
		}
	}
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path == "" {
		return path
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = os.Getenv(EnvHome)
			if homeDir == "" {
				return path
			}
		}
		if path == "~" {
			return homeDir
		}
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(homeDir, path[2:])
		}
	}

	return path
}

// SanitizePath cleans a path: home expansion plus filepath.Clean.
func SanitizePath(path string) string {
	cleaned := filepath.Clean(ExpandHome(path))
	if cleaned == "" {
		return "."
	}
	return cleaned
}

// cloudRootCandidates are probed, in order, relative to the home directory.
var cloudRootCandidates = []string{
	"OneDrive",
	"OneDrive - Personal",
	"OneDrive - Business",
	"Dropbox",
	"Google Drive",
}

// DetectCloudRoot probes well-known synced-folder locations under the home
// directory and returns the first existing one.
func DetectCloudRoot() (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}

	for _, name := range cloudRootCandidates {
		candidate := filepath.Join(home, name)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// DefaultScanRoots returns the directories scanned for junctions when the
// caller supplies none: the common user folders plus the detected cloud
// root, limited to those that exist.
func DefaultScanRoots() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	candidates := []string{
		filepath.Join(home, "Documents"),
		filepath.Join(home, "Desktop"),
		filepath.Join(home, "Downloads"),
		filepath.Join(home, "Pictures"),
	}
	if cloud, ok := DetectCloudRoot(); ok {
		candidates = append(candidates, cloud)
	}

	var roots []string
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.IsDir() {
			roots = append(roots, c)
		}
	}
	return roots
}
