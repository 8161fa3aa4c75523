// Package inspector answers point-in-time questions about filesystem
// paths: existence, type, writability, junction status and target, and
// free space. It never mutates anything.
package inspector

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/relink/pkg/logging"
	"github.com/arthur-debert/relink/pkg/types"
	"github.com/rs/zerolog"
)

// osInspector implements types.Inspector against the host filesystem.
type osInspector struct {
	logger zerolog.Logger
}

// NewOS creates an Inspector backed by the host filesystem.
func NewOS() types.Inspector {
	return &osInspector{logger: logging.GetLogger("inspector")}
}

func (i *osInspector) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (i *osInspector) IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsJunction reports whether path is a directory link: a symlink (or, on
// Windows, a reparse point) whose resolved target is a directory.
func (i *osInspector) IsJunction(path string) bool {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return false
	}

	resolved, err := os.Stat(path)
	return err == nil && resolved.IsDir()
}

func (i *osInspector) JunctionTarget(path string) (string, bool) {
	if !i.IsJunction(path) {
		return "", false
	}

	target, err := os.Readlink(path)
	if err != nil {
		i.logger.Debug().Err(err).Str("path", path).Msg("Cannot read link target")
		return "", false
	}

	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return target, true
}
