// Package junctions discovers and maintains directory junctions under
// configured roots. These are read/maintenance operations independent of
// any in-flight relocation; they never touch the rollback ledger.
package junctions

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/relink/pkg/errors"
	"github.com/arthur-debert/relink/pkg/filesystem"
	"github.com/arthur-debert/relink/pkg/inspector"
	"github.com/arthur-debert/relink/pkg/logging"
	"github.com/arthur-debert/relink/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultDepth bounds how deep each root is scanned.
const DefaultDepth = 1

// Options configures a Registry.
type Options struct {
	FS        types.FS
	Inspector types.Inspector
	Logger    zerolog.Logger
}

// Registry offers discovery and per-junction maintenance.
type Registry struct {
	fs        types.FS
	inspector types.Inspector
	logger    zerolog.Logger
}

// New creates a Registry.
func New(opts Options) *Registry {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("junctions")
	}

	fs := opts.FS
	if fs == nil {
		fs = filesystem.NewOS()
	}

	insp := opts.Inspector
	if insp == nil {
		insp = inspector.NewOS()
	}

	return &Registry{fs: fs, inspector: insp, logger: logger}
}

// List scans each root to the given depth (DefaultDepth when depth <= 0)
// for junctions. Per-root scan failures are logged and skipped, never
// aborting the whole scan. Order is discovery order and not significant.
func (r *Registry) List(roots []string, depth int) []types.JunctionInfo {
	if depth <= 0 {
		depth = DefaultDepth
	}

	var found []types.JunctionInfo
	for _, root := range roots {
		if !r.inspector.Exists(root) {
			continue
		}
		infos, err := r.scan(root, depth)
		if err != nil {
			r.logger.Warn().Err(err).Str("root", root).Msg("Skipping root, scan failed")
			continue
		}
		found = append(found, infos...)
	}
	return found
}

func (r *Registry) scan(dir string, depth int) ([]types.JunctionInfo, error) {
	entries, err := r.fs.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var found []types.JunctionInfo
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if r.inspector.IsJunction(path) {
			info := types.JunctionInfo{Source: path}
			if target, ok := r.inspector.JunctionTarget(path); ok {
				info.Target = target
				info.TargetExists = r.inspector.Exists(target)
			}
			if fi, err := r.fs.Lstat(path); err == nil {
				info.Created = fi.ModTime()
			}
			found = append(found, info)
			continue
		}

		if entry.IsDir() && depth > 1 {
			sub, err := r.scan(path, depth-1)
			if err != nil {
				r.logger.Debug().Err(err).Str("dir", path).Msg("Skipping subdirectory")
				continue
			}
			found = append(found, sub...)
		}
	}
	return found, nil
}

// Info returns discovery details for a single junction.
func (r *Registry) Info(path string) (types.JunctionInfo, error) {
	if !r.inspector.IsJunction(path) {
		return types.JunctionInfo{}, errors.Newf(errors.ErrNotAJunction, "not a junction: %s", path)
	}

	info := types.JunctionInfo{Source: path}
	if target, ok := r.inspector.JunctionTarget(path); ok {
		info.Target = target
		info.TargetExists = r.inspector.Exists(target)
	}
	if fi, err := r.fs.Lstat(path); err == nil {
		info.Created = fi.ModTime()
	}
	return info, nil
}

// Remove deletes the junction link itself, never the link's target
// contents. Dangling links are removable: a junction whose target vanished
// is exactly the case where removal is wanted.
func (r *Registry) Remove(path string) error {
	if !r.inspector.Exists(path) {
		return errors.Newf(errors.ErrJunctionMissing, "junction does not exist: %s", path)
	}
	if !r.inspector.IsJunction(path) && !r.isLink(path) {
		return errors.Newf(errors.ErrNotAJunction, "not a junction: %s", path)
	}

	if err := r.fs.Remove(path); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "cannot remove junction %s", path)
	}

	r.logger.Info().Str("path", path).Msg("Junction removed")
	return nil
}

// isLink reports whether path is a link at all, healthy or dangling.
func (r *Registry) isLink(path string) bool {
	fi, err := r.fs.Lstat(path)
	return err == nil && fi.Mode()&os.ModeSymlink != 0
}

// Verify checks that a junction is present and healthy: it exists, is a
// junction, has a resolvable target, and the target still exists.
func (r *Registry) Verify(path string) error {
	if !r.inspector.Exists(path) {
		return errors.Newf(errors.ErrJunctionMissing, "junction does not exist: %s", path)
	}
	if !r.inspector.IsJunction(path) {
		// A link whose target vanished no longer resolves to a
		// directory; report that as dangling rather than "not a
		// junction".
		if r.isLink(path) {
			return errors.Newf(errors.ErrJunctionDangling,
				"junction target no longer exists: %s", path)
		}
		return errors.Newf(errors.ErrNotAJunction, "not a junction: %s", path)
	}

	target, ok := r.inspector.JunctionTarget(path)
	if !ok || target == "" {
		return errors.Newf(errors.ErrJunctionNoTarget, "junction has no resolvable target: %s", path)
	}
	if !r.inspector.Exists(target) {
		return errors.Newf(errors.ErrJunctionDangling,
			"junction target no longer exists: %s -> %s", path, target)
	}

	return nil
}
