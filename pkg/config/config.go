// Package config loads and persists relink's application configuration,
// a TOML file at $XDG_CONFIG_HOME/relink/config.toml. Missing keys fall
// back to defaults; unknown keys are preserved on save by virtue of the
// wholesale rewrite of known sections only.
package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/relink/pkg/errors"
	"github.com/arthur-debert/relink/pkg/logging"
	"github.com/arthur-debert/relink/pkg/types"
	"github.com/pelletier/go-toml/v2"
)

// EnvConfigDir overrides the XDG config directory for relink.
const EnvConfigDir = "RELINK_CONFIG_DIR"

// Backup holds the knobs of the relocation core.
type Backup struct {
	// MinFreeSpaceMB is the minimum free space required at the target
	// location before a relocation is allowed to start.
	MinFreeSpaceMB int64 `toml:"min_free_space_mb"`

	// MoveTimeoutSeconds bounds the atomic move and each link command.
	MoveTimeoutSeconds int `toml:"move_timeout_seconds"`

	// CopyTimeoutSeconds bounds the bulk-copy fallback, which retries with
	// backoff under permission contention and so needs more room.
	CopyTimeoutSeconds int `toml:"copy_timeout_seconds"`

	// RememberPaths records the last successful source/target pair.
	RememberPaths bool `toml:"remember_paths"`
}

// Paths holds remembered and detected locations.
type Paths struct {
	LastSource string `toml:"last_source"`
	LastTarget string `toml:"last_target"`

	// CloudRoot overrides sync-root autodetection when set.
	CloudRoot string `toml:"cloud_root"`
}

// Scan configures junction discovery.
type Scan struct {
	// Roots lists the directories scanned when the caller supplies none.
	Roots []string `toml:"roots"`

	// Depth bounds how deep each root is scanned.
	Depth int `toml:"depth"`
}

// Config is the full application configuration.
type Config struct {
	Backup Backup `toml:"backup"`
	Paths  Paths  `toml:"paths"`
	Scan   Scan   `toml:"scan"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backup: Backup{
			MinFreeSpaceMB:     100,
			MoveTimeoutSeconds: 30,
			CopyTimeoutSeconds: 120,
			RememberPaths:      true,
		},
		Scan: Scan{
			Depth: 1,
		},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return filepath.Join(dir, "config.toml"), nil
	}
	return xdg.ConfigFile(filepath.Join("relink", "config.toml"))
}

// Load reads the configuration at path, overlaying file values onto the
// defaults. A missing file yields the defaults.
func Load(fs types.FS, path string) (*Config, error) {
	logger := logging.GetLogger("config")
	cfg := Default()

	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug().Str("path", path).Msg("No config file, using defaults")
			return cfg, nil
		}
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "cannot read config %s", path)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "cannot parse config %s", path)
	}

	logger.Debug().Str("path", path).Msg("Configuration loaded")
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories as
// needed.
func (c *Config) Save(fs types.FS, path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, errors.ErrConfigLoad, "cannot encode config")
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrConfigLoad, "cannot create config directory for %s", path)
	}
	if err := fs.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrConfigLoad, "cannot write config %s", path)
	}
	return nil
}
