package main

import (
	"github.com/arthur-debert/relink/pkg/backup"
	"github.com/arthur-debert/relink/pkg/command"
	"github.com/arthur-debert/relink/pkg/config"
	"github.com/arthur-debert/relink/pkg/filesystem"
	"github.com/arthur-debert/relink/pkg/inspector"
	"github.com/arthur-debert/relink/pkg/junctions"
	"github.com/arthur-debert/relink/pkg/ledger"
	"github.com/arthur-debert/relink/pkg/logging"
	"github.com/arthur-debert/relink/pkg/paths"
	"github.com/arthur-debert/relink/pkg/types"
)

// app wires the core components for one CLI invocation.
type app struct {
	fs           types.FS
	inspector    types.Inspector
	cfg          *config.Config
	cfgPath      string
	ledger       *ledger.Ledger
	orchestrator *backup.Orchestrator
	registry     *junctions.Registry
}

func newApp() (*app, error) {
	fs := filesystem.NewOS()
	insp := inspector.NewOS()

	cfgPath, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(fs, cfgPath)
	if err != nil {
		return nil, err
	}

	led, err := ledger.NewDefault(fs)
	if err != nil {
		return nil, err
	}

	orch, err := backup.New(backup.Options{
		FS:        fs,
		Inspector: insp,
		Runner:    command.NewRunner(),
		Ledger:    led,
		Config:    cfg.Backup,
		Logger:    logging.GetLogger("backup"),
	})
	if err != nil {
		return nil, err
	}

	return &app{
		fs:           fs,
		inspector:    insp,
		cfg:          cfg,
		cfgPath:      cfgPath,
		ledger:       led,
		orchestrator: orch,
		registry:     junctions.New(junctions.Options{FS: fs, Inspector: insp, Logger: logging.GetLogger("junctions")}),
	}, nil
}

// scanRoots resolves the junction scan roots: explicit arguments win, then
// configured roots, then the built-in defaults.
func (a *app) scanRoots(args []string) []string {
	if len(args) > 0 {
		return args
	}
	if len(a.cfg.Scan.Roots) > 0 {
		return a.cfg.Scan.Roots
	}
	return paths.DefaultScanRoots()
}

// rememberPaths records the last successful source/target pair when the
// config asks for it. Failures here are not worth failing the command.
func (a *app) rememberPaths(source, target string) {
	if !a.cfg.Backup.RememberPaths {
		return
	}
	a.cfg.Paths.LastSource = source
	a.cfg.Paths.LastTarget = target
	_ = a.cfg.Save(a.fs, a.cfgPath)
}
