package main

import (
	"fmt"

	"github.com/arthur-debert/relink/pkg/types"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup SOURCE TARGET",
	Short: "Relocate a folder onto the synced volume and link back",
	Long: `Move SOURCE onto TARGET and replace SOURCE with a directory junction
pointing at the moved data. If TARGET is an existing directory, SOURCE is
nested under it as TARGET/<basename of SOURCE>.

The operation is transactional: any failure after the move begins rolls
the filesystem back to its original state automatically.`,
	Args: cobra.ExactArgs(2),
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	source, target := args[0], args[1]

	bar, _ := pterm.DefaultProgressbar.
		WithTotal(100).
		WithTitle("Relocating").
		Start()

	last := 0
	progress := func(stage types.Stage, percent int) {
		bar.UpdateTitle(stageTitle(stage))
		if percent > last {
			bar.Add(percent - last)
			last = percent
		}
	}

	if err := a.orchestrator.ExecuteBackup(source, target, progress); err != nil {
		_, _ = bar.Stop()
		return err
	}
	_, _ = bar.Stop()

	a.rememberPaths(source, target)
	printSuccess(fmt.Sprintf("%s relocated, junction in place", source))
	return nil
}

func stageTitle(stage types.Stage) string {
	switch stage {
	case types.StageValidating:
		return "Validating paths"
	case types.StageSnapshot:
		return "Writing rollback ledger"
	case types.StageMoving:
		return "Moving data"
	case types.StageLinking:
		return "Creating junction"
	case types.StageVerifying:
		return "Verifying"
	case types.StageRollingBack:
		return "Rolling back"
	case types.StageDone:
		return "Done"
	}
	return string(stage)
}
