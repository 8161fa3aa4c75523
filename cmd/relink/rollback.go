package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll back an interrupted relocation",
	Long: `Undo a relocation attempt that did not commit: remove the junction if
one was created, move the data back, and restore any pre-existing link.
The pending attempt is loaded from the durable ledger, so this works even
after the process that started the relocation crashed.

With no pending attempt this is a no-op.`,
	Args: cobra.NoArgs,
	RunE: runRollback,
}

func runRollback(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	record, err := a.ledger.Load()
	if err != nil {
		return err
	}
	if record == nil {
		printInfo("No pending relocation, nothing to roll back")
		return nil
	}

	printInfo(fmt.Sprintf("Rolling back %s -> %s (started %s)",
		record.Source, record.Target, record.Timestamp.Format("2006-01-02 15:04:05")))

	if err := a.orchestrator.Rollback(); err != nil {
		return err
	}

	printSuccess("Rollback completed, original state restored")
	return nil
}
