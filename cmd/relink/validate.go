package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/arthur-debert/relink/pkg/command"
	"github.com/arthur-debert/relink/pkg/debounce"
	"github.com/spf13/cobra"
)

var validateInteractive bool

var validateCmd = &cobra.Command{
	Use:   "validate SOURCE TARGET",
	Short: "Check a relocation request without changing anything",
	Long: `Run the pre-flight checks for a relocation: source must be an existing,
readable directory that is not already a junction; the target's parent
must exist, be writable and have enough free space; both paths must fit
the platform path limit. Nothing is mutated and no ledger is written.

With --interactive, source/target pairs are read from stdin (tab or
space separated, one pair per line) and validated after a short typing
pause, superseding any pending check for the same field.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if validateInteractive {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateInteractive, "interactive", false,
		"Read source/target pairs from stdin and validate each after a quiet period")
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	// Environment probe before path checks, mirroring what the backup
	// itself will need.
	probe := command.ProbeShell()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if res, err := command.NewRunner().Run(ctx, probe.Name, probe.Args...); err != nil || !res.Success {
		printInfo("Command runner unavailable; the move fallback and junction commands will fail")
	}

	if !validateInteractive {
		if err := a.orchestrator.ValidatePaths(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Paths are valid")
		return nil
	}

	return runValidateInteractive(a)
}

// runValidateInteractive debounces validation per input line so a fast
// sequence of edits only validates the final state.
func runValidateInteractive(a *app) error {
	deb := debounce.New(500 * time.Millisecond)
	defer deb.Stop()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 {
			printInfo("Expected: SOURCE TARGET")
			continue
		}
		source, target := fields[0], fields[1]
		deb.Trigger("request", func() {
			if err := a.orchestrator.ValidatePaths(source, target); err != nil {
				printError(err)
				return
			}
			printSuccess(fmt.Sprintf("OK: %s -> %s", source, target))
		})
	}
	// Let a trailing pending validation fire before exiting.
	time.Sleep(600 * time.Millisecond)
	return scanner.Err()
}
