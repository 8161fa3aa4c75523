package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeCmd = &cobra.Command{
	Use:   "remove PATH",
	Short: "Remove a junction link",
	Long: `Remove the junction at PATH. Only the link itself is deleted; the
target contents are never touched.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.registry.Remove(args[0]); err != nil {
			return err
		}
		printSuccess(fmt.Sprintf("Junction removed: %s", args[0]))
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify PATH",
	Short: "Verify a junction is healthy",
	Long: `Check that PATH is a junction with a resolvable target that still
exists.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if err := a.registry.Verify(args[0]); err != nil {
			return err
		}
		info, err := a.registry.Info(args[0])
		if err != nil {
			return err
		}
		printSuccess(fmt.Sprintf("Junction is valid: %s -> %s", info.Source, info.Target))
		return nil
	},
}
