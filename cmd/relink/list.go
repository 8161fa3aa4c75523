package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var listDepth int

var listCmd = &cobra.Command{
	Use:   "list [ROOT...]",
	Short: "List junctions under the given roots",
	Long: `Scan the given roots (or the configured/default ones when omitted) for
directory junctions. Roots that cannot be scanned are skipped with a
warning rather than aborting the scan.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVar(&listDepth, "depth", 0, "Scan depth per root (default from config)")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	depth := listDepth
	if depth <= 0 {
		depth = a.cfg.Scan.Depth
	}

	found := a.registry.List(a.scanRoots(args), depth)
	if len(found) == 0 {
		printInfo("No junctions found")
		return nil
	}

	rows := pterm.TableData{{"SOURCE", "TARGET", "TARGET OK", "CREATED"}}
	for _, j := range found {
		ok := "yes"
		if !j.TargetExists {
			ok = "MISSING"
		}
		rows = append(rows, []string{j.Source, j.Target, ok, j.Created.Format("2006-01-02 15:04")})
	}

	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
