package main

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// setupOutput disables styling when stdout is not a terminal, so piped
// output stays clean.
func setupOutput() {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		pterm.DisableColor()
		pterm.DisableStyling()
	}
}

func printError(err error) {
	pterm.Error.Println(err.Error())
}

func printSuccess(msg string) {
	pterm.Success.Println(msg)
}

func printInfo(msg string) {
	pterm.Info.Println(msg)
}
