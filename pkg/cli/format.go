// Package cli provides shared formatting helpers for the newtboot CLI.
package cli

import "github.com/fatih/color"

// Color output is disabled by fatih/color when NO_COLOR is set or stdout is
// not a terminal.
var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// Green renders s in green
func Green(s string) string { return green(s) }

// Yellow renders s in yellow
func Yellow(s string) string { return yellow(s) }

// Red renders s in red
func Red(s string) string { return red(s) }

// Bold renders s in bold
func Bold(s string) string { return bold(s) }

// Dim renders s dimmed
func Dim(s string) string { return dim(s) }
