// Package ui provides terminal output helpers for the cropcare CLI.
package ui

import (
	"github.com/fatih/color"
)

var verboseFlag bool

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgGreen, color.Bold)
	userColor    = color.New(color.FgBlue, color.Bold)
	dimColor     = color.New(color.Faint)
)

// Init configures color and verbosity for all UI output.
func Init(noColor, verbose bool) {
	verboseFlag = verbose
	if noColor {
		color.NoColor = true
	}
}

// Verbose reports whether verbose output was requested.
func Verbose() bool {
	return verboseFlag
}
