// Package presenter provides consistent CLI output for user-facing
// messages: success, error, warning, and informational lines with color
// support and a quiet mode.
package presenter

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// TerminalPresenter writes user-facing messages to a terminal
type TerminalPresenter struct {
	output      io.Writer
	errorOutput io.Writer
	quiet       bool
}

var defaultPresenter = NewTerminalPresenter(os.Stdout, os.Stderr)

// NewTerminalPresenter creates a presenter writing to the given streams
func NewTerminalPresenter(output, errorOutput io.Writer) *TerminalPresenter {
	return &TerminalPresenter{
		output:      output,
		errorOutput: errorOutput,
	}
}

// SetQuiet suppresses non-error output
func (p *TerminalPresenter) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// Error prints an error with a human-readable context line
func (p *TerminalPresenter) Error(err error, context string) {
	red := color.New(color.FgRed, color.Bold)
	fmt.Fprintf(p.errorOutput, "%s %s: %v\n", red.Sprint("Error:"), context, err)
}

// Success prints a confirmation message
func (p *TerminalPresenter) Success(message string) {
	if p.quiet {
		return
	}
	green := color.New(color.FgGreen)
	fmt.Fprintf(p.output, "%s %s\n", green.Sprint("✓"), message)
}

// Warning prints a cautionary message
func (p *TerminalPresenter) Warning(message string) {
	if p.quiet {
		return
	}
	yellow := color.New(color.FgYellow)
	fmt.Fprintf(p.output, "%s %s\n", yellow.Sprint("Warning:"), message)
}

// Info prints an informational message
func (p *TerminalPresenter) Info(message string) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.output, message)
}

// Section prints a titled separator
func (p *TerminalPresenter) Section(title string) {
	if p.quiet {
		return
	}
	bold := color.New(color.Bold)
	fmt.Fprintf(p.output, "\n%s\n", bold.Sprint(title))
}

// Package-level helpers writing through the default presenter

func Error(err error, context string) { defaultPresenter.Error(err, context) }
func Success(message string)          { defaultPresenter.Success(message) }
func Warning(message string)          { defaultPresenter.Warning(message) }
func Info(message string)             { defaultPresenter.Info(message) }
func Section(title string)            { defaultPresenter.Section(title) }
func SetQuiet(quiet bool)             { defaultPresenter.SetQuiet(quiet) }
