// Package render writes the human-facing output of a run: the load summary
// printed after a sync and the schema preview printed by inspect. Output is
// a styled table when a human is at the terminal and plain log lines when
// piped or running under CI conventions.
package render

import (
	"os"

	"golang.org/x/term"
)

// Mode represents the output mode for tabsync.
type Mode int

const (
	// ModeNonInteractive is used for CI/CD pipelines, scripts, and piped output.
	ModeNonInteractive Mode = iota
	// ModeInteractive is used when a human is at the terminal.
	ModeInteractive
)

// DetectMode determines whether tabsync should produce styled terminal
// output and interactive prompts, or plain non-interactive output.
//
// Returns ModeNonInteractive if:
//   - stdin or stdout is not a terminal (piped input/output, CI/CD)
//   - TABSYNC_NON_INTERACTIVE=1 is set
//   - CI is set (common CI/CD convention)
//   - NO_COLOR is set (accessibility/automation indicator)
//
// Returns ModeInteractive otherwise.
func DetectMode() Mode {
	// Check environment overrides first
	if os.Getenv("TABSYNC_NON_INTERACTIVE") == "1" {
		return ModeNonInteractive
	}
	if os.Getenv("CI") != "" {
		return ModeNonInteractive
	}
	if os.Getenv("NO_COLOR") != "" {
		return ModeNonInteractive
	}

	// Prompts read stdin; summaries write stdout. Either side being a pipe
	// drops the whole run to plain mode.
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ModeNonInteractive
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return ModeNonInteractive
	}

	return ModeInteractive
}

// IsInteractive is a convenience function that returns true if running in interactive mode.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}
