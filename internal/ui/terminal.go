// Package ui renders Sterling's CLI human-readable output (conflict
// sets, decision-packet slices, schema listings), grounded in the
// teacher's internal/ui terminal-capability idiom: NO_COLOR/CLICOLOR
// environment conventions and a TTY check gating color/emoji output.
package ui

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// IsTerminal reports whether stdout is attached to an interactive
// terminal.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// ShouldUseColor implements the NO_COLOR/CLICOLOR/CLICOLOR_FORCE
// convention: NO_COLOR always wins, CLICOLOR_FORCE always enables color
// regardless of TTY state, CLICOLOR=0 disables, and otherwise color
// follows whether stdout is a terminal with a color-capable profile
// (termenv.EnvColorProfile, so a dumb terminal or piped output with
// COLORTERM unset still renders plain).
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	if os.Getenv("CLICOLOR") == "0" {
		return false
	}
	if !IsTerminal() {
		return false
	}
	return termenv.EnvColorProfile() != termenv.Ascii
}

// ShouldUseEmoji reports whether decorative emoji may be printed:
// STERLING_NO_EMOJI always disables it, otherwise it follows the TTY
// check.
func ShouldUseEmoji() bool {
	if os.Getenv("STERLING_NO_EMOJI") != "" {
		return false
	}
	return IsTerminal()
}
