// SPDX-License-Identifier: MIT
package termstyle

import (
	"github.com/liggitt/tabwriter"

	"github.com/skaphos/gitsync/internal/model"
)

const (
	Reset   = "\x1b[0m"
	Green   = "\x1b[32m"
	Brown   = "\x1b[33m"
	Red     = "\x1b[31m"
	Blue    = "\x1b[34m"
	Magenta = "\x1b[35m"

	// Semantic aliases used by status output.
	Healthy   = Green
	Warn      = Brown
	Error     = Red
	Info      = Blue
	Attention = Magenta
)

// Colorize wraps a value in ANSI escapes for output that passes through a
// tabwriter created with StripEscape.
func Colorize(enabled bool, value, color string) string {
	if !enabled || value == "" || color == "" {
		return value
	}
	// Hide ANSI sequences from tabwriter width calculations so columns align.
	esc := string([]byte{tabwriter.Escape})
	return esc + color + esc + value + esc + Reset + esc
}

// Paint wraps a value in raw ANSI escapes for line-oriented output.
func Paint(enabled bool, value, color string) string {
	if !enabled || value == "" || color == "" {
		return value
	}
	return color + value + Reset
}

// OutcomeColor picks the color for an outcome tag.
func OutcomeColor(outcome model.Outcome) string {
	switch outcome {
	case model.OutcomeOK:
		return Healthy
	case model.OutcomeBehindMerged, model.OutcomeAheadPushed:
		return Info
	case model.OutcomeAheadNeedsPush:
		return Warn
	case model.OutcomeDiverged:
		return Attention
	case model.OutcomeError:
		return Error
	default:
		return ""
	}
}
