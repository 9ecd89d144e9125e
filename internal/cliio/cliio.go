// SPDX-License-Identifier: MIT

// Package cliio holds the terminal input/output helpers used by the CLI.
package cliio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/liggitt/tabwriter"
)

// Confirm asks a yes/no question on out and reads the answer from in.
// An empty answer, or end of input, selects def.
func Confirm(out io.Writer, in io.Reader, question string, def bool) (bool, error) {
	suffix := " [y/N]: "
	if def {
		suffix = " [Y/n]: "
	}
	if _, err := fmt.Fprint(out, question+suffix); err != nil {
		return false, err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Table is a column-aligned text table.
type Table struct {
	Headers []string
	Rows    [][]string
	// NoHeaders suppresses the header row.
	NoHeaders bool
	// StripEscape hides tabwriter-escaped colour sequences from width
	// calculations; cells must be wrapped with termstyle.Colorize.
	StripEscape bool
}

// Write renders t to out.
func (t Table) Write(out io.Writer) error {
	var flags uint
	if t.StripEscape {
		flags = tabwriter.StripEscape
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', flags)
	if !t.NoHeaders && len(t.Headers) > 0 {
		if _, err := fmt.Fprintln(w, strings.Join(t.Headers, "\t")); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return w.Flush()
}
