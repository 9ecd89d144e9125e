// SPDX-License-Identifier: MIT

// Package strutil holds small string helpers shared by the CLI layers.
package strutil

import "strings"

// SplitCSV splits a comma-separated list, trimming blanks and dropping
// empty items.
func SplitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Indent prefixes every non-empty line of text with prefix.
func Indent(text, prefix string) string {
	lines := strings.Split(strings.TrimRight(text, "\r\n"), "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			line = prefix + line
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}
