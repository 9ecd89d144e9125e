// SPDX-License-Identifier: MIT
package cliio

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"

	"github.com/skaphos/gitsync/internal/model"
	"github.com/skaphos/gitsync/internal/strutil"
	"github.com/skaphos/gitsync/internal/termstyle"
)

// Output formats accepted by the CLI.
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatText, FormatTable, FormatJSON, FormatYAML}

// ValidFormat reports whether format is one of Formats.
func ValidFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Streaming reports whether format prints each repository as it finishes.
func Streaming(format string) bool {
	return format == FormatText
}

// FormatOptions controls how a report is rendered.
type FormatOptions struct {
	Color   bool
	Verbose bool
}

const detailIndent = "    "

// Hint returns the operator hint for outcomes that need a manual step.
func Hint(r model.RepoState) string {
	switch {
	case r.Outcome == model.OutcomeDiverged:
		return "manual merge/rebase needed"
	case r.Failure != nil && r.Failure.Kind == model.ErrorMergeBlocked:
		return "local changes?"
	default:
		return ""
	}
}

// FormatReport renders the status line for one repository:
//
//	<worktree> (<branch>) [ahead: N] [behind: M] [TAG] [hint]
//
// Counts are shown only when positive. In verbose mode the command that was
// acted on and the raw diagnostic of a failed step follow on indented lines.
func FormatReport(r model.Report, opts FormatOptions) string {
	var b strings.Builder
	b.WriteString(r.Location.WorkTree)
	if r.Branch != "" {
		fmt.Fprintf(&b, " (%s)", r.Branch)
	}
	if n := r.AheadCount(); n > 0 {
		fmt.Fprintf(&b, " [ahead: %d]", n)
	}
	if n := r.BehindCount(); n > 0 {
		fmt.Fprintf(&b, " [behind: %d]", n)
	}
	color := termstyle.OutcomeColor(r.Outcome)
	fmt.Fprintf(&b, " [%s]", termstyle.Paint(opts.Color, r.Tag(), color))
	if hint := Hint(r.RepoState); hint != "" {
		fmt.Fprintf(&b, " [%s]", termstyle.Paint(opts.Color, hint, color))
	}
	b.WriteByte('\n')
	if opts.Verbose {
		if r.Action != "" {
			b.WriteString(detailIndent + r.Action + "\n")
		}
		if r.Failure != nil && strings.TrimSpace(r.Failure.Detail) != "" {
			b.WriteString(strutil.Indent(r.Failure.Detail, detailIndent) + "\n")
		}
	}
	return b.String()
}

// LineWriter streams status lines to an io.Writer. Each report is a single
// Write so lines from different repositories never interleave.
type LineWriter struct {
	mu   sync.Mutex
	out  io.Writer
	opts FormatOptions
	err  error
}

// NewLineWriter creates a LineWriter.
func NewLineWriter(out io.Writer, opts FormatOptions) *LineWriter {
	return &LineWriter{out: out, opts: opts}
}

// Report writes the status line for r.
func (w *LineWriter) Report(r model.Report) {
	w.write(FormatReport(r, w.opts))
}

// Notice writes a free-form message line.
func (w *LineWriter) Notice(msg string) {
	w.write(msg + "\n")
}

// Err returns the first write error.
func (w *LineWriter) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *LineWriter) write(s string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return
	}
	if _, err := io.WriteString(w.out, s); err != nil {
		w.err = err
	}
}

// Collector buffers notices for the batch output formats.
type Collector struct {
	mu      sync.Mutex
	notices []string
}

// Report is a no-op; batch formats render the returned reports.
func (c *Collector) Report(model.Report) {}

// Notice records msg.
func (c *Collector) Notice(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, msg)
}

// Notices returns the recorded notices.
func (c *Collector) Notices() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.notices...)
}

// Document is the structured output of one sync run.
type Document struct {
	Root    string         `json:"root" yaml:"root"`
	Repos   []model.Report `json:"repos" yaml:"repos"`
	Summary model.Summary  `json:"summary" yaml:"summary"`
	Notices []string       `json:"notices,omitempty" yaml:"notices,omitempty"`
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(out io.Writer, doc Document) error {
	if doc.Repos == nil {
		doc.Repos = []model.Report{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// WriteYAML writes doc as YAML.
func WriteYAML(out io.Writer, doc Document) error {
	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// WriteReportTable renders one row per repository followed by a count per
// outcome tag.
func WriteReportTable(out io.Writer, reports []model.Report, color, noHeaders bool) error {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		rows = append(rows, []string{
			r.Location.WorkTree,
			dashIfEmpty(r.Branch),
			countCell(r.Ahead),
			countCell(r.Behind),
			termstyle.Colorize(color, r.Tag(), termstyle.OutcomeColor(r.Outcome)),
			tableDetail(r.RepoState),
		})
	}
	headers := []string{"PATH", "BRANCH", "AHEAD", "BEHIND", "OUTCOME", "DETAIL"}
	repoTable := Table{Headers: headers, Rows: rows, NoHeaders: noHeaders, StripEscape: color}
	if err := repoTable.Write(out); err != nil {
		return err
	}

	sum := model.Summarize(reports)
	tags := make([]string, 0, len(sum.ByTag))
	for tag := range sum.ByTag {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	summary := make([][]string, 0, len(tags)+1)
	for _, tag := range tags {
		summary = append(summary, []string{tag, strconv.Itoa(sum.ByTag[tag])})
	}
	summary = append(summary, []string{"TOTAL", strconv.Itoa(sum.Total)})
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}
	return Table{Headers: []string{"OUTCOME", "COUNT"}, Rows: summary, NoHeaders: noHeaders}.Write(out)
}

func countCell(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func tableDetail(r model.RepoState) string {
	if hint := Hint(r); hint != "" {
		return hint
	}
	if r.Failure != nil {
		line, _, _ := strings.Cut(strings.TrimSpace(r.Failure.Detail), "\n")
		return dashIfEmpty(strings.TrimSpace(line))
	}
	return "-"
}
