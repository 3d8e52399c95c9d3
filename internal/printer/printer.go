// Package printer renders diagnostics and progress lines on a terminal or as
// JSON lines.
//
// Text output distinguishes transient lines, which end in a carriage return
// and are overwritten by the next line, from persistent lines. The tag of the
// last transient line is printer state: a transient line with a different tag
// first terminates the pending one so it stays visible.
package printer

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"satwatch/internal/diagnostic"
)

// Sink receives everything satwatch reports.
type Sink interface {
	PrintTransient(tag, line string)
	PrintPersistent(line string)
	Emit(d diagnostic.Diagnostic)
	EmitSummary(s *diagnostic.IterationSummary)
	// PrintBlock prints a multi-line text rendering, or the structured value
	// when the output is machine readable.
	PrintBlock(kind, text string, value any)
}

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Transient line tags.
const (
	TagQueue    = "queue"
	TagSelected = "selected"
)

const separatorWidth = 40

// clearLine erases the current terminal line before it is overwritten.
const clearLine = "\x1b[2K"

// Options configure a Printer.
type Options struct {
	Format      string
	Color       bool
	Interactive bool // transient lines are only shown on interactive outputs
	RunID       string
}

// Printer is the concrete Sink. Not safe for concurrent use.
type Printer struct {
	w      io.Writer
	opts   Options
	styles Styles

	lastTag string
	err     error
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// New creates a printer writing to w.
func New(w io.Writer, opts Options) *Printer {
	if opts.Format == "" {
		opts.Format = FormatText
	}
	return &Printer{
		w:      w,
		opts:   opts,
		styles: NewStyles(w, opts.Color && opts.Format == FormatText),
	}
}

// Err returns the first write error, if any.
func (p *Printer) Err() error {
	return p.err
}

func (p *Printer) json() bool {
	return p.opts.Format == FormatJSON
}

func (p *Printer) write(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

// PrintTransient shows a status line that the next line overwrites.
func (p *Printer) PrintTransient(tag, line string) {
	if p.json() || !p.opts.Interactive {
		return
	}
	prefix := ""
	if p.lastTag != "" && p.lastTag != tag {
		prefix = "\n"
	} else if p.lastTag == tag {
		prefix = clearLine
	}
	p.lastTag = tag
	p.write(prefix + p.styles.Paint(p.styles.Transient, line) + "\r")
}

// PrintPersistent prints a line that stays, replacing any pending transient line.
func (p *Printer) PrintPersistent(line string) {
	if p.json() {
		p.record("message", map[string]any{"text": line})
		return
	}
	p.persistent(line)
}

func (p *Printer) persistent(line string) {
	prefix := ""
	if p.lastTag != "" {
		prefix = clearLine
		p.lastTag = ""
	}
	p.write(prefix + line + "\n")
}

// Emit prints one diagnostic.
func (p *Printer) Emit(d diagnostic.Diagnostic) {
	if p.json() {
		p.record("diagnostic", d)
		return
	}
	p.persistent(p.formatDiagnostic(d))
}

func (p *Printer) formatDiagnostic(d diagnostic.Diagnostic) string {
	label := p.styles.Paint(p.styles.ForSeverity(d.Severity), fmt.Sprintf("[%s] %s", d.Severity, d.Label))
	return label + ": " + d.Payload
}

// EmitSummary prints the title, the grouped diagnostics, the total line and
// a group separator.
func (p *Printer) EmitSummary(s *diagnostic.IterationSummary) {
	if p.json() {
		p.record("iteration", struct {
			Iteration   int                     `json:"iteration"`
			Title       string                  `json:"title"`
			Total       string                  `json:"total"`
			Diagnostics []diagnostic.Diagnostic `json:"diagnostics"`
		}{s.Iteration, s.Title, s.Total, s.Diagnostics()})
		return
	}

	p.persistent(p.styles.Paint(p.styles.Title, s.Title))
	for _, d := range s.Diagnostics() {
		p.persistent(p.formatDiagnostic(d))
	}
	p.persistent(p.styles.Paint(p.styles.Total, "total: "+s.Total))
	p.persistent(p.styles.Paint(p.styles.Separator, strings.Repeat("─", separatorWidth)))
}

// PrintBlock prints text line by line, or value as a single JSON record.
func (p *Printer) PrintBlock(kind, text string, value any) {
	if p.json() {
		p.record(kind, value)
		return
	}
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		p.persistent(line)
	}
}

// Finish terminates a pending transient line.
func (p *Printer) Finish() {
	if p.lastTag != "" {
		p.lastTag = ""
		p.write("\n")
	}
}

type record struct {
	Type  string    `json:"type"`
	RunID string    `json:"run_id,omitempty"`
	Time  time.Time `json:"time"`
	Data  any       `json:"data"`
}

func (p *Printer) record(kind string, data any) {
	b, err := json.Marshal(record{Type: kind, RunID: p.opts.RunID, Time: time.Now().UTC(), Data: data})
	if err != nil {
		p.record("error", map[string]string{"error": err.Error()})
		return
	}
	p.write(string(b) + "\n")
}
