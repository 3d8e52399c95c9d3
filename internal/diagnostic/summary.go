package diagnostic

// IterationSummary collects everything reported about one completed iteration:
// a title line, the diagnostics raised for it, and the total progress line.
type IterationSummary struct {
	Iteration int
	Title     string
	Total     string

	diagnostics []Diagnostic
}

// NewIterationSummary creates a summary with no diagnostics yet.
func NewIterationSummary(iteration int, title, total string) *IterationSummary {
	return &IterationSummary{Iteration: iteration, Title: title, Total: total}
}

// Add appends diagnostics to the summary.
func (s *IterationSummary) Add(diags ...Diagnostic) {
	s.diagnostics = append(s.diagnostics, diags...)
}

// Diagnostics returns the collected diagnostics grouped by severity,
// info first, insertion order kept within a severity.
func (s *IterationSummary) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, 0, len(s.diagnostics))
	for _, sev := range []Severity{SeverityInfo, SeverityWarning, SeverityCritical, SeverityInternal} {
		for _, d := range s.diagnostics {
			if d.Severity == sev {
				out = append(out, d)
			}
		}
	}
	return out
}

// HasDiagnostics reports whether anything was added.
func (s *IterationSummary) HasDiagnostics() bool {
	return len(s.diagnostics) > 0
}

// Count returns the number of diagnostics with the given severity.
func (s *IterationSummary) Count(sev Severity) int {
	n := 0
	for _, d := range s.diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}
