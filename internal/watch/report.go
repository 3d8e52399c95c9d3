package watch

import (
	"fmt"
	"strings"

	"satwatch/internal/cycles"
	"satwatch/internal/diagnostic"
	"satwatch/internal/history"
)

// Report summarizes a finished run.
type Report struct {
	Iterations     int                         `json:"iterations"`
	Selections     int                         `json:"selections"`
	HistoryEntries int                         `json:"history_entries"`
	Incomplete     int                         `json:"incomplete"`
	Diagnostics    map[diagnostic.Severity]int `json:"diagnostics"`
	TopFacts       []history.FactCount         `json:"top_facts"`
	LastCycle      *cycles.Cycle               `json:"last_cycle,omitempty"`
}

func (s *Session) report() *Report {
	h := s.tracker.History()
	counts := make(map[diagnostic.Severity]int, len(s.counts))
	for k, v := range s.counts {
		counts[k] = v
	}
	top := s.opts.TopFacts
	if top == 0 {
		top = 10
	}
	return &Report{
		Iterations:     len(s.tracker.Iterations()),
		Selections:     h.Selections(),
		HistoryEntries: h.Len(),
		Incomplete:     s.incomplete,
		Diagnostics:    counts,
		TopFacts:       h.Top(top),
		LastCycle:      s.detector.LastCycle(),
	}
}

// Render formats the report as text.
func (r *Report) Render() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("iterations: %d, hypothesis selections: %d in %d history entries\n",
		r.Iterations, r.Selections, r.HistoryEntries))
	sb.WriteString(fmt.Sprintf("diagnostics: %d critical, %d warning, %d info, %d internal\n",
		r.Diagnostics[diagnostic.SeverityCritical], r.Diagnostics[diagnostic.SeverityWarning],
		r.Diagnostics[diagnostic.SeverityInfo], r.Diagnostics[diagnostic.SeverityInternal]))
	if r.LastCycle != nil {
		sb.WriteString(fmt.Sprintf("running cycle: %d entries x %d\n", r.LastCycle.Size, r.LastCycle.Repeat))
	}
	if len(r.TopFacts) > 0 {
		sb.WriteString("most selected facts:\n")
		for _, fc := range r.TopFacts {
			sb.WriteString(fmt.Sprintf("  %6d  %s\n", fc.Count, fc.Fact))
		}
	}
	return sb.String()
}
