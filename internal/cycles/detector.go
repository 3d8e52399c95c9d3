package cycles

import (
	"fmt"
	"strings"

	"satwatch/internal/diagnostic"
	"satwatch/internal/history"
	"satwatch/internal/logging"
)

// Label is the diagnostic label used for cycle reports.
const Label = "Cycle"

// maxUnitsShown bounds the rendered repeating unit.
const maxUnitsShown = 5

// Thresholds map a cycle span (size * repeat) to a severity. A span must be
// strictly greater than a threshold to reach its severity.
type Thresholds struct {
	Info     int `yaml:"info_above" json:"info_above"`
	Warning  int `yaml:"warning_above" json:"warning_above"`
	Critical int `yaml:"critical_above" json:"critical_above"`
}

// DefaultThresholds returns the stock 10 / 100 / 1000 policy.
func DefaultThresholds() Thresholds {
	return Thresholds{Info: 10, Warning: 100, Critical: 1000}
}

// Severity classifies a span. ok is false when the span is not worth reporting.
func (t Thresholds) Severity(span int) (diagnostic.Severity, bool) {
	switch {
	case span > t.Critical:
		return diagnostic.SeverityCritical, true
	case span > t.Warning:
		return diagnostic.SeverityWarning, true
	case span > t.Info:
		return diagnostic.SeverityInfo, true
	default:
		return "", false
	}
}

// Detector runs cycle detection after every history change and suppresses
// re-reporting while a detected cycle is still in its current repeat.
type Detector struct {
	thresholds Thresholds

	lastCycle         *Cycle
	lastCycleEnd      int
	lastHistoryLength int
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(thresholds Thresholds) *Detector {
	return &Detector{thresholds: thresholds}
}

// LastCycle returns the most recently detected cycle, if it is still considered running.
func (d *Detector) LastCycle() *Cycle {
	if d.lastCycle == nil {
		return nil
	}
	c := *d.lastCycle
	return &c
}

// Check inspects the history and returns a diagnostic when a cycle worth
// reporting is found. State is updated even when the cycle is too short to report.
func (d *Detector) Check(entries []history.Entry) *diagnostic.Diagnostic {
	n := len(entries)
	if n == d.lastHistoryLength {
		return nil
	}
	d.lastHistoryLength = n

	if d.lastCycle != nil {
		if n < d.lastCycleEnd {
			return nil
		}
		d.lastCycle = nil
	}

	cycle := Find(entries)
	if cycle == nil {
		return nil
	}
	d.lastCycle = cycle
	d.lastCycleEnd = n + cycle.Size

	severity, ok := d.thresholds.Severity(cycle.Span())
	if !ok {
		logging.CyclesDebug("cycle size=%d repeat=%d below reporting threshold", cycle.Size, cycle.Repeat)
		return nil
	}
	logging.Cycles("cycle size=%d repeat=%d severity=%s at history length %d", cycle.Size, cycle.Repeat, severity, n)

	diag := diagnostic.New(severity, Label, Describe(entries, *cycle))
	return &diag
}

// Describe renders a cycle and its repeating unit, oldest entry first.
func Describe(entries []history.Entry, c Cycle) string {
	unit := entries[len(entries)-c.Size:]
	shown := unit
	if len(shown) > maxUnitsShown {
		shown = shown[:maxUnitsShown]
	}

	parts := make([]string, 0, len(shown)+1)
	for _, e := range shown {
		if e.Count > 1 {
			parts = append(parts, fmt.Sprintf("%s (%dx)", e.Fact, e.Count))
		} else {
			parts = append(parts, e.Fact)
		}
	}
	if len(unit) > len(shown) {
		parts = append(parts, fmt.Sprintf("... %d more", len(unit)-len(shown)))
	}

	return fmt.Sprintf("%d entries repeated %d times: %s", c.Size, c.Repeat, strings.Join(parts, " -> "))
}
