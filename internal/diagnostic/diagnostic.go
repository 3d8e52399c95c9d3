// Package diagnostic defines the structured records satwatch emits while
// watching a saturation run. Producers (cycle detector, fact checker, tracker)
// build records; a printer renders them.
package diagnostic

import "fmt"

// Severity tags a diagnostic.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"

	// SeverityInternal marks problems of the watcher itself (malformed input
	// stream, out-of-order events). They never stop processing.
	SeverityInternal Severity = "internal"
)

// Rank orders severities for sorting and filtering. Unknown severities rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	case SeverityInternal:
		return 4
	default:
		return 0
	}
}

// Diagnostic is one finding: a severity, a short label ("Cycle", "HighCounter pattern")
// and a rendered payload.
type Diagnostic struct {
	Severity Severity `json:"severity"`
	Label    string   `json:"label"`
	Payload  string   `json:"payload"`
}

// New builds a diagnostic.
func New(severity Severity, label, payload string) Diagnostic {
	return Diagnostic{Severity: severity, Label: label, Payload: payload}
}

// Internal builds an internal diagnostic from a formatted message.
func Internal(format string, args ...interface{}) Diagnostic {
	return Diagnostic{Severity: SeverityInternal, Label: "Internal", Payload: fmt.Sprintf(format, args...)}
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Label, d.Payload)
}
