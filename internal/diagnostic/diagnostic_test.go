package diagnostic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterationSummary_GroupsBySeverity(t *testing.T) {
	s := NewIterationSummary(3, "hypothesis fact selected: a", "3 (0c, 1h, 2q)")
	s.Add(
		New(SeverityWarning, "HighCounter pattern", "w1"),
		New(SeverityInfo, "Cycle", "i1"),
		New(SeverityCritical, "Cycle", "c1"),
		New(SeverityWarning, "HighCounter pattern", "w2"),
	)

	got := s.Diagnostics()
	payloads := make([]string, len(got))
	for i, d := range got {
		payloads[i] = d.Payload
	}
	assert.Equal(t, []string{"i1", "w1", "w2", "c1"}, payloads)
	assert.Equal(t, 2, s.Count(SeverityWarning))
	assert.True(t, s.HasDiagnostics())
}

func TestSeverityRank(t *testing.T) {
	assert.Less(t, SeverityInfo.Rank(), SeverityWarning.Rank())
	assert.Less(t, SeverityWarning.Rank(), SeverityCritical.Rank())
	assert.Equal(t, 0, Severity("bogus").Rank())
}

func TestInternal(t *testing.T) {
	d := Internal("cannot complete iteration %d", 7)
	assert.Equal(t, SeverityInternal, d.Severity)
	assert.Equal(t, "[internal] Internal: cannot complete iteration 7", d.String())
}
