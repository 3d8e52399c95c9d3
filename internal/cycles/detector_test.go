package cycles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"satwatch/internal/diagnostic"
	"satwatch/internal/history"
)

func alternating(n int) []history.Entry {
	out := make([]history.Entry, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = e("x", 1)
		} else {
			out[i] = e("y", 1)
		}
	}
	return out
}

func TestThresholds_Severity(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		span int
		want diagnostic.Severity
		ok   bool
	}{
		{4, "", false},
		{10, "", false},
		{11, diagnostic.SeverityInfo, true},
		{100, diagnostic.SeverityInfo, true},
		{101, diagnostic.SeverityWarning, true},
		{1000, diagnostic.SeverityWarning, true},
		{1001, diagnostic.SeverityCritical, true},
	}
	for _, tt := range tests {
		got, ok := th.Severity(tt.span)
		assert.Equal(t, tt.ok, ok, "span %d", tt.span)
		assert.Equal(t, tt.want, got, "span %d", tt.span)
	}
}

func TestDetector_SuppressesWhileCycleRuns(t *testing.T) {
	d := NewDetector(Thresholds{Info: 0, Warning: 100, Critical: 1000})
	full := alternating(12)

	var reportedAt []int
	for n := 1; n <= len(full); n++ {
		if diag := d.Check(full[:n]); diag != nil {
			reportedAt = append(reportedAt, n)
		}
	}

	assert.Equal(t, []int{4, 6, 8, 10, 12}, reportedAt)
	for i := 1; i < len(reportedAt); i++ {
		assert.GreaterOrEqual(t, reportedAt[i], reportedAt[i-1]+2)
	}
}

func TestDetector_SameLengthIsNoop(t *testing.T) {
	d := NewDetector(Thresholds{Info: 0, Warning: 100, Critical: 1000})
	entries := alternating(4)

	require.NotNil(t, d.Check(entries))
	assert.Nil(t, d.Check(entries))
}

func TestDetector_ReportsOnlyAboveThreshold(t *testing.T) {
	d := NewDetector(DefaultThresholds())
	full := alternating(12)

	var got []diagnostic.Diagnostic
	for n := 1; n <= len(full); n++ {
		if diag := d.Check(full[:n]); diag != nil {
			got = append(got, *diag)
		}
	}

	require.Len(t, got, 1)
	assert.Equal(t, diagnostic.SeverityInfo, got[0].Severity)
	assert.Equal(t, Label, got[0].Label)
	assert.Equal(t, "2 entries repeated 6 times: x -> y", got[0].Payload)
	assert.Equal(t, &Cycle{Size: 2, Repeat: 6}, d.LastCycle())
}

func TestDetector_ShortHistory(t *testing.T) {
	d := NewDetector(Thresholds{})
	assert.Nil(t, d.Check(nil))
	assert.Nil(t, d.Check([]history.Entry{e("a", 1)}))
	assert.Nil(t, d.LastCycle())
}

func TestDescribe(t *testing.T) {
	entries := []history.Entry{e("c", 1), e("a", 1), e("b", 2), e("a", 1), e("b", 2)}
	c := Find(entries)
	require.NotNil(t, c)
	assert.Equal(t, "2 entries repeated 2 times: a -> b (2x)", Describe(entries, *c))

	long := make([]history.Entry, 0, 14)
	for r := 0; r < 2; r++ {
		for _, f := range []string{"p", "q", "r", "s", "t", "u", "v"} {
			long = append(long, e(f, 1))
		}
	}
	c = Find(long)
	require.NotNil(t, c)
	assert.Equal(t, "7 entries repeated 2 times: p -> q -> r -> s -> t -> ... 2 more", Describe(long, *c))
}
