package cycles

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"satwatch/internal/history"
)

func e(fact string, count int) history.Entry {
	return history.Entry{Fact: fact, Count: count}
}

func TestFind(t *testing.T) {
	tests := []struct {
		name    string
		entries []history.Entry
		want    *Cycle
	}{
		{"empty", nil, nil},
		{"single entry", []history.Entry{e("a", 1)}, nil},
		{"no repeat", []history.Entry{e("a", 1), e("a", 2), e("b", 1)}, nil},
		{"size one", []history.Entry{e("b", 2), e("a", 1), e("a", 1)}, &Cycle{Size: 1, Repeat: 2}},
		{"size two, odd tail", []history.Entry{e("a", 1), e("a", 2), e("a", 1), e("a", 2), e("a", 1)}, &Cycle{Size: 2, Repeat: 2}},
		{"size two, three repeats", []history.Entry{e("a", 1), e("a", 2), e("a", 1), e("a", 2), e("a", 1), e("a", 2)}, &Cycle{Size: 2, Repeat: 3}},
		{"count breaks match", []history.Entry{e("a", 1), e("b", 1), e("a", 2), e("b", 1)}, nil},
		{"less than two copies", []history.Entry{e("a", 1), e("b", 1), e("a", 1)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Find(tt.entries))
		})
	}
}

func TestSmallestPeriod_PrefersShortest(t *testing.T) {
	// Both 2 and 4 verify; 2 must win.
	entries := []history.Entry{e("x", 1), e("y", 1), e("x", 1), e("y", 1), e("x", 1), e("y", 1)}
	period, ok := SmallestPeriod(entries)
	require.True(t, ok)
	assert.Equal(t, 2, period)
}

func TestRepeatCount_Bounds(t *testing.T) {
	entries := []history.Entry{e("a", 1), e("b", 1)}
	assert.Equal(t, 0, RepeatCount(entries, 0))
	assert.Equal(t, 0, RepeatCount(entries, 3))
	assert.Equal(t, 1, RepeatCount(entries, 2))
}

func TestFind_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	facts := []string{"a", "b", "c"}

	for round := 0; round < 500; round++ {
		n := rng.Intn(12)
		entries := make([]history.Entry, n)
		for i := range entries {
			entries[i] = e(facts[rng.Intn(len(facts))], 1+rng.Intn(2))
		}

		c := Find(entries)
		if c == nil {
			for p := 1; p < n; p++ {
				assert.False(t, tailPeriodic(entries, p), "missed period %d in %v", p, entries)
			}
			continue
		}

		require.LessOrEqual(t, c.Span(), n, "span exceeds history: %v", entries)
		assert.GreaterOrEqual(t, c.Repeat, 2)
		assert.True(t, tailPeriodic(entries, c.Size), "unverified period %d in %v", c.Size, entries)
		for p := 1; p < c.Size; p++ {
			assert.False(t, tailPeriodic(entries, p), "period %d smaller than %d in %v", p, c.Size, entries)
		}

		// Maximal: one more period in front would not match.
		if start := n - c.Span(); start >= c.Size {
			matches := true
			for i := 0; i < c.Size; i++ {
				if entries[start-c.Size+i] != entries[start+i] {
					matches = false
					break
				}
			}
			assert.False(t, matches, "repeat %d not maximal in %v", c.Repeat, entries)
		}
	}
}

// tailPeriodic reports whether the last p entries equal the p entries before them.
func tailPeriodic(entries []history.Entry, p int) bool {
	n := len(entries)
	if p < 1 || 2*p > n {
		return false
	}
	for k := 0; k < p; k++ {
		i := n - 1 - k
		if entries[i-p] != entries[i] {
			return false
		}
	}
	return true
}
