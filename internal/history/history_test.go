package history

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_MergesConsecutiveSelections(t *testing.T) {
	h := New()
	for _, f := range []string{"a", "a", "b", "a", "a", "a", "c"} {
		h.Record(f)
	}

	want := []Entry{{"a", 2}, {"b", 1}, {"a", 3}, {"c", 1}}
	if diff := cmp.Diff(want, h.Entries()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 7, h.Selections())
	assert.Equal(t, 5, h.Occurrences("a"))
}

func TestAppend_NeverCreatesAdjacentDuplicates(t *testing.T) {
	h := New()
	h.Append("x")
	h.Append("x")
	h.Append("y")
	h.Increment()
	h.Append("y")

	entries := h.Entries()
	require.Len(t, entries, 2)
	for i := 1; i < len(entries); i++ {
		assert.NotEqual(t, entries[i-1].Fact, entries[i].Fact)
	}
	assert.Equal(t, Entry{"y", 3}, entries[1])
}

func TestIncrement_EmptyHistory(t *testing.T) {
	h := New()
	h.Increment()
	assert.Equal(t, 0, h.Len())
	_, ok := h.Last()
	assert.False(t, ok)
}

func TestEntries_ReturnsCopy(t *testing.T) {
	h := New()
	h.Record("a")
	entries := h.Entries()
	entries[0].Count = 99

	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, 1, last.Count)
}

func TestTop(t *testing.T) {
	h := New()
	for _, f := range []string{"b", "a", "b", "c", "b", "a"} {
		h.Record(f)
	}

	want := []FactCount{{"b", 3}, {"a", 2}}
	if diff := cmp.Diff(want, h.Top(2)); diff != "" {
		t.Errorf("Top(2) mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, h.Top(10), 3)
}
