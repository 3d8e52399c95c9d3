// Package history keeps the run-length encoded sequence of facts selected by
// the prover, one entry per run of identical consecutive selections.
package history

import "sort"

// Entry is one run of identical selections.
type Entry struct {
	Fact  string `json:"fact"`
	Count int    `json:"count"`
}

// History is the compressed selected-fact history.
// Invariant: no two adjacent entries have the same Fact.
type History struct {
	entries     []Entry
	occurrences map[string]int
}

// New returns an empty history.
func New() *History {
	return &History{occurrences: make(map[string]int)}
}

// Record registers one selection of fact, merging it into the last entry
// when the fact repeats.
func (h *History) Record(fact string) {
	if n := len(h.entries); n > 0 && h.entries[n-1].Fact == fact {
		h.Increment()
		return
	}
	h.Append(fact)
}

// Append starts a new run for fact. If fact equals the last entry's fact the
// selection is merged instead, so the invariant always holds.
func (h *History) Append(fact string) {
	if n := len(h.entries); n > 0 && h.entries[n-1].Fact == fact {
		h.Increment()
		return
	}
	h.entries = append(h.entries, Entry{Fact: fact, Count: 1})
	h.occurrences[fact]++
}

// Increment bumps the count of the last entry. No-op on an empty history.
func (h *History) Increment() {
	n := len(h.entries)
	if n == 0 {
		return
	}
	h.entries[n-1].Count++
	h.occurrences[h.entries[n-1].Fact]++
}

// Len returns the number of entries (runs), not selections.
func (h *History) Len() int {
	return len(h.entries)
}

// Last returns the last entry.
func (h *History) Last() (Entry, bool) {
	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Entries returns a copy of the entries, oldest first.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Selections returns the total number of recorded selections.
func (h *History) Selections() int {
	total := 0
	for _, e := range h.entries {
		total += e.Count
	}
	return total
}

// Occurrences returns how many times fact was selected over the whole run.
func (h *History) Occurrences(fact string) int {
	return h.occurrences[fact]
}

// FactCount pairs a fact with its total selection count.
type FactCount struct {
	Fact  string `json:"fact"`
	Count int    `json:"count"`
}

// Top returns the n most selected facts, ties broken by fact text.
func (h *History) Top(n int) []FactCount {
	all := make([]FactCount, 0, len(h.occurrences))
	for fact, count := range h.occurrences {
		all = append(all, FactCount{Fact: fact, Count: count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Fact < all[j].Fact
	})
	if n >= 0 && n < len(all) {
		all = all[:n]
	}
	return all
}
