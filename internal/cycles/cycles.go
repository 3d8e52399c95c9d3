// Package cycles detects repeating behaviour at the tail of a selected-fact
// history: the smallest period that repeats up to the newest entry, and how
// many times it repeats.
//
// Entries are compared as whole (fact, count) pairs, so a cycle is only found
// when both the selected fact and its run length match across periods.
package cycles

import (
	"satwatch/internal/history"
)

// Cycle is a repeating unit found at the tail of a history.
type Cycle struct {
	Size   int `json:"size"`   // entries in the minimal repeating unit
	Repeat int `json:"repeat"` // consecutive copies ending at the tail
}

// Span is the number of history entries covered by the cycle.
func (c Cycle) Span() int {
	return c.Size * c.Repeat
}

// Find returns the cycle at the tail of entries, or nil when there is none.
// Histories shorter than two entries never contain a cycle.
func Find(entries []history.Entry) *Cycle {
	period, ok := SmallestPeriod(entries)
	if !ok {
		return nil
	}
	return &Cycle{Size: period, Repeat: RepeatCount(entries, period)}
}

// SmallestPeriod scans candidates from the entry just before the tail
// backwards. A candidate equal to the tail fixes a period; the period is
// accepted when the block between candidate and tail matches the block one
// period earlier. The first accepted period is the smallest one. A period is
// only accepted when at least two full copies fit in the history.
func SmallestPeriod(entries []history.Entry) (int, bool) {
	n := len(entries)
	if n < 2 {
		return 0, false
	}
	head := n - 1

	for candidate := head - 1; candidate >= 0; candidate-- {
		if entries[candidate] != entries[head] {
			continue
		}
		period := head - candidate

		check := head - 1
		for check > candidate && check >= period {
			if entries[check-period] != entries[check] {
				break
			}
			check--
		}
		if check == candidate {
			return period, true
		}
	}
	return 0, false
}

// RepeatCount returns how many whole copies of the last period-sized unit
// appear consecutively at the tail. The result is maximal: one more period
// before the matched stretch would not match.
func RepeatCount(entries []history.Entry, period int) int {
	n := len(entries)
	if period <= 0 || n < period {
		return 0
	}

	matched := period
	for i := n - 1; i-period >= 0; i-- {
		if entries[i-period] != entries[i] {
			break
		}
		matched++
	}
	return matched / period
}
