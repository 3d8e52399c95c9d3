// Package decoder classifies raw lines of a verbose saturation trace into
// typed events. Unrecognized lines decode to nil.
package decoder

import (
	"regexp"
	"strconv"
	"strings"

	"satwatch/internal/logging"
)

// Event is one decoded line.
type Event interface {
	isEvent()
}

// QueueStatus is the per-iteration queue progress line.
type QueueStatus struct {
	Inserted                int
	BaseCount               int
	ConclusionSelectedCount int
	QueueCount              int
}

// HypothesisSelected announces a rule whose hypothesis fact was selected.
type HypothesisSelected struct {
	FactNumber int
	Fact       string
}

// ConclusionSelected announces a rule whose conclusion was selected.
type ConclusionSelected struct {
	Fact string
}

// QueueEntry is one line of the queue listing.
type QueueEntry struct {
	Index int
	Rule  string
}

// Query is the rule being worked on in the current turn.
type Query struct {
	Rule string
}

func (QueueStatus) isEvent()        {}
func (HypothesisSelected) isEvent() {}
func (ConclusionSelected) isEvent() {}
func (QueueEntry) isEvent()         {}
func (Query) isEvent()              {}

// Section is the listing context the decoder is in.
type Section int

const (
	SectionNone Section = iota
	SectionHypothesis
	SectionConclusion
	SectionQueue
)

func (s Section) String() string {
	switch s {
	case SectionHypothesis:
		return "hypothesis"
	case SectionConclusion:
		return "conclusion"
	case SectionQueue:
		return "queue"
	default:
		return "none"
	}
}

var (
	hypothesisMatch = regexp.MustCompile(`Rule with hypothesis fact (\d+) selected: (.+)`)
	conclusionMatch = regexp.MustCompile(`Rule with conclusion selected:\s*(.*)`)
	queueMatch      = regexp.MustCompile(`(\d+) rules inserted\. Base: (\d+) rules \((\d+) with conclusion selected\)\. Queue: (\d+) rules\.`)
	queueHeader     = regexp.MustCompile(`^\s*Queue( contents)?:\s*$`)
	entryMatch      = regexp.MustCompile(`^\s*(\d+)\s+--\s+(.+?)\s*$`)
)

// Decoder turns lines into events. It remembers which section it is in so
// that indexed listing lines can be told apart. Not safe for concurrent use.
type Decoder struct {
	section Section

	// set after a bare "Rule with conclusion selected:" header; the next
	// non-empty line carries the derivation
	awaitingDerivation bool
}

// New returns a decoder positioned outside any section.
func New() *Decoder {
	return &Decoder{}
}

// Decode classifies one line. It returns nil for lines it does not recognize
// and may return more than one event for a derivation line.
func (d *Decoder) Decode(line string) []Event {
	line = strings.TrimRight(line, "\r\n")

	if m := queueMatch.FindStringSubmatch(line); m != nil {
		return []Event{QueueStatus{
			Inserted:                atoi(m[1]),
			BaseCount:               atoi(m[2]),
			ConclusionSelectedCount: atoi(m[3]),
			QueueCount:              atoi(m[4]),
		}}
	}

	if m := hypothesisMatch.FindStringSubmatch(line); m != nil {
		d.section = SectionHypothesis
		d.awaitingDerivation = false
		return []Event{HypothesisSelected{FactNumber: atoi(m[1]), Fact: strings.TrimSpace(m[2])}}
	}

	if m := conclusionMatch.FindStringSubmatch(line); m != nil {
		d.section = SectionConclusion
		rest := strings.TrimSpace(m[1])
		if rest == "" {
			d.awaitingDerivation = true
			return nil
		}
		d.awaitingDerivation = false
		return []Event{ConclusionSelected{Fact: rest}}
	}

	if queueHeader.MatchString(line) {
		d.section = SectionQueue
		d.awaitingDerivation = false
		return nil
	}

	if m := entryMatch.FindStringSubmatch(line); m != nil {
		index, rule := atoi(m[1]), m[2]
		switch d.section {
		case SectionQueue:
			return []Event{QueueEntry{Index: index, Rule: rule}}
		case SectionHypothesis, SectionConclusion:
			if d.awaitingDerivation {
				d.awaitingDerivation = false
				return []Event{ConclusionSelected{Fact: Conclusion(rule)}, Query{Rule: rule}}
			}
			return []Event{Query{Rule: rule}}
		}
		return nil
	}

	if d.awaitingDerivation && strings.TrimSpace(line) != "" {
		d.awaitingDerivation = false
		rule := strings.TrimSpace(line)
		return []Event{ConclusionSelected{Fact: Conclusion(rule)}, Query{Rule: rule}}
	}

	logging.Decoder("ignored line: %q", line)
	return nil
}

// Conclusion returns the text after the last "->" of a derivation, or the
// whole derivation when it has no arrow.
func Conclusion(rule string) string {
	if i := strings.LastIndex(rule, "->"); i >= 0 {
		return strings.TrimSpace(rule[i+2:])
	}
	return strings.TrimSpace(rule)
}

// atoi parses a counter, defaulting to zero.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
