// Package saturation models the progress of a saturation run: decoded events
// accumulate into a pending turn, which is flushed into an immutable Iteration.
package saturation

import "fmt"

// Progress is the queue-progress snapshot reported once per iteration.
type Progress struct {
	Iteration              int `json:"iteration"`
	Inserted               int `json:"inserted"`
	WithConclusionSelected int `json:"with_conclusion_selected"`
	WithHypothesisSelected int `json:"with_hypothesis_selected"`
	InQueue                int `json:"in_queue"`
}

// String renders the progress as "12 (3c, 40h, 7q)".
func (p Progress) String() string {
	return fmt.Sprintf("%d (%dc, %dh, %dq)", p.Iteration, p.WithConclusionSelected, p.WithHypothesisSelected, p.InQueue)
}

// SelectedFact is a fact picked by the prover. Conclusion selections carry no number.
type SelectedFact struct {
	Fact       string `json:"fact"`
	FactNumber *int   `json:"fact_number,omitempty"`
}

// Iteration is one completed selection step. Never mutated after creation.
type Iteration struct {
	Progress               Progress      `json:"progress"`
	Query                  string        `json:"query"`
	HypothesisFactSelected *SelectedFact `json:"hypothesis_fact_selected,omitempty"`
	ConclusionFactSelected *SelectedFact `json:"conclusion_fact_selected,omitempty"`
	NewQueueEntries        []string      `json:"new_queue_entries"`
}

// Selection returns the role ("hypothesis" or "conclusion") and fact selected
// in this iteration. Hypothesis selections take precedence.
func (it Iteration) Selection() (role string, fact string, ok bool) {
	if it.HypothesisFactSelected != nil {
		return RoleHypothesis, it.HypothesisFactSelected.Fact, true
	}
	if it.ConclusionFactSelected != nil {
		return RoleConclusion, it.ConclusionFactSelected.Fact, true
	}
	return "", "", false
}

// Selection roles.
const (
	RoleHypothesis = "hypothesis"
	RoleConclusion = "conclusion"
)

// NewEntries returns the entries of curr that were appended since prev.
//
// The prover's queue only grows at the tail and shrinks at the front, so a
// cursor into curr advances over every element of prev that is still present,
// in order. Whatever lies past the cursor is new. This is not a general
// sequence diff.
func NewEntries(prev, curr []string) []string {
	cursor := 0
	for _, entry := range prev {
		if cursor < len(curr) && curr[cursor] == entry {
			cursor++
		}
	}
	out := make([]string, len(curr)-cursor)
	copy(out, curr[cursor:])
	return out
}
