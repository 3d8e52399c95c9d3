package saturation

import (
	"errors"
	"fmt"
	"sort"

	"satwatch/internal/diagnostic"
	"satwatch/internal/history"
	"satwatch/internal/logging"
)

// ErrIncompleteIteration is returned when a turn is flushed before its
// progress or query was seen. Pending state is kept for a retry.
var ErrIncompleteIteration = errors.New("iteration incomplete: progress or query not set")

// Tracker accumulates decoded events into Iterations and maintains the
// selected-fact history. It is not safe for concurrent use.
type Tracker struct {
	progress   *Progress
	query      *string
	hypothesis *SelectedFact
	conclusion *SelectedFact
	queue      map[int]string

	previousQueue []string
	iterations    []Iteration
	history       *history.History
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		queue:   make(map[int]string),
		history: history.New(),
	}
}

// SetQuery records the rule the pending turn works on.
func (t *Tracker) SetQuery(rule string) {
	t.query = &rule
}

// SetQueueEntry records one line of the queue listing. A later entry with
// the same index overwrites the earlier one.
func (t *Tracker) SetQueueEntry(index int, rule string) {
	t.queue[index] = rule
}

// SetHypothesisSelected records a hypothesis selection for the pending turn.
func (t *Tracker) SetHypothesisSelected(fact string, number int) {
	t.hypothesis = &SelectedFact{Fact: fact, FactNumber: &number}
}

// SetConclusionSelected records a conclusion selection for the pending turn.
func (t *Tracker) SetConclusionSelected(fact string) {
	t.conclusion = &SelectedFact{Fact: fact}
}

// SetProgress records the queue-progress counters of the pending turn.
// The number of rules with a selected hypothesis is base minus those with a
// selected conclusion, floored at zero.
func (t *Tracker) SetProgress(inserted, base, conclusionSelected, queue int) {
	withHypothesis := base - conclusionSelected
	if withHypothesis < 0 {
		withHypothesis = 0
	}
	t.progress = &Progress{
		Iteration:              len(t.iterations),
		Inserted:               inserted,
		WithConclusionSelected: conclusionSelected,
		WithHypothesisSelected: withHypothesis,
		InQueue:                queue,
	}
}

// HasPending reports whether any event was recorded since the last flush.
func (t *Tracker) HasPending() bool {
	return t.progress != nil || t.query != nil || t.hypothesis != nil ||
		t.conclusion != nil || len(t.queue) > 0
}

// PendingProgress returns the progress seen so far in the pending turn.
func (t *Tracker) PendingProgress() (Progress, bool) {
	if t.progress == nil {
		return Progress{}, false
	}
	return *t.progress, true
}

// CompleteIteration flushes the pending turn into a new Iteration and returns
// its summary. Returns ErrIncompleteIteration, leaving pending state as is,
// when progress or query is missing.
func (t *Tracker) CompleteIteration() (*diagnostic.IterationSummary, error) {
	if t.progress == nil || t.query == nil {
		logging.TrackerDebug("flush refused: progress=%t query=%t", t.progress != nil, t.query != nil)
		return nil, ErrIncompleteIteration
	}

	snapshot := t.queueSnapshot()
	it := Iteration{
		Progress:               *t.progress,
		Query:                  *t.query,
		HypothesisFactSelected: t.hypothesis,
		ConclusionFactSelected: t.conclusion,
		NewQueueEntries:        NewEntries(t.previousQueue, snapshot),
	}
	it.Progress.Iteration = len(t.iterations)

	var previous *Iteration
	if n := len(t.iterations); n > 0 {
		previous = &t.iterations[n-1]
	}
	t.iterations = append(t.iterations, it)
	if it.HypothesisFactSelected != nil {
		t.history.Record(it.HypothesisFactSelected.Fact)
	}

	t.previousQueue = snapshot
	t.clearPending()

	logging.TrackerDebug("iteration %d: query=%q new_entries=%d", it.Progress.Iteration, it.Query, len(it.NewQueueEntries))

	return diagnostic.NewIterationSummary(it.Progress.Iteration, summaryTitle(it, previous), it.Progress.String()), nil
}

func (t *Tracker) queueSnapshot() []string {
	indexes := make([]int, 0, len(t.queue))
	for i := range t.queue {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	snapshot := make([]string, 0, len(indexes))
	for _, i := range indexes {
		snapshot = append(snapshot, t.queue[i])
	}
	return snapshot
}

func (t *Tracker) clearPending() {
	t.progress = nil
	t.query = nil
	t.hypothesis = nil
	t.conclusion = nil
	t.queue = make(map[int]string)
}

// Iterations returns the completed iterations, oldest first.
// The slice must not be modified.
func (t *Tracker) Iterations() []Iteration {
	return t.iterations
}

// Last returns the most recently completed iteration.
func (t *Tracker) Last() (Iteration, bool) {
	if len(t.iterations) == 0 {
		return Iteration{}, false
	}
	return t.iterations[len(t.iterations)-1], true
}

// History returns the selected-fact history fed by completed iterations.
func (t *Tracker) History() *history.History {
	return t.history
}

func summaryTitle(it Iteration, previous *Iteration) string {
	role, fact, ok := it.Selection()
	if !ok {
		return "no fact selected"
	}

	again := false
	if previous != nil {
		switch role {
		case RoleHypothesis:
			again = previous.HypothesisFactSelected != nil && previous.HypothesisFactSelected.Fact == fact
		case RoleConclusion:
			again = previous.ConclusionFactSelected != nil && previous.ConclusionFactSelected.Fact == fact
		}
	}

	title := fmt.Sprintf("%s fact selected: %s", role, fact)
	if again {
		title += " (again)"
	}
	return title
}
