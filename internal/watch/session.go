// Package watch drives a saturation trace through the decoder and tracker,
// consults the cycle detector and fact checker after every completed
// iteration, and reports to a printer sink.
package watch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"satwatch/internal/ancestry"
	"satwatch/internal/checker"
	"satwatch/internal/cycles"
	"satwatch/internal/decoder"
	"satwatch/internal/diagnostic"
	"satwatch/internal/history"
	"satwatch/internal/logging"
	"satwatch/internal/metrics"
	"satwatch/internal/printer"
	"satwatch/internal/saturation"
)

// maxLineSize bounds a single trace line; derivations can be very long.
const maxLineSize = 16 * 1024 * 1024

// NoExplain disables the explain-on-completion hook.
const NoExplain = -1

// Options select what a session computes and prints.
type Options struct {
	Cycles        bool
	Thresholds    cycles.Thresholds
	SelectedFacts bool
	QueueState    bool
	Report        bool
	TopFacts      int
	Explain       int // iteration to explain once completed, NoExplain for none

	Checker *checker.Checker // nil disables pattern checks
	Metrics *metrics.Metrics
}

// Session holds all state of one watched run. It is driven by a single
// goroutine.
type Session struct {
	opts     Options
	sink     printer.Sink
	decoder  *decoder.Decoder
	tracker  *saturation.Tracker
	detector *cycles.Detector
	metrics  *metrics.Metrics

	shown      history.Entry // last selected-fact line printed
	shownIndex int
	incomplete int
	counts     map[diagnostic.Severity]int
}

// New creates a session reporting to sink.
func New(opts Options, sink printer.Sink) *Session {
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	if opts.Thresholds == (cycles.Thresholds{}) {
		opts.Thresholds = cycles.DefaultThresholds()
	}
	return &Session{
		opts:       opts,
		sink:       sink,
		decoder:    decoder.New(),
		tracker:    saturation.NewTracker(),
		detector:   cycles.NewDetector(opts.Thresholds),
		metrics:    m,
		shownIndex: -1,
		counts:     make(map[diagnostic.Severity]int),
	}
}

// Tracker exposes the iteration tracker, e.g. for explain after the run.
func (s *Session) Tracker() *saturation.Tracker {
	return s.tracker
}

// Run consumes r line by line until EOF or ctx is cancelled, completes the
// last pending turn and returns the run report.
func (s *Session) Run(ctx context.Context, r io.Reader) (*Report, error) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), maxLineSize)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
		readErr <- sc.Err()
	}()

	count := 0
	for {
		select {
		case <-ctx.Done():
			logging.Watch("cancelled after %d lines", count)
			return s.finish(), ctx.Err()
		case line, ok := <-lines:
			if !ok {
				err := <-readErr
				logging.Watch("input ended after %d lines", count)
				report := s.finish()
				if err != nil && !errors.Is(err, context.Canceled) {
					return report, fmt.Errorf("failed to read trace: %w", err)
				}
				return report, err
			}
			count++
			s.HandleLine(line)
		}
	}
}

// HandleLine decodes one line and applies its events.
func (s *Session) HandleLine(line string) {
	for _, ev := range s.decoder.Decode(line) {
		s.apply(ev)
	}
}

func (s *Session) apply(ev decoder.Event) {
	switch e := ev.(type) {
	case decoder.HypothesisSelected:
		s.completePending()
		s.tracker.SetHypothesisSelected(e.Fact, e.FactNumber)
	case decoder.ConclusionSelected:
		s.completePending()
		s.tracker.SetConclusionSelected(e.Fact)
	case decoder.Query:
		s.tracker.SetQuery(e.Rule)
	case decoder.QueueEntry:
		s.tracker.SetQueueEntry(e.Index, e.Rule)
	case decoder.QueueStatus:
		s.tracker.SetProgress(e.Inserted, e.BaseCount, e.ConclusionSelectedCount, e.QueueCount)
		if s.opts.QueueState {
			if p, ok := s.tracker.PendingProgress(); ok {
				s.sink.PrintTransient(printer.TagQueue, fmt.Sprintf("queue: %d rules (%d with conclusion selected, %d with hypothesis selected, %d inserted)",
					p.InQueue, p.WithConclusionSelected, p.WithHypothesisSelected, p.Inserted))
			}
		}
	}
}

// completePending flushes the pending turn, if there is one.
func (s *Session) completePending() {
	if !s.tracker.HasPending() {
		return
	}
	summary, err := s.tracker.CompleteIteration()
	if err != nil {
		s.incomplete++
		s.metrics.IncompleteIteration()
		d := diagnostic.Internal("cannot complete iteration %d: %v", len(s.tracker.Iterations()), err)
		s.counts[d.Severity]++
		s.metrics.ObserveDiagnostic(d)
		s.sink.Emit(d)
		return
	}
	s.afterIteration(summary)
}

func (s *Session) afterIteration(summary *diagnostic.IterationSummary) {
	it, _ := s.tracker.Last()
	role, _, _ := it.Selection()

	if it.HypothesisFactSelected != nil {
		if s.opts.Checker != nil {
			summary.Add(s.opts.Checker.Check(it.HypothesisFactSelected.Fact)...)
		}
		s.printSelected()
	}

	if s.opts.Cycles {
		if d := s.detector.Check(s.tracker.History().Entries()); d != nil {
			summary.Add(*d)
		}
		span := 0
		if c := s.detector.LastCycle(); c != nil {
			span = c.Span()
		}
		s.metrics.SetCycleSpan(span)
	}

	for _, d := range summary.Diagnostics() {
		s.counts[d.Severity]++
		s.metrics.ObserveDiagnostic(d)
	}
	s.metrics.ObserveIteration(role, it.Progress.InQueue)
	s.metrics.SetHistoryEntries(s.tracker.History().Len())

	s.sink.EmitSummary(summary)

	if s.opts.Explain != NoExplain && it.Progress.Iteration == s.opts.Explain {
		s.explain(it.Progress.Iteration)
	}
}

// printSelected shows the running selection count for the current history
// entry. When the entry changes, the final count of the previous one is
// printed persistently first.
func (s *Session) printSelected() {
	if !s.opts.SelectedFacts {
		return
	}
	h := s.tracker.History()
	last, ok := h.Last()
	if !ok {
		return
	}
	index := h.Len() - 1
	if s.shownIndex >= 0 && s.shownIndex != index {
		s.sink.PrintPersistent(selectedLine(s.shown))
	}
	s.shown, s.shownIndex = last, index
	s.sink.PrintTransient(printer.TagSelected, selectedLine(last))
}

func selectedLine(e history.Entry) string {
	if e.Count > 1 {
		return fmt.Sprintf("Selected (%dx): %s", e.Count, e.Fact)
	}
	return fmt.Sprintf("Selected: %s", e.Fact)
}

func (s *Session) explain(index int) {
	exp, err := ancestry.Explain(s.tracker.Iterations(), index)
	if err != nil {
		s.sink.Emit(diagnostic.Internal("explain %d: %v", index, err))
		return
	}
	s.metrics.ObserveAncestry(len(exp.Links))
	s.sink.PrintBlock("explanation", exp.RenderASCII(), exp)
}

func (s *Session) finish() *Report {
	s.completePending()
	if s.opts.SelectedFacts && s.shownIndex >= 0 {
		s.sink.PrintPersistent(selectedLine(s.shown))
	}

	report := s.report()
	if s.opts.Report {
		s.sink.PrintBlock("report", report.Render(), report)
	}
	return report
}
