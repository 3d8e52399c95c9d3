package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"satwatch/internal/ancestry"
	"satwatch/internal/checker"
	"satwatch/internal/cycles"
	"satwatch/internal/diagnostic"
	"satwatch/internal/history"
)

type recordingSink struct {
	transient  []string
	persistent []string
	emitted    []diagnostic.Diagnostic
	summaries  []*diagnostic.IterationSummary
	blocks     map[string]any
}

func newRecordingSink() *recordingSink {
	return &recordingSink{blocks: make(map[string]any)}
}

func (r *recordingSink) PrintTransient(tag, line string) { r.transient = append(r.transient, line) }
func (r *recordingSink) PrintPersistent(line string)     { r.persistent = append(r.persistent, line) }
func (r *recordingSink) Emit(d diagnostic.Diagnostic)    { r.emitted = append(r.emitted, d) }
func (r *recordingSink) EmitSummary(s *diagnostic.IterationSummary) {
	r.summaries = append(r.summaries, s)
}
func (r *recordingSink) PrintBlock(kind, text string, value any) { r.blocks[kind] = value }

func (r *recordingSink) diagnostics() []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, s := range r.summaries {
		out = append(out, s.Diagnostics()...)
	}
	return out
}

// turn renders one iteration of a trace: selection, derivation, progress and
// queue listing.
func turn(fact string, queue ...string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Rule with hypothesis fact 0 selected: %s\n", fact))
	sb.WriteString(fmt.Sprintf("0 -- %s -> next(%s)\n", fact, fact))
	sb.WriteString(fmt.Sprintf("1 rules inserted. Base: 10 rules (4 with conclusion selected). Queue: %d rules.\n", len(queue)))
	sb.WriteString("Queue:\n")
	for i, q := range queue {
		sb.WriteString(fmt.Sprintf("%d -- %s\n", i, q))
	}
	return sb.String()
}

func TestRun_BasicTrace(t *testing.T) {
	defer goleak.VerifyNone(t)

	trace := turn("a", "r1") + turn("a", "r1", "r2") + turn("b") + "garbage line\n"
	sink := newRecordingSink()
	s := New(Options{Explain: NoExplain, Report: true}, sink)

	report, err := s.Run(context.Background(), strings.NewReader(trace))
	require.NoError(t, err)

	assert.Equal(t, 3, report.Iterations)
	assert.Equal(t, 3, report.Selections)
	assert.Equal(t, 2, report.HistoryEntries)
	assert.Equal(t, []history.FactCount{{Fact: "a", Count: 2}, {Fact: "b", Count: 1}}, report.TopFacts)

	require.Len(t, sink.summaries, 3)
	assert.Equal(t, "hypothesis fact selected: a", sink.summaries[0].Title)
	assert.Equal(t, "hypothesis fact selected: a (again)", sink.summaries[1].Title)
	assert.Equal(t, "1 (4c, 6h, 2q)", sink.summaries[1].Total)
	assert.Empty(t, sink.emitted)
	assert.Contains(t, sink.blocks, "report")

	its := s.Tracker().Iterations()
	assert.Equal(t, []string{"r1"}, its[0].NewQueueEntries)
	assert.Equal(t, []string{"r2"}, its[1].NewQueueEntries)
	assert.Equal(t, []string{}, its[2].NewQueueEntries)
}

func TestRun_ReportsCycle(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		sb.WriteString(turn("a"))
		sb.WriteString(turn("b"))
	}

	sink := newRecordingSink()
	s := New(Options{Cycles: true, Thresholds: cycles.DefaultThresholds(), Explain: NoExplain}, sink)
	report, err := s.Run(context.Background(), strings.NewReader(sb.String()))
	require.NoError(t, err)

	diags := sink.diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, diagnostic.SeverityInfo, diags[0].Severity)
	assert.Equal(t, cycles.Label, diags[0].Label)
	assert.Equal(t, "2 entries repeated 6 times: a -> b", diags[0].Payload)
	assert.Equal(t, 1, report.Diagnostics[diagnostic.SeverityInfo])
	require.NotNil(t, report.LastCycle)
	assert.Equal(t, cycles.Cycle{Size: 2, Repeat: 6}, *report.LastCycle)
}

func TestRun_PatternWarnings(t *testing.T) {
	c, err := checker.New(checker.DefaultGroups())
	require.NoError(t, err)

	sink := newRecordingSink()
	s := New(Options{Checker: c, Explain: NoExplain}, sink)
	_, err = s.Run(context.Background(), strings.NewReader(turn("attacker(mess2(c[],12,x))")+turn("attacker(k[])")))
	require.NoError(t, err)

	require.Len(t, sink.summaries, 2)
	require.Len(t, sink.summaries[0].Diagnostics(), 1)
	assert.Equal(t, "HighCounter pattern", sink.summaries[0].Diagnostics()[0].Label)
	assert.Empty(t, sink.summaries[1].Diagnostics())
}

func TestRun_IncompleteIterationIsInternal(t *testing.T) {
	trace := "Rule with hypothesis fact 1 selected: a\n" + turn("b")
	sink := newRecordingSink()
	s := New(Options{Explain: NoExplain}, sink)

	report, err := s.Run(context.Background(), strings.NewReader(trace))
	require.NoError(t, err)

	require.Len(t, sink.emitted, 1)
	assert.Equal(t, diagnostic.SeverityInternal, sink.emitted[0].Severity)
	assert.Equal(t, 1, report.Incomplete)
	// the refused turn is merged into the next one
	assert.Equal(t, 1, report.Iterations)
}

func TestRun_SelectedFacts(t *testing.T) {
	sink := newRecordingSink()
	s := New(Options{SelectedFacts: true, Explain: NoExplain}, sink)
	_, err := s.Run(context.Background(), strings.NewReader(turn("a")+turn("a")+turn("b")))
	require.NoError(t, err)

	assert.Equal(t, []string{"Selected: a", "Selected (2x): a", "Selected: b"}, sink.transient)
	assert.Equal(t, []string{"Selected (2x): a", "Selected: b"}, sink.persistent)
}

func TestRun_ExplainOnCompletion(t *testing.T) {
	trace := turn("a", "x", "y") + turn("b", "y", "z") + turn("c", "z")
	sink := newRecordingSink()
	s := New(Options{Explain: 2}, sink)

	_, err := s.Run(context.Background(), strings.NewReader(trace))
	require.NoError(t, err)

	exp, ok := sink.blocks["explanation"].(*ancestry.Explanation)
	require.True(t, ok)
	assert.Equal(t, 2, exp.Target)
	assert.Equal(t, 2, exp.Links[0].Iteration)
}

func TestRun_Cancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := New(Options{Explain: NoExplain}, newRecordingSink())

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(ctx, pr)
		done <- err
	}()

	_, err := io.WriteString(pw, turn("a"))
	require.NoError(t, err)
	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
