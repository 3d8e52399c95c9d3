package provenance

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/mangle/parse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"satwatch/internal/ancestry"
	"satwatch/internal/saturation"
)

func iteration(index, inQueue int, query string, added ...string) saturation.Iteration {
	if added == nil {
		added = []string{}
	}
	return saturation.Iteration{
		Progress:        saturation.Progress{Iteration: index, InQueue: inQueue},
		Query:           query,
		NewQueueEntries: added,
	}
}

func run() []saturation.Iteration {
	return []saturation.Iteration{
		iteration(0, 2, "c", "a", "b"),
		iteration(1, 2, "a", "d"),
		iteration(2, 1, "b"),
		iteration(3, 2, "d", "e", "f"),
	}
}

func TestWhy_MatchesQueries(t *testing.T) {
	g, err := Build(run())
	require.NoError(t, err)

	exp, err := g.Why(3)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 0}, exp.Indexes())

	// agrees with the skip-budget reconstruction on this run
	skip, err := ancestry.Explain(run(), 3)
	require.NoError(t, err)
	assert.Equal(t, skip.Indexes(), exp.Indexes())

	exp, err = g.Why(2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0}, exp.Indexes())
}

func TestGraph_Parents(t *testing.T) {
	g, err := Build(run())
	require.NoError(t, err)

	assert.Equal(t, []int{1}, g.Parents(3))
	assert.Equal(t, []int{0}, g.Parents(1))
	assert.Empty(t, g.Parents(0))
}

// chain returns n iterations where each one queues the rule the next selects.
func chain(n int) []saturation.Iteration {
	its := make([]saturation.Iteration, n)
	for i := range its {
		its[i] = iteration(i, 1, fmt.Sprintf("r%d", i), fmt.Sprintf("r%d", i+1))
	}
	return its
}

func TestWhy_LongChain(t *testing.T) {
	const n = 4000
	g, err := Build(chain(n))
	require.NoError(t, err)

	exp, err := g.Why(n - 1)
	require.NoError(t, err)
	require.Len(t, exp.Links, n)
	assert.Equal(t, n-1, exp.Links[0].Iteration)
	assert.Equal(t, 0, exp.Links[n-1].Iteration)
	assert.Equal(t, []int{n - 2}, g.Parents(n-1))
}

func TestWhy_PrefersLatestParent(t *testing.T) {
	its := []saturation.Iteration{
		iteration(0, 1, "root", "x"),
		iteration(1, 2, "y", "x"),
		iteration(2, 1, "x"),
	}
	g, err := Build(its)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 0}, g.Parents(2))
	exp, err := g.Why(2)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1}, exp.Indexes())
}

func TestWhy_OutOfRange(t *testing.T) {
	g, err := Build(run())
	require.NoError(t, err)

	_, err = g.Why(9)
	assert.True(t, errors.Is(err, ancestry.ErrIterationOutOfRange))
}

func TestBuild_Empty(t *testing.T) {
	g, err := Build(nil)
	require.NoError(t, err)
	assert.Empty(t, g.Parents(0))

	_, err = g.Why(0)
	assert.True(t, errors.Is(err, ancestry.ErrIterationOutOfRange))
}

func TestWriteFacts_Parses(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFacts(&buf, run()))

	unit, err := parse.Unit(strings.NewReader(buf.String()))
	require.NoError(t, err)
	// 4 selected rules and 5 queue entries, no selections in this run
	assert.Len(t, unit.Clauses, 9)
	assert.Equal(t, "selected_rule", unit.Clauses[0].Head.Predicate.Symbol)
	assert.Equal(t, "queue_entry", unit.Clauses[1].Head.Predicate.Symbol)
}

func TestExportFacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "run.mg")
	require.NoError(t, ExportFacts(path, run()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# satwatch facts: 4 iterations\n"))
}
