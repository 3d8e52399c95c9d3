// Package provenance cross-checks ancestry by matching rules: an iteration
// derives from the latest earlier iteration that queued the rule it selected.
// The derivation relation and its closure are computed by a Mangle program.
package provenance

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"satwatch/internal/ancestry"
	"satwatch/internal/logging"
	"satwatch/internal/saturation"
)

//go:embed provenance.mg
var program string

// createdFactLimit bounds evaluation on very long runs.
const createdFactLimit = 5000000

// Predicates
const (
	predSelectedRule = "selected_rule"
	predQueueEntry   = "queue_entry"
	predSelectedFact = "selected_fact"
	predDerivedFrom  = "derived_from"
)

// Graph is the evaluated provenance of a run.
type Graph struct {
	store      factstore.FactStore
	iterations []saturation.Iteration

	parents map[int][]int
}

// Build evaluates the provenance program over the iterations.
func Build(iterations []saturation.Iteration) (*Graph, error) {
	unit, err := parse.Unit(strings.NewReader(program))
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("analysis error: %w", err)
	}

	store := factstore.NewIndexedInMemoryStore()
	for _, atom := range Facts(iterations) {
		store.Add(atom)
	}

	stats, err := engine.EvalProgramWithStats(programInfo, store, engine.WithCreatedFactLimit(createdFactLimit))
	if err != nil {
		return nil, fmt.Errorf("evaluation error: %w", err)
	}
	logging.Provenance("evaluated provenance over %d iterations: %d strata", len(iterations), len(stats.Strata))

	g := &Graph{
		store:      store,
		iterations: iterations,
		parents:    make(map[int][]int),
	}
	if err := g.load(); err != nil {
		return nil, err
	}
	return g, nil
}

// Facts converts iterations into the extensional facts of the program.
func Facts(iterations []saturation.Iteration) []ast.Atom {
	var atoms []ast.Atom
	for i, it := range iterations {
		idx := ast.Number(int64(i))
		atoms = append(atoms, ast.NewAtom(predSelectedRule, idx, ast.String(it.Query)))
		for _, entry := range it.NewQueueEntries {
			atoms = append(atoms, ast.NewAtom(predQueueEntry, ast.String(entry), idx))
		}
		if _, fact, ok := it.Selection(); ok {
			atoms = append(atoms, ast.NewAtom(predSelectedFact, idx, ast.String(fact)))
		}
	}
	return atoms
}

func (g *Graph) load() error {
	err := g.store.GetFacts(ast.NewQuery(ast.PredicateSym{Symbol: predDerivedFrom, Arity: 2}), func(a ast.Atom) error {
		child, err := intArg(a, 0)
		if err != nil {
			return err
		}
		parent, err := intArg(a, 1)
		if err != nil {
			return err
		}
		g.parents[child] = append(g.parents[child], parent)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", predDerivedFrom, err)
	}
	for k := range g.parents {
		sort.Sort(sort.Reverse(sort.IntSlice(g.parents[k])))
	}
	return nil
}

func intArg(a ast.Atom, i int) (int, error) {
	c, ok := a.Args[i].(ast.Constant)
	if !ok || c.Type != ast.NumberType {
		return 0, fmt.Errorf("%s: argument %d is not a number: %v", a.Predicate.Symbol, i, a.Args[i])
	}
	return int(c.NumValue), nil
}

// Parents returns every earlier iteration that queued the rule selected at
// index, newest first.
func (g *Graph) Parents(index int) []int {
	return append([]int(nil), g.parents[index]...)
}

// Why follows the latest parent from index back to a root and returns the
// chain in the same shape as an ancestry explanation.
func (g *Graph) Why(index int) (*ancestry.Explanation, error) {
	if index < 0 || index >= len(g.iterations) {
		return nil, fmt.Errorf("%w: %d (have %d iterations)", ancestry.ErrIterationOutOfRange, index, len(g.iterations))
	}

	chain := []saturation.Iteration{g.iterations[index]}
	for current := index; ; {
		parents := g.parents[current]
		if len(parents) == 0 {
			break
		}
		current = parents[0]
		chain = append(chain, g.iterations[current])
	}

	return ancestry.FromChain(index, chain), nil
}
