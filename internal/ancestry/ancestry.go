// Package ancestry reconstructs which earlier iterations fed the queue entry
// consumed by a given iteration.
//
// The prover's queue is consumed from the front and appended at the back.
// Walking backwards, an entry consumed k slots from the front must have been
// inserted by the iteration whose cumulative insertions first exceed the
// remaining skip budget.
package ancestry

import (
	"errors"
	"fmt"

	"satwatch/internal/logging"
	"satwatch/internal/saturation"
)

// ErrIterationOutOfRange is returned by Explain for an unknown iteration index.
var ErrIterationOutOfRange = errors.New("iteration index out of range")

// Ancestry returns, newest first, the iterations whose new queue entries
// plausibly supplied the entry selected by the last iteration. The last
// iteration itself always heads the result. Empty input yields nil.
func Ancestry(iterations []saturation.Iteration) []saturation.Iteration {
	var chain []saturation.Iteration
	skip := 0

	for i := len(iterations) - 1; i >= 0; i-- {
		it := iterations[i]
		added := len(it.NewQueueEntries)

		if len(chain) > 0 && skip >= added {
			skip -= added
			continue
		}

		chain = append(chain, it)
		// depth of the queue before this iteration appended to it
		skip = it.Progress.InQueue - added
		if skip < 0 {
			skip = 0
		}
	}
	return chain
}

// Explain computes the ancestry of the iteration at index, considering only
// iterations up to and including it.
func Explain(iterations []saturation.Iteration, index int) (*Explanation, error) {
	if index < 0 || index >= len(iterations) {
		return nil, fmt.Errorf("%w: %d (have %d iterations)", ErrIterationOutOfRange, index, len(iterations))
	}

	exp := FromChain(index, Ancestry(iterations[:index+1]))
	logging.Ancestry("iteration %d has %d ancestors", index, len(exp.Links)-1)
	return exp, nil
}

// FromChain wraps an already computed chain, newest first, as an Explanation.
func FromChain(target int, chain []saturation.Iteration) *Explanation {
	exp := &Explanation{Target: target, Links: make([]Link, 0, len(chain))}
	for _, it := range chain {
		exp.Links = append(exp.Links, newLink(it))
	}
	return exp
}
