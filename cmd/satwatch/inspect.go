package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"satwatch/internal/ancestry"
	"satwatch/internal/config"
	"satwatch/internal/logging"
	"satwatch/internal/printer"
	"satwatch/internal/provenance"
	"satwatch/internal/saturation"
	"satwatch/internal/watch"
)

// runExplain prints the queue-accounting ancestry of one iteration.
func runExplain(cmd *cobra.Command, args []string) error {
	index, err := parseIteration(args[0])
	if err != nil {
		return err
	}
	iterations, err := replay(cmd, args[1:])
	if err != nil {
		return err
	}
	exp, err := ancestry.Explain(iterations, index)
	if err != nil {
		return err
	}
	return printExplanation(cmd.OutOrStdout(), exp)
}

// runWhy prints the provenance chain of one iteration as derived by Mangle.
func runWhy(cmd *cobra.Command, args []string) error {
	index, err := parseIteration(args[0])
	if err != nil {
		return err
	}
	iterations, err := replay(cmd, args[1:])
	if err != nil {
		return err
	}
	if index >= len(iterations) {
		return fmt.Errorf("%w: %d (have %d iterations)", ancestry.ErrIterationOutOfRange, index, len(iterations))
	}
	graph, err := provenance.Build(iterations[:index+1])
	if err != nil {
		return err
	}
	exp, err := graph.Why(index)
	if err != nil {
		return err
	}
	return printExplanation(cmd.OutOrStdout(), exp)
}

func parseIteration(s string) (int, error) {
	index, err := strconv.Atoi(s)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid iteration %q: must be a non-negative integer", s)
	}
	return index, nil
}

// replay runs a whole trace through a silent session and returns its iterations.
func replay(cmd *cobra.Command, args []string) ([]saturation.Iteration, error) {
	in, closeIn, err := openTrace(cmd, args)
	if err != nil {
		return nil, err
	}
	defer closeIn()

	sess := watch.New(watch.Options{Explain: watch.NoExplain}, printer.New(io.Discard, printer.Options{}))
	report, err := sess.Run(cmd.Context(), in)
	if err != nil {
		return nil, err
	}
	logging.Watch("replayed %d iterations (%d incomplete)", report.Iterations, report.Incomplete)
	return sess.Tracker().Iterations(), nil
}

func printExplanation(w io.Writer, exp *ancestry.Explanation) error {
	if jsonOutput || cfg.Output.Format == config.FormatJSON {
		data, err := exp.RenderJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	_, err := fmt.Fprint(w, exp.RenderASCII())
	return err
}
