package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"satwatch/internal/checker"
	"satwatch/internal/config"
	"satwatch/internal/logging"
	"satwatch/internal/metrics"
	"satwatch/internal/printer"
	"satwatch/internal/provenance"
	"satwatch/internal/watch"
)

// runWatch streams the trace through a session until the input ends or the
// process is interrupted. The metrics endpoint and the pattern file watcher
// run alongside and stop with it.
func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, closeIn, err := openTrace(cmd, args)
	if err != nil {
		return err
	}
	defer closeIn()

	chk, resolve, err := buildChecker(cfg)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	runID := uuid.NewString()
	p := printer.New(out, printer.Options{
		Format:      cfg.Output.Format,
		Color:       !cfg.Output.NoColor,
		Interactive: printer.IsTerminal(out),
		RunID:       runID,
	})

	m := metrics.New()
	sess := watch.New(watch.Options{
		Cycles:        cfg.CyclesEnabled(),
		Thresholds:    cfg.Cycles,
		SelectedFacts: cfg.SelectedFactsEnabled(),
		QueueState:    cfg.QueueStateEnabled(),
		Report:        !noReport,
		TopFacts:      cfg.Print.TopFacts,
		Explain:       explainIndex,
		Checker:       chk,
		Metrics:       m,
	}, p)

	var pw *checker.Watcher
	if cfg.Patterns.Watch {
		pw, err = checker.NewWatcher(cfg.Patterns.File, chk)
		if err != nil {
			return fmt.Errorf("failed to watch pattern file: %w", err)
		}
		pw.SetResolver(resolve)
	}

	logging.Watch("run %s started", runID)

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()

	var report *watch.Report
	g.Go(func() error {
		defer cancel()
		r, err := sess.Run(runCtx, in)
		report = r
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return m.Serve(runCtx, cfg.Metrics.Addr, cfg.Metrics.Path)
		})
	}
	if pw != nil {
		g.Go(func() error {
			return pw.Run(runCtx)
		})
	}

	runErr := g.Wait()
	p.Finish()

	if report != nil {
		logging.Watch("run %s finished: %d iterations, %d history entries, %d incomplete",
			runID, report.Iterations, report.HistoryEntries, report.Incomplete)
	}
	if pw != nil {
		stats := pw.Stats()
		logging.Watch("pattern file reloaded %d times (%d errors)", stats.Reloads, stats.Errors)
	}

	if exportFacts != "" {
		if err := provenance.ExportFacts(exportFacts, sess.Tracker().Iterations()); err != nil {
			return err
		}
		logging.Watch("exported facts to %s", exportFacts)
	}

	if runErr != nil {
		return runErr
	}
	return p.Err()
}

// openTrace opens the trace file named by args, or stdin when there is none
// or it is "-".
func openTrace(cmd *cobra.Command, args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open trace: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// availableGroups merges the built-in, configured and file pattern groups.
// Later sets replace groups of the same name.
func availableGroups(c *config.Config, fileGroups []checker.Group) []checker.Group {
	return mergeGroups(checker.DefaultGroups(), c.Patterns.Groups, fileGroups)
}

func mergeGroups(sets ...[]checker.Group) []checker.Group {
	var out []checker.Group
	pos := make(map[string]int)
	for _, set := range sets {
		for _, g := range set {
			if i, ok := pos[g.Name]; ok {
				out[i] = g
				continue
			}
			pos[g.Name] = len(out)
			out = append(out, g)
		}
	}
	return out
}

// buildChecker returns the fact checker for the selected groups, or nil when
// nothing is selected and no pattern file is watched. The returned resolver
// turns reloaded file groups into the checker's new set.
func buildChecker(c *config.Config) (*checker.Checker, func([]checker.Group) []checker.Group, error) {
	var fileGroups []checker.Group
	if c.Patterns.File != "" {
		groups, err := checker.LoadFile(c.Patterns.File)
		if err != nil {
			return nil, nil, err
		}
		fileGroups = groups
	}

	available := availableGroups(c, fileGroups)
	all, err := checker.New(available)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range c.Detect.Groups {
		if _, err := all.Group(name); err != nil {
			return nil, nil, err
		}
	}

	resolve := func(reloaded []checker.Group) []checker.Group {
		return c.ActiveGroups(availableGroups(c, reloaded))
	}

	active := c.ActiveGroups(available)
	if len(active) == 0 && !c.Patterns.Watch {
		return nil, resolve, nil
	}
	chk, err := checker.New(active)
	if err != nil {
		return nil, nil, err
	}
	logging.Checker("%d pattern groups active", len(active))
	return chk, resolve, nil
}
