// Command satwatch watches the trace of a rule-saturation prover, reports
// repeating selections and suspicious facts while the run is going, and
// explains where a selected fact came from.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"satwatch/internal/config"
	"satwatch/internal/logging"
	"satwatch/internal/watch"
)

var (
	// Global flags
	configPath string
	flags      config.Flags

	// Watch flags
	explainIndex int
	exportFacts  string
	noReport     bool

	// Inspect flags
	jsonOutput bool

	// Resolved in PersistentPreRunE
	cfg *config.Config
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// rootCmd watches a trace read from a file or stdin.
var rootCmd = &cobra.Command{
	Use:   "satwatch [trace-file]",
	Short: "Watch a saturation prover trace for cycles and suspicious facts",
	Long: `satwatch reads the trace of a rule-saturation prover line by line, from a
file or from standard input, and rebuilds the prover's iterations as they
complete.

After every iteration it can:
  - detect cycles: the same selected fact, or a short sequence of them,
    being selected over and over
  - flag selected facts that match suspicious patterns (--detect-all)
  - explain the ancestry of an iteration once it completes (--explain N)

Example:
  prover -v input.pv | satwatch -a`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
	},
	RunE: runWatch,
}

// explainCmd replays a trace and prints the ancestry of one iteration
var explainCmd = &cobra.Command{
	Use:   "explain <iteration> [trace-file]",
	Short: "Explain which iterations queued the entry selected at an iteration",
	Long: `Replays a complete trace and walks the iterations backwards through the
queue accounting, printing the chain of iterations whose queue insertions
led to the entry selected at the given iteration.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runExplain,
}

// whyCmd answers the same question through the Mangle provenance program
var whyCmd = &cobra.Command{
	Use:   "why <iteration> [trace-file]",
	Short: "Explain an iteration by matching selected rules to queued rules",
	Long: `Replays a complete trace, loads it as Mangle facts and evaluates the
provenance program: an iteration derives from the latest earlier iteration
that queued the rule it selected.

Use --export-facts on the watch command to inspect the facts directly.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runWhy,
}

// patternsCmd lists the configured pattern groups
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List suspicious-fact pattern groups",
	Args:  cobra.NoArgs,
	RunE:  listPatterns,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the satwatch version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "satwatch %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "Config file (YAML)")
	pf.StringVar(&flags.LogFile, "log-file", "", "Write logs to a rotating file")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&flags.NoColor, "no-color", false, "Disable colors")
	pf.StringVar(&flags.Format, "format", "", "Output format: text or json")

	f := rootCmd.Flags()
	f.BoolVarP(&flags.All, "all", "a", false, "Enable all printing and detection")
	f.BoolVarP(&flags.PrintAll, "print-all", "p", false, "Print everything")
	f.BoolVar(&flags.PrintSelectedFacts, "print-selected-facts", false, "Print selected facts")
	f.BoolVar(&flags.PrintCycles, "print-cycles", false, "Detect and print cycles")
	f.BoolVar(&flags.PrintQueueState, "print-queue-state", false, "Print queue progress")
	f.BoolVarP(&flags.DetectAll, "detect-all", "d", false, "Enable every pattern group")
	f.BoolVar(&flags.DetectHighCounters, "detect-high-counters", false, "Flag facts with two-digit counters")
	f.BoolVar(&flags.WatchConfig, "watch-config", false, "Reload the pattern file when it changes")
	f.StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	f.IntVar(&explainIndex, "explain", watch.NoExplain, "Explain this iteration once it completes")
	f.StringVar(&exportFacts, "export-facts", "", "Write the iterations as Mangle facts to this file")
	f.BoolVar(&noReport, "no-report", false, "Skip the end-of-run report")

	explainCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the explanation as JSON")
	whyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the explanation as JSON")

	rootCmd.AddCommand(explainCmd)
	rootCmd.AddCommand(whyCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads the config, layers the flags over it and starts logging.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	loaded.ApplyFlags(flags)
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Initialize(loaded.Logging.Options()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	cfg = loaded

	logging.Boot("satwatch %s starting: command=%s config=%q", version, cmd.Name(), configPath)
	logging.BootDebug("cycles=%v selected_facts=%v queue_state=%v detect_all=%v groups=%v",
		cfg.CyclesEnabled(), cfg.SelectedFactsEnabled(), cfg.QueueStateEnabled(), cfg.Detect.All, cfg.Detect.Groups)
	return nil
}
