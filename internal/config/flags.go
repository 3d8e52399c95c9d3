package config

import "satwatch/internal/checker"

// Flags are the command-line switches layered over the loaded file.
// A false flag never switches off something the file enabled.
type Flags struct {
	All                bool
	PrintAll           bool
	PrintSelectedFacts bool
	PrintCycles        bool
	PrintQueueState    bool
	DetectAll          bool
	DetectHighCounters bool

	Format      string
	NoColor     bool
	WatchConfig bool
	MetricsAddr string
	LogFile     string
	Verbose     bool
}

// ApplyFlags layers command-line flags over the configuration.
func (c *Config) ApplyFlags(f Flags) {
	if f.All {
		c.Print.All = true
		c.Detect.All = true
	}
	c.Print.All = c.Print.All || f.PrintAll
	c.Print.SelectedFacts = c.Print.SelectedFacts || f.PrintSelectedFacts
	c.Print.Cycles = c.Print.Cycles || f.PrintCycles
	c.Print.QueueState = c.Print.QueueState || f.PrintQueueState
	c.Detect.All = c.Detect.All || f.DetectAll

	if f.DetectHighCounters && !contains(c.Detect.Groups, checker.HighCounterGroup) {
		c.Detect.Groups = append(c.Detect.Groups, checker.HighCounterGroup)
	}

	if f.Format != "" {
		c.Output.Format = f.Format
	}
	if f.NoColor {
		c.Output.NoColor = true
	}
	if f.WatchConfig {
		c.Patterns.Watch = true
	}
	if f.MetricsAddr != "" {
		c.Metrics.Addr = f.MetricsAddr
	}
	if f.LogFile != "" {
		c.Logging.File = f.LogFile
		c.Logging.DebugMode = true
	}
	if f.Verbose {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
