package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"satwatch/internal/checker"
	"satwatch/internal/config"
)

type groupListing struct {
	checker.Group
	Active bool `json:"active"`
}

// listPatterns prints every available pattern group and whether the current
// configuration activates it.
func listPatterns(cmd *cobra.Command, args []string) error {
	var fileGroups []checker.Group
	if cfg.Patterns.File != "" {
		groups, err := checker.LoadFile(cfg.Patterns.File)
		if err != nil {
			return err
		}
		fileGroups = groups
	}

	all, err := checker.New(availableGroups(cfg, fileGroups))
	if err != nil {
		return err
	}
	available := all.Groups()
	active := make(map[string]bool)
	for _, g := range cfg.ActiveGroups(available) {
		active[g.Name] = g.IsEnabled()
	}

	listing := make([]groupListing, 0, len(available))
	for _, g := range available {
		listing = append(listing, groupListing{Group: g, Active: active[g.Name]})
	}

	out := cmd.OutOrStdout()
	if cfg.Output.Format == config.FormatJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(listing)
	}

	for _, l := range listing {
		state := "inactive"
		switch {
		case !l.IsEnabled():
			state = "disabled"
		case l.Active:
			state = "active"
		}
		fmt.Fprintf(out, "%s (%s)\n", l.Name, state)
		for _, p := range l.Patterns {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}
	if len(listing) == 0 {
		fmt.Fprintln(out, "no pattern groups configured")
	}
	fmt.Fprintln(out, strings.Repeat("─", 40))
	fmt.Fprintf(out, "%d groups, %d active\n", len(listing), countActive(listing))
	return nil
}

func countActive(listing []groupListing) int {
	n := 0
	for _, l := range listing {
		if l.Active {
			n++
		}
	}
	return n
}
