// Package checker flags selected facts that match known-bad structural
// patterns, grouped by name ("HighCounter", ...).
package checker

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"satwatch/internal/diagnostic"
	"satwatch/internal/logging"
)

// ErrUnknownGroup is returned when a group name is not configured.
var ErrUnknownGroup = errors.New("unknown pattern group")

// HighCounterGroup flags two-digit counters inside mess2/table2 facts.
const HighCounterGroup = "HighCounter"

// Group is a named list of regular expressions.
type Group struct {
	Name     string   `yaml:"name" json:"name"`
	Enabled  *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	Patterns []string `yaml:"patterns" json:"patterns"`
}

// IsEnabled reports whether the group is active. Groups are enabled unless
// explicitly switched off.
func (g Group) IsEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

// DefaultGroups returns the built-in pattern groups.
func DefaultGroups() []Group {
	return []Group{
		{
			Name: HighCounterGroup,
			Patterns: []string{
				`mess2\(.+,[0-9]{2,},.+\)`,          // 2-digit number in first channel
				`mess2\(.+,[0-9]{2,}\)`,             // 2-digit number in second channel
				`table2\(.+[,\(][0-9]{2,}[,\(].+\)`, // 2-digit number in table
			},
		},
	}
}

// PatternFile is the on-disk layout of a pattern file.
type PatternFile struct {
	Groups []Group `yaml:"groups"`
}

// LoadFile reads pattern groups from a YAML file.
func LoadFile(path string) ([]Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}
	var pf PatternFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse pattern file: %w", err)
	}
	return pf.Groups, nil
}

type compiledGroup struct {
	name     string
	patterns []*regexp.Regexp
}

type compiledSet struct {
	groups []compiledGroup
	source []Group
}

func compile(groups []Group) (*compiledSet, error) {
	set := &compiledSet{source: groups}
	for _, g := range groups {
		if !g.IsEnabled() {
			continue
		}
		cg := compiledGroup{name: g.Name}
		for _, p := range g.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("group %s: invalid pattern %q: %w", g.Name, p, err)
			}
			cg.patterns = append(cg.patterns, re)
		}
		set.groups = append(set.groups, cg)
	}
	return set, nil
}

// Checker matches facts against compiled pattern groups. The group set can be
// replaced while Check runs on another goroutine.
type Checker struct {
	set atomic.Pointer[compiledSet]
}

// New compiles groups into a checker.
func New(groups []Group) (*Checker, error) {
	set, err := compile(groups)
	if err != nil {
		return nil, err
	}
	c := &Checker{}
	c.set.Store(set)
	return c, nil
}

// Replace compiles groups and swaps them in. On error the current set is kept.
func (c *Checker) Replace(groups []Group) error {
	set, err := compile(groups)
	if err != nil {
		return err
	}
	c.set.Store(set)
	logging.Checker("pattern set replaced: %d groups", len(set.groups))
	return nil
}

// Groups returns the configured groups, including disabled ones.
func (c *Checker) Groups() []Group {
	src := c.set.Load().source
	out := make([]Group, len(src))
	copy(out, src)
	return out
}

// Group returns the configured group with the given name.
func (c *Checker) Group(name string) (Group, error) {
	for _, g := range c.set.Load().source {
		if g.Name == name {
			return g, nil
		}
	}
	return Group{}, fmt.Errorf("%w: %s", ErrUnknownGroup, name)
}

// Check returns one warning per matching pattern, labelled "<group> pattern"
// with the pattern as payload.
func (c *Checker) Check(fact string) []diagnostic.Diagnostic {
	var diags []diagnostic.Diagnostic
	for _, g := range c.set.Load().groups {
		for _, re := range g.patterns {
			if !re.MatchString(fact) {
				continue
			}
			diags = append(diags, diagnostic.New(diagnostic.SeverityWarning, g.name+" pattern", re.String()))
		}
	}
	return diags
}
