package checker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"satwatch/internal/diagnostic"
)

func TestCheck_HighCounter(t *testing.T) {
	c, err := New(DefaultGroups())
	require.NoError(t, err)

	tests := []struct {
		fact    string
		matches int
	}{
		{"attacker(mess2(c[],12,x))", 1},
		{"attacker(mess2(c[],x,34))", 1},
		{"attacker(table2(k(1),42,z))", 1},
		{"attacker(mess2(c[],1,x))", 0},
		{"attacker(k(99))", 0},
	}
	for _, tt := range tests {
		t.Run(tt.fact, func(t *testing.T) {
			diags := c.Check(tt.fact)
			require.Len(t, diags, tt.matches)
			for _, d := range diags {
				assert.Equal(t, diagnostic.SeverityWarning, d.Severity)
				assert.Equal(t, "HighCounter pattern", d.Label)
				assert.NotEmpty(t, d.Payload)
			}
		})
	}
}

func TestNew_InvalidPattern(t *testing.T) {
	_, err := New([]Group{{Name: "Broken", Patterns: []string{"("}}})
	assert.Error(t, err)
}

func TestReplace_KeepsSetOnError(t *testing.T) {
	c, err := New(DefaultGroups())
	require.NoError(t, err)

	assert.Error(t, c.Replace([]Group{{Name: "Broken", Patterns: []string{"[a-"}}}))
	assert.Len(t, c.Check("attacker(mess2(c[],12,x))"), 1)

	require.NoError(t, c.Replace([]Group{{Name: "Key", Patterns: []string{`^k\(`}}}))
	diags := c.Check("k(1)")
	require.Len(t, diags, 1)
	assert.Equal(t, "Key pattern", diags[0].Label)
	assert.Empty(t, c.Check("attacker(mess2(c[],12,x))"))
}

func TestDisabledGroup(t *testing.T) {
	off := false
	c, err := New([]Group{{Name: HighCounterGroup, Enabled: &off, Patterns: DefaultGroups()[0].Patterns}})
	require.NoError(t, err)

	assert.Empty(t, c.Check("attacker(mess2(c[],12,x))"))
	assert.Len(t, c.Groups(), 1, "disabled groups are still listed")
}

func TestGroup_Unknown(t *testing.T) {
	c, err := New(DefaultGroups())
	require.NoError(t, err)

	g, err := c.Group(HighCounterGroup)
	require.NoError(t, err)
	assert.Len(t, g.Patterns, 3)

	_, err = c.Group("Nope")
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.yaml")
	content := `groups:
  - name: Nonce
    patterns:
      - 'n\[\d+\]'
  - name: Off
    enabled: false
    patterns: ['x']
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	groups, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Nonce", groups[0].Name)
	assert.True(t, groups[0].IsEnabled())
	assert.False(t, groups[1].IsEnabled())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
