package printer

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"satwatch/internal/diagnostic"
)

// Semantic colors
var (
	Destructive = lipgloss.Color("#e53935") // Red
	Success     = lipgloss.Color("#8BC34A") // Lime Green
	Warning     = lipgloss.Color("#FFC107") // Yellow
	Info        = lipgloss.Color("#2196F3") // Blue
	Muted       = lipgloss.Color("#7a8699") // Grey
	Internal    = lipgloss.Color("#ab47bc") // Purple
)

// Styles holds the styled components of the text output.
type Styles struct {
	enabled bool

	Title     lipgloss.Style
	Total     lipgloss.Style
	Separator lipgloss.Style
	Transient lipgloss.Style
	Selected  lipgloss.Style

	Info     lipgloss.Style
	Warning  lipgloss.Style
	Critical lipgloss.Style
	Internal lipgloss.Style
}

// NewStyles creates styles rendering for w. With color disabled every style
// renders its input unchanged.
func NewStyles(w io.Writer, color bool) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		enabled: color,

		Title:     r.NewStyle().Bold(true),
		Total:     r.NewStyle().Foreground(Success),
		Separator: r.NewStyle().Foreground(Muted),
		Transient: r.NewStyle().Foreground(Muted).Italic(true),
		Selected:  r.NewStyle().Foreground(Info),

		Info:     r.NewStyle().Foreground(Info).Bold(true),
		Warning:  r.NewStyle().Foreground(Warning).Bold(true),
		Critical: r.NewStyle().Foreground(Destructive).Bold(true),
		Internal: r.NewStyle().Foreground(Internal).Bold(true),
	}
}

// Paint renders text with st when colors are enabled.
func (s Styles) Paint(st lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return st.Render(text)
}

// ForSeverity returns the label style for a severity.
func (s Styles) ForSeverity(sev diagnostic.Severity) lipgloss.Style {
	switch sev {
	case diagnostic.SeverityInfo:
		return s.Info
	case diagnostic.SeverityWarning:
		return s.Warning
	case diagnostic.SeverityCritical:
		return s.Critical
	default:
		return s.Internal
	}
}
