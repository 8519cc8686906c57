package output

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/leapstack-labs/folio/internal/sheet"
)

// Styles holds the lipgloss styles of a renderer. Without a terminal every
// style renders plain text.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	plain lipgloss.Style
	tones map[sheet.Tone]lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *Styles {
	s := r.NewStyle()
	return &Styles{
		Header1: s.Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1),
		Header2: s.Bold(true).Underline(true),
		Bold:    s.Bold(true),
		Muted:   s.Faint(true),
		Success: s.Foreground(lipgloss.Color("10")),
		Warning: s.Foreground(lipgloss.Color("11")),
		Error:   s.Foreground(lipgloss.Color("9")),
		Info:    s.Foreground(lipgloss.Color("14")),
		plain:   s,
		tones: map[sheet.Tone]lipgloss.Style{
			sheet.ToneAlert:   s.Foreground(lipgloss.Color("9")),
			sheet.ToneAccent:  s.Foreground(lipgloss.Color("12")),
			sheet.ToneNeutral: s.Foreground(lipgloss.Color("8")),
			sheet.ToneMuted:   s.Faint(true),
		},
	}
}

// Tone returns the style of a sheet palette slot.
func (s *Styles) Tone(t sheet.Tone) lipgloss.Style {
	if st, ok := s.tones[t]; ok {
		return st
	}
	return s.plain
}
