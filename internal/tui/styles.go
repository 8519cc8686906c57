package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/folio/internal/sheet"
)

type styles struct {
	title, subtitle      lipgloss.Style
	header, headerPinned lipgloss.Style
	cell, cursor         lipgloss.Style
	editing              lipgloss.Style
	newRow, dirtyMark    lipgloss.Style
	totals               lipgloss.Style
	status, statusErr    lipgloss.Style
	tones                map[sheet.Tone]lipgloss.Style
}

func newStyles() styles {
	base := lipgloss.NewStyle()
	return styles{
		title:        base.Bold(true),
		subtitle:     base.Faint(true),
		header:       base.Bold(true).Underline(true),
		headerPinned: base.Bold(true).Faint(true),
		cell:         base,
		cursor:       base.Reverse(true),
		editing:      base.Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("11")),
		newRow:       base.Faint(true),
		dirtyMark:    base.Foreground(lipgloss.Color("11")),
		totals:       base.Padding(0, 0, 1, 0),
		status:       base.Faint(true),
		statusErr:    base.Foreground(lipgloss.Color("9")),
		tones: map[sheet.Tone]lipgloss.Style{
			sheet.ToneAlert:   base.Foreground(lipgloss.Color("9")),
			sheet.ToneAccent:  base.Foreground(lipgloss.Color("12")),
			sheet.ToneNeutral: base.Foreground(lipgloss.Color("8")),
			sheet.ToneMuted:   base.Faint(true),
		},
	}
}

// tone returns the style of a palette slot.
func (s styles) tone(t sheet.Tone) lipgloss.Style {
	if st, ok := s.tones[t]; ok {
		return st
	}
	return s.cell
}
