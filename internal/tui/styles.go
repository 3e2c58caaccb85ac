package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	title   lipgloss.Style
	pane    lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	teamA   lipgloss.Style
	teamB   lipgloss.Style
	winner  lipgloss.Style
	loser   lipgloss.Style
	err     lipgloss.Style
	badge   lipgloss.Style
	keys    lipgloss.Style
}

func newTheme() theme {
	border := lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#4C566A"}
	return theme{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#88C0D0")),
		pane:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1),
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#81A1C1")),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#616E88")),
		teamA:   lipgloss.NewStyle().Foreground(lipgloss.Color("#5E81AC")).Bold(true),
		teamB:   lipgloss.NewStyle().Foreground(lipgloss.Color("#D08770")).Bold(true),
		winner:  lipgloss.NewStyle().Foreground(lipgloss.Color("#A3BE8C")),
		loser:   lipgloss.NewStyle().Foreground(lipgloss.Color("#BF616A")),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color("#BF616A")),
		badge:   lipgloss.NewStyle().Background(lipgloss.Color("#EBCB8B")).Foreground(lipgloss.Color("#2E3440")).Padding(0, 1),
		keys:    lipgloss.NewStyle().Foreground(lipgloss.Color("#616E88")),
	}
}
