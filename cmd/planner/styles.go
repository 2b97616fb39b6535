package main

import "github.com/charmbracelet/lipgloss"

var (
	noticeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5B8DEF"))
	planStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3FB950"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))
)
