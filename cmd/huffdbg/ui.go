package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"huffdbg/internal/failure"
)

var (
	destructive = lipgloss.Color("#e53935")
	success     = lipgloss.Color("#8BC34A")
	warning     = lipgloss.Color("#FFC107")
	info        = lipgloss.Color("#2196F3")
	muted       = lipgloss.Color("#8a94a6")

	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(destructive)
	successStyle = lipgloss.NewStyle().Bold(true).Foreground(success)
	warnStyle    = lipgloss.NewStyle().Bold(true).Foreground(warning)
	labelStyle   = lipgloss.NewStyle().Bold(true).Foreground(info)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
)

// printError writes err to stderr, with the failure kind as a heading.
func printError(err error) {
	heading := "Error"
	if kind := failure.KindOf(err); kind != "" {
		heading = string(kind)
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", errorStyle.Render(heading+":"), failure.Message(err))
}
