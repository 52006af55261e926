package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
	appStyle  = lipgloss.NewStyle().Margin(1, 2, 0, 2)
)

func (m model) View() string {
	var s string
	s += fmt.Sprintf("%s lumen\n\n", m.spinner.View())
	s += fmt.Sprintf("BPM: %.1f\n", m.bpm)
	s += fmt.Sprintf("Frames sent: %d\n", m.metrics.FramesSent)
	s += fmt.Sprintf("Average frame time: %s\n", m.metrics.AverageDuration)
	s += fmt.Sprintf("Overruns: %d\n\n", m.metrics.RecentOverruns)
	s += helpStyle.Render("(t) tap tempo  ([,]) bpm -/+  (q) quit\n")
	if m.quitting {
		s += "\n"
	}
	return appStyle.Render(s)
}
