// Command console is a terminal status display for a running render.Show,
// built with github.com/charmbracelet/bubbletea the way the teacher's
// multicue/model.go drives its cue-processing TUI. Where multicue owned a
// fixture manager and cue master directly, this console only ever talks to
// Show through its control-plane methods (§6) — it renders state, it
// doesn't hold any.
package main

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/robmorgan/lumen/render"
)

type model struct {
	show     *render.Show
	spinner  spinner.Model
	metrics  render.Metrics
	bpm      float64
	quitting bool
}

func newModel(show *render.Show) model {
	s := spinner.New()
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	return model{show: show, spinner: s}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.spinner.Tick)
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
