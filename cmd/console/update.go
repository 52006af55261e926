package main

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

const bpmStep = 1

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		case "t":
			m.show.MetronomeTap()
		case "]":
			m.show.SetBPM(m.show.BPM() + bpmStep)
		case "[":
			m.show.SetBPM(m.show.BPM() - bpmStep)
		}
		return m, nil

	case tickMsg:
		m.metrics = m.show.MetricsSnapshot()
		m.bpm = m.show.BPM()
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	default:
		return m, nil
	}
}
