package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"mnemex/internal/orchestrator"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.SetWidth(msg.Width - 2)
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - inputHeight - footerHeight - 1
		m.viewport.SetContent(m.renderTranscript())

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "enter":
			if m.waiting {
				break
			}
			question := strings.TrimSpace(m.input.Value())
			if question == "" {
				break
			}
			m.input.Reset()
			m.waiting = true
			m.pendingQuestion = question
			m.viewport.SetContent(m.renderTranscript())
			cmds = append(cmds, m.askCmd(question), m.spinner.Tick)
			return m, tea.Batch(cmds...)
		}

	case answerMsg:
		m.waiting = false
		m.history = append(m.history, turnFromResult(m.pendingQuestion, msg.result, msg.err))
		m.pendingQuestion = ""
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if m.waiting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var taCmd, vpCmd tea.Cmd
	m.input, taCmd = m.input.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	cmds = append(cmds, taCmd, vpCmd)

	return m, tea.Batch(cmds...)
}

func turnFromResult(question string, result *orchestrator.ChatResult, err error) turn {
	if err != nil {
		return turn{question: question, answer: "error: " + err.Error()}
	}
	sources := make([]string, 0, len(result.Citations))
	for _, c := range result.Citations {
		sources = append(sources, c.MemoryID)
	}
	return turn{
		question: question,
		answer:   result.Answer,
		verdict:  result.Verdict,
		sources:  sources,
	}
}
