// Package chat implements the interactive chat TUI: a Bubble Tea
// program over a single textarea/viewport pair that renders mnemex's
// cited answers as markdown.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"mnemex/internal/orchestrator"
)

const (
	inputHeight  = 3
	footerHeight = 1
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	citationStyle  = lipgloss.NewStyle().Faint(true)
	footerStyle    = lipgloss.NewStyle().Faint(true)
)

// turn is one rendered exchange in the transcript.
type turn struct {
	question string
	answer   string
	verdict  string
	sources  []string
}

// Model is the Bubble Tea model driving the chat session.
type Model struct {
	orch     *orchestrator.Orchestrator
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	history         []turn
	pendingQuestion string
	waiting         bool
	width           int
	height          int
	quitting        bool
}

// New builds a chat Model over orch. Pass a non-nil context-carrying
// orchestrator built by the cmd layer's buildApp.
func New(orch *orchestrator.Orchestrator) Model {
	ta := textarea.New()
	ta.Placeholder = "Ask mnemex..."
	ta.Prompt = "> "
	ta.CharLimit = 0
	ta.SetWidth(80)
	ta.SetHeight(inputHeight)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(80, 20)

	renderer, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(78),
	)

	return Model{
		orch:     orch,
		input:    ta,
		viewport: vp,
		spinner:  sp,
		renderer: renderer,
	}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// answerMsg carries a completed chat() call back into Update.
type answerMsg struct {
	result *orchestrator.ChatResult
	err    error
}

func (m Model) askCmd(question string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		result, err := m.orch.Chat(ctx, question, 10, true, 2)
		return answerMsg{result: result, err: err}
	}
}

func (m Model) renderTranscript() string {
	var sb strings.Builder
	for _, t := range m.history {
		sb.WriteString(userStyle.Render("You") + "\n")
		sb.WriteString(t.question + "\n\n")

		sb.WriteString(assistantStyle.Render("mnemex") + "\n")
		sb.WriteString(m.safeRenderMarkdown(t.answer))
		if len(t.sources) > 0 {
			sb.WriteString(citationStyle.Render("sources: "+strings.Join(t.sources, ", ")) + "\n")
		}
		if t.verdict != "" && t.verdict != "pass" {
			sb.WriteString(citationStyle.Render("verdict: "+t.verdict) + "\n")
		}
		sb.WriteString("\n")
	}
	if m.waiting {
		sb.WriteString(m.spinner.View() + " thinking...\n")
	}
	return sb.String()
}

// safeRenderMarkdown falls back to the raw string if glamour panics or
// errors on malformed input, matching the defensive rendering pattern
// used everywhere else mnemex shells out to a third-party renderer.
func (m Model) safeRenderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()
	if m.renderer == nil || content == "" {
		return content
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

func (m Model) footerView() string {
	return footerStyle.Render(fmt.Sprintf("%d turn(s) — ctrl+c to quit", len(m.history)))
}
