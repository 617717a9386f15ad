// Package tui is the interactive terminal chat session against a running
// docqa server.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/client"
	"docqa/internal/models"
)

var (
	chatBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle    = lipgloss.NewStyle().Bold(true)
	docStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Model is the Bubble Tea model for the chat session.
type Model struct {
	api      *client.Client
	input    textinput.Model
	viewport viewport.Model
	lines    []string
	chatID   string
	doc      string
	status   string
	ready    bool
	busy     bool
}

type answerMsg struct {
	res models.AskResult
	err error
}

// New creates the chat model. docSummary describes the loaded document
// for the header line.
func New(api *client.Client, docSummary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		api:      api,
		input:    ti,
		viewport: vp,
		doc:      docSummary,
		status:   "Connected. Type to ask.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ch := chatBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + doc line, status, input frame, spacer
		vh := msg.Height - reserved - ch
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width-4)
		m.viewport.Height = vh
		m.viewport.SetContent(strings.Join(m.lines, "\n"))
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		if msg.String() == "enter" && !m.busy {
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				break
			}
			m.input.Reset()
			m.busy = true
			m.status = "Thinking..."
			m.appendLine(userStyle.Render("You: ") + q)
			return m, m.ask(q)
		}
		if msg.String() == "up" || msg.String() == "down" {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.appendLine(statusStyle.Render("(request failed)"))
			return m, nil
		}
		m.chatID = msg.res.ChatID
		m.status = fmt.Sprintf("Chat %s", msg.res.Title)
		m.appendLine(assistantStyle.Render("Assistant: ") + msg.res.Answer)
		m.appendLine("")
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) appendLine(s string) {
	m.lines = append(m.lines, s)
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m Model) ask(question string) tea.Cmd {
	api, chatID := m.api, m.chatID
	return func() tea.Msg {
		res, err := api.Ask(context.Background(), question, chatID, 0)
		return answerMsg{res: res, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("docqa chat")
	doc := docStyle.Render(m.doc)
	chat := chatBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + doc + "\n" + chat + "\n" + input + "\n" + status
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
