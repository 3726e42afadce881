// Package shell renders the conversation in the terminal and forwards user
// input to the client orchestrator.
package shell

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zhouzirui/voice-assistant/internal/client"
	"github.com/zhouzirui/voice-assistant/internal/model/chat"
)

const revealCursor = "▋"

// Controller is the part of the orchestrator the shell drives.
type Controller interface {
	Bootstrap(ctx context.Context) error
	Submit(ctx context.Context, text string) error
	StartRecording(ctx context.Context) error
	StopRecording(ctx context.Context) (string, error)
	Recording() bool
}

type (
	messagesMsg  []chat.Message
	stateMsg     client.State
	bootstrapMsg struct{ err error }
	turnDoneMsg  struct{ err error }
)

// Model is the bubbletea model of the assistant shell.
type Model struct {
	ctx  context.Context
	ctrl Controller

	messages []chat.Message
	state    client.State
	input    []rune
	lastErr  string
	modalURL string

	width  int
	height int
	styles styles
}

type styles struct {
	header lipgloss.Style
	user   lipgloss.Style
	bot    lipgloss.Style
	image  lipgloss.Style
	input  lipgloss.Style
	status lipgloss.Style
	err    lipgloss.Style
	modal  lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Padding(0, 1),
		user:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		bot:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		image:  lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Italic(true),
		input:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1),
		status: lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1),
		err:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		modal:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("245")).Padding(1, 4).Align(lipgloss.Center),
	}
}

// New creates the shell model. ctx bounds every call made into ctrl.
func New(ctx context.Context, ctrl Controller) Model {
	return Model{
		ctx:    ctx,
		ctrl:   ctrl,
		width:  80,
		height: 24,
		styles: defaultStyles(),
	}
}

// Init starts the bootstrap.
func (m Model) Init() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return bootstrapMsg{err: ctrl.Bootstrap(ctx)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case messagesMsg:
		m.messages = msg
		return m, nil
	case stateMsg:
		m.state = client.State(msg)
		return m, nil
	case bootstrapMsg:
		m.setError(msg.err)
		return m, nil
	case turnDoneMsg:
		m.setError(msg.err)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) setError(err error) {
	if err != nil {
		m.lastErr = err.Error()
		return
	}
	m.lastErr = ""
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.modalURL = ""
		return m, nil
	case tea.KeyCtrlO:
		if url := latestImage(m.messages); url != "" {
			m.modalURL = url
		}
		return m, nil
	case tea.KeyCtrlR:
		return m, m.toggleRecording()
	case tea.KeyEnter:
		text := strings.TrimSpace(string(m.input))
		if text == "" {
			return m, nil
		}
		m.input = m.input[:0]
		ctx, ctrl := m.ctx, m.ctrl
		return m, func() tea.Msg {
			return turnDoneMsg{err: ctrl.Submit(ctx, text)}
		}
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
		return m, nil
	case tea.KeySpace:
		m.input = append(m.input, ' ')
		return m, nil
	case tea.KeyRunes:
		m.input = append(m.input, key.Runes...)
		return m, nil
	}
	return m, nil
}

func (m Model) toggleRecording() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	if ctrl.Recording() {
		return func() tea.Msg {
			_, err := ctrl.StopRecording(ctx)
			return turnDoneMsg{err: err}
		}
	}
	return func() tea.Msg {
		if err := ctrl.StartRecording(ctx); err != nil {
			return turnDoneMsg{err: err}
		}
		return nil
	}
}

func latestImage(messages []chat.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].ImageURL != "" {
			return messages[i].ImageURL
		}
	}
	return ""
}

// View implements tea.Model.
func (m Model) View() string {
	header := m.styles.header.Render("Voice Assistant")
	input := m.styles.input.Width(max(m.width-4, 10)).Render("> " + string(m.input))
	status := m.statusLine()

	if m.modalURL != "" {
		box := m.styles.modal.Render(m.modalURL + "\n\n" + m.styles.status.Render("esc to close"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	used := lipgloss.Height(header) + lipgloss.Height(input) + lipgloss.Height(status)
	transcript := m.renderTranscript(m.height - used)

	return lipgloss.JoinVertical(lipgloss.Left, header, transcript, input, status)
}

// renderTranscript keeps the newest lines that fit into height.
func (m Model) renderTranscript(height int) string {
	if height < 1 {
		height = 1
	}
	width := max(m.width-2, 10)

	var lines []string
	for _, msg := range m.messages {
		block := lipgloss.NewStyle().Width(width).Render(m.renderMessage(msg))
		lines = append(lines, strings.Split(block, "\n")...)
	}

	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMessage(msg chat.Message) string {
	var b strings.Builder
	if msg.Role == chat.RoleUser {
		b.WriteString(m.styles.user.Render("User:"))
	} else {
		b.WriteString(m.styles.bot.Render("Bot:"))
	}
	b.WriteString(" ")
	b.WriteString(msg.Content)
	if msg.Revealing {
		b.WriteString(revealCursor)
	}
	if msg.ImageURL != "" {
		b.WriteString("\n")
		b.WriteString(m.styles.image.Render("[image] " + msg.ImageURL + " (ctrl+o to open)"))
	}
	return b.String()
}

func (m Model) statusLine() string {
	parts := []string{m.state.String()}
	if m.ctrl != nil && m.ctrl.Recording() {
		parts[0] = "● recording"
	}
	parts = append(parts, "enter send", "ctrl+r record", "ctrl+c quit")
	line := m.styles.status.Render(strings.Join(parts, " · "))
	if m.lastErr != "" {
		line += m.styles.err.Render(m.lastErr)
	}
	return line
}
