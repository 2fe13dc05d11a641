package main

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	realtime "github.com/koscakluka/ema-realtime/core"
	"github.com/koscakluka/ema-realtime/core/transcript"
)

const (
	headerHeight = 2
	footerHeight = 3

	stopTimeout = 5 * time.Second
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("106"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type (
	stateMsg      realtime.State
	transcriptMsg []transcript.Entry
	errMsg        struct{ err error }
	exportMsg     struct {
		path string
		err  error
	}
)

type conversationModel struct {
	controller *realtime.Controller

	state   realtime.State
	entries []transcript.Entry
	notice  string
	err     error

	viewport viewport.Model
	spinner  spinner.Model
	width    int
	ready    bool
}

func newConversationModel(controller *realtime.Controller) conversationModel {
	return conversationModel{
		controller: controller,
		state:      controller.State(),
		entries:    controller.Transcript(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (m conversationModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m conversationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "s":
			m.err, m.notice = nil, ""
			return m, m.start
		case "x":
			return m, m.stop
		case "c":
			return m, m.clear
		case "q", "ctrl+c":
			return m, tea.Sequence(m.stop, tea.Quit)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		height := max(msg.Height-headerHeight-footerHeight, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.refresh()

	case stateMsg:
		m.state = realtime.State(msg)

	case transcriptMsg:
		m.entries = msg
		m.refresh()

	case errMsg:
		m.err = msg.err

	case exportMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.notice = "transcript saved to " + msg.path
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.ready {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// Controller calls run as commands since the controller reports back through
// the program while they are in progress.
func (m conversationModel) start() tea.Msg {
	if err := m.controller.Start(context.Background()); err != nil {
		return errMsg{err}
	}
	return nil
}

func (m conversationModel) stop() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := m.controller.Stop(ctx); err != nil {
		return errMsg{err}
	}
	return nil
}

func (m conversationModel) clear() tea.Msg {
	if err := m.controller.ClearTranscript(); err != nil {
		return errMsg{err}
	}
	return nil
}

func (m *conversationModel) refresh() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(renderTranscript(m.entries, m.width))
	m.viewport.GotoBottom()
}

func renderTranscript(entries []transcript.Entry, width int) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsPlaceholder() {
			continue
		}
		switch entry.Role {
		case transcript.RoleUser:
			lines = append(lines, userStyle.Render(wrap(entry.Text, width)))
		default:
			lines = append(lines, assistantStyle.Render(wrap("Assistant: "+entry.Text, width)))
		}
	}
	return strings.Join(lines, "\n")
}

func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return wordwrap.String(text, width)
}

func (m conversationModel) View() string {
	if !m.ready {
		return "\n  " + m.spinner.View() + " loading"
	}

	status := m.state.String()
	if m.state == realtime.StateConnecting || m.state == realtime.StateStopping {
		status = m.spinner.View() + " " + status
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("ema realtime") + "  " + status + "\n\n")
	b.WriteString(m.viewport.View() + "\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(wrap(m.err.Error(), m.width)))
	case m.notice != "":
		b.WriteString(noticeStyle.Render(m.notice))
	}
	b.WriteString("\n" + helpStyle.Render("s start  x stop  c clear  q quit"))
	return b.String()
}
