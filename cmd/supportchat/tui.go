package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/freshplate/supportchat/chat"
	"github.com/freshplate/supportchat/session"
)

const (
	defaultChatWidth = 80
	inputHeight      = 3
	chromeRows       = 4 // header + status + help + spacing
)

// snapshotMsg carries a fresh session state into the program loop.
type snapshotMsg session.Snapshot

type openDoneMsg struct{ err error }

type sendDoneMsg struct{ err error }

type styles struct {
	header   lipgloss.Style
	modeAI   lipgloss.Style
	modeHand lipgloss.Style
	customer lipgloss.Style
	agent    lipgloss.Style
	system   lipgloss.Style
	pending  lipgloss.Style
	notice   lipgloss.Style
	help     lipgloss.Style
	menu     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		modeAI:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		modeHand: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		customer: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		agent:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		system:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("9")),
		pending:  lipgloss.NewStyle().Faint(true),
		notice:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		help:     lipgloss.NewStyle().Faint(true),
		menu:     lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	}
}

// chatModel is the root bubbletea model. All session state arrives as
// snapshotMsg values, so the model itself holds no shared mutable state.
type chatModel struct {
	ctrl *session.Controller
	who  session.Identity

	viewport viewport.Model
	input    textarea.Model
	spin     spinner.Model
	styles   styles

	snap   session.Snapshot
	notice string
	width  int
	height int
	ready  bool
}

func newChatModel(ctrl *session.Controller, who session.Identity) *chatModel {
	input := textarea.New()
	input.Placeholder = "Type a message and press Enter"
	input.ShowLineNumbers = false
	input.SetHeight(1)
	input.CharLimit = 2000
	input.Focus()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	return &chatModel{
		ctrl:     ctrl,
		who:      who,
		viewport: viewport.New(defaultChatWidth, 20),
		input:    input,
		spin:     spin,
		styles:   defaultStyles(),
	}
}

func (m *chatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spin.Tick, m.openCmd())
}

func (m *chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-inputHeight-chromeRows, 3)
		m.input.SetWidth(msg.Width - 2)
		m.ready = true
		m.refreshViewport(true)
		return m, nil

	case snapshotMsg:
		atBottom := m.viewport.AtBottom()
		m.snap = session.Snapshot(msg)
		m.refreshViewport(atBottom)
		return m, nil

	case openDoneMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		return m, nil

	case sendDoneMsg:
		switch {
		case msg.err == nil:
			m.notice = ""
		case errors.Is(msg.err, session.ErrAwaitingResponse):
			m.notice = "Please wait for the reply before sending another message."
		case errors.Is(msg.err, session.ErrEmptyMessage):
			m.notice = ""
		default:
			m.notice = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.input.Reset()
			return m, m.sendCmd(text)
		case "pgup":
			m.viewport.ViewUp()
			if m.viewport.AtTop() && m.snap.HasMoreOlder {
				return m, m.loadOlderCmd()
			}
			return m, nil
		case "pgdown":
			m.viewport.ViewDown()
			return m, nil
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *chatModel) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.styles.help.Render("enter: send  pgup: older messages  esc: quit"))
	return b.String()
}

func (m *chatModel) openCmd() tea.Cmd {
	return func() tea.Msg {
		return openDoneMsg{err: m.ctrl.Open(context.Background(), m.who)}
	}
}

func (m *chatModel) sendCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return sendDoneMsg{err: m.ctrl.Send(context.Background(), text)}
	}
}

func (m *chatModel) loadOlderCmd() tea.Cmd {
	return func() tea.Msg {
		m.ctrl.LoadOlder(context.Background())
		return nil
	}
}

func (m *chatModel) refreshViewport(follow bool) {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderConversation())
	if follow {
		m.viewport.GotoBottom()
	}
}

func (m *chatModel) renderHeader() string {
	title := m.styles.header.Render("FreshPlate Support")

	var mode string
	if m.snap.Mode == chat.ModeEmployee {
		mode = m.styles.modeHand.Render("● support agent")
	} else {
		mode = m.styles.modeAI.Render("● AI assistant")
	}

	id := ""
	if m.snap.ConversationID != "" {
		id = m.styles.help.Render(" " + m.snap.ConversationID)
	}
	return title + "  " + mode + id
}

func (m *chatModel) renderStatus() string {
	switch {
	case m.notice != "":
		return m.styles.notice.Render(m.notice)
	case m.snap.AwaitingResponse:
		return m.spin.View() + m.styles.pending.Render("waiting for reply")
	case m.snap.IsLoadingOlder:
		return m.styles.pending.Render("loading history...")
	default:
		return ""
	}
}

func (m *chatModel) renderConversation() string {
	if len(m.snap.Messages) == 0 {
		return m.styles.help.Render("No messages yet. Ask us anything about your order.")
	}

	width := m.viewport.Width
	if width <= 0 {
		width = defaultChatWidth
	}

	var b strings.Builder
	for i, msg := range m.snap.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(m.renderMessage(msg, width))
	}
	return b.String()
}

func (m *chatModel) renderMessage(msg chat.Message, width int) string {
	if msg.SenderRole == chat.RoleSystem {
		return m.styles.system.Render(wordwrap.String(msg.Content, width))
	}

	var label string
	switch msg.SenderRole {
	case chat.RoleCustomer:
		label = m.styles.customer.Render("You")
	case chat.RoleEmployee:
		label = m.styles.agent.Render("Support")
	default:
		label = m.styles.agent.Render("Assistant")
	}

	if msg.Pending() {
		label += m.styles.pending.Render(" (sending...)")
	}

	body := wordwrap.String(msg.Content, width)
	out := label + "\n" + body

	for _, item := range msg.AttachedMenu {
		out += "\n" + m.styles.menu.Render(fmt.Sprintf("  • %s  $%.2f", item.Name, float64(item.Price)/100))
	}
	return out
}
