package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/chatbox/internal/model/chat"
	"github.com/zhouzirui/chatbox/internal/model/profile"
	chatService "github.com/zhouzirui/chatbox/internal/service/chat"
)

// Conversation is the part of the chat service the widget drives.
type Conversation interface {
	Snapshot() chat.Snapshot
	Subscribe() (<-chan chat.Snapshot, func())
	SetInput(text string)
	SubmitPending() error
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	botStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
	welcomeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type snapshotMsg chat.Snapshot

type closedMsg struct{}

// waitForSnapshot converts the subscription into a Tea command delivering one update.
func waitForSnapshot(ch <-chan chat.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return snapshotMsg(snap)
	}
}

// Model renders one conversation: header, scrolling thread, typing
// indicator and an input line that is disabled while a send is in flight.
type Model struct {
	conv    Conversation
	profile profile.Profile
	updates <-chan chat.Snapshot
	cancel  func()

	snap     chat.Snapshot
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	markdown bool
	renderer *glamour.TermRenderer

	width  int
	height int
}

// Option customises a Model.
type Option func(*Model)

// WithMarkdown toggles markdown rendering of bot replies.
func WithMarkdown(enabled bool) Option {
	return func(m *Model) {
		m.markdown = enabled
	}
}

// New builds the widget and subscribes it to conv.
func New(conv Conversation, p profile.Profile, opts ...Option) Model {
	in := textinput.New()
	in.Placeholder = p.Placeholder
	in.Prompt = "> "
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = botStyle

	vp := viewport.New(80, 20)

	updates, cancel := conv.Subscribe()

	m := Model{
		conv:     conv,
		profile:  p,
		updates:  updates,
		cancel:   cancel,
		snap:     conv.Snapshot(),
		input:    in,
		viewport: vp,
		spinner:  sp,
		markdown: true,
		width:    80,
		height:   24,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.resize(m.width, m.height)
	return m
}

// Close releases the subscription.
func (m Model) Close() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForSnapshot(m.updates))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(ev.Width, ev.Height)
		return m, nil

	case snapshotMsg:
		m.apply(chat.Snapshot(ev))
		return m, waitForSnapshot(m.updates)

	case closedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(ev)
		return m, cmd

	case tea.KeyMsg:
		switch ev.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(ev)
			return m, cmd
		}
		if m.snap.Busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(ev)
		m.conv.SetInput(m.input.Value())
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.snap.Busy {
		return m, nil
	}
	m.conv.SetInput(m.input.Value())
	err := m.conv.SubmitPending()
	switch {
	case err == nil:
		m.input.Reset()
	case errors.Is(err, chatService.ErrEmptyInput), errors.Is(err, chatService.ErrBusy):
	default:
		log.Warn().Err(err).Msg("submit failed")
	}
	return m, nil
}

// apply installs a new snapshot, ignoring stale ones, and keeps the thread
// scrolled to the latest message.
func (m *Model) apply(snap chat.Snapshot) {
	if snap.Revision < m.snap.Revision {
		return
	}
	m.snap = snap
	if snap.Busy {
		m.input.Blur()
	} else {
		m.input.Focus()
	}
	m.refresh()
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	// header + status + input lines
	m.viewport.Width = width
	m.viewport.Height = max(height-4, 1)
	m.input.Width = max(width-4, 10)
	m.renderer = nil
	if m.markdown {
		r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(max(width-4, 20)))
		if err != nil {
			log.Warn().Err(err).Msg("markdown renderer unavailable")
		} else {
			m.renderer = r
		}
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(RenderThread(m.snap, m.profile, m.renderText))
	m.viewport.GotoBottom()
}

func (m *Model) renderText(msg chat.Message) string {
	if msg.Sender != chat.SenderBot || m.renderer == nil {
		return msg.Text
	}
	out, err := m.renderer.Render(msg.Text)
	if err != nil {
		return msg.Text
	}
	return strings.Trim(out, "\n")
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(m.profile.Title))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.snap.Busy {
		b.WriteString(botStyle.Render("bot: ") + m.spinner.View())
	} else {
		b.WriteString(statusStyle.Render("enter: " + m.profile.SendLabel + " · esc: quit"))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

// RenderThread renders the greeting for an empty thread, otherwise one block
// per message in conversation order.
func RenderThread(snap chat.Snapshot, p profile.Profile, render func(chat.Message) string) string {
	if len(snap.Messages) == 0 {
		return welcomeStyle.Render(p.Greeting)
	}
	if render == nil {
		render = func(msg chat.Message) string { return msg.Text }
	}

	blocks := make([]string, 0, len(snap.Messages))
	for _, msg := range snap.Messages {
		label := botStyle.Render("bot:")
		if msg.Sender == chat.SenderUser {
			label = userStyle.Render("you:")
		}
		blocks = append(blocks, label+" "+render(msg))
	}
	return strings.Join(blocks, "\n")
}
