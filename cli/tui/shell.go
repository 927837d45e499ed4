package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/holonet/cli/render"
)

// maxHistory is the number of lookups kept on screen.
const maxHistory = 5

// Session is the connection the shell drives.
type Session interface {
	// Connected reports whether lookups can be sent.
	Connected() bool
	// Connect opens the transport.
	Connect(ctx context.Context) error
	// Disconnect closes the transport.
	Disconnect() error
	// Search runs one lookup to completion.
	Search(ctx context.Context, name string) (render.Outcome, error)
}

type keyMap struct {
	Submit     key.Binding
	Connect    key.Binding
	Disconnect key.Binding
	Quit       key.Binding
}

var keys = keyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "look up"),
	),
	Connect: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "connect"),
	),
	Disconnect: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "disconnect"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("esc", "quit"),
	),
}

type searchDoneMsg struct {
	outcome   render.Outcome
	err       error
	connected bool
}

type connectionMsg struct {
	action    string
	err       error
	connected bool
}

type entry struct {
	query   string
	status  string
	text    string
	elapsed int64
}

// ShellModel is a Bubble Tea model for interactive character lookups.
type ShellModel struct {
	ctx       context.Context
	session   Session
	input     textinput.Model
	spinner   spinner.Model
	history   []entry
	notice    string
	searching bool
	quitting  bool
	// connected is refreshed after each command; View never asks the session.
	connected bool
}

// NewShellModel creates a shell over session. ctx bounds every lookup.
func NewShellModel(ctx context.Context, session Session) ShellModel {
	ti := textinput.New()
	ti.Placeholder = "character name"
	ti.Prompt = "search> "
	ti.CharLimit = 128
	ti.Focus()

	return ShellModel{
		ctx:       ctx,
		session:   session,
		input:     ti,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		connected: session.Connected(),
	}
}

// Init implements tea.Model.
func (m ShellModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m ShellModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Connect):
			return m, m.connect()
		case key.Matches(msg, keys.Disconnect):
			return m, m.disconnect()
		case key.Matches(msg, keys.Submit):
			return m.submit()
		}

	case searchDoneMsg:
		m.searching = false
		m.connected = msg.connected
		m.record(msg)
		return m, nil

	case connectionMsg:
		m.connected = msg.connected
		if msg.err != nil {
			m.notice = ErrorStyle.Render(fmt.Sprintf("%s failed: %v", msg.action, msg.err))
		} else {
			m.notice = msg.action + " ok"
		}
		return m, nil

	case spinner.TickMsg:
		if !m.searching {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m ShellModel) submit() (tea.Model, tea.Cmd) {
	if m.searching {
		return m, nil
	}
	name := strings.TrimSpace(m.input.Value())
	if name == "" {
		m.notice = WarningStyle.Render("Search query is empty. Try again.")
		return m, nil
	}
	if !m.connected {
		m.notice = ErrorStyle.Render("Not connected to the server!")
		return m, nil
	}

	m.input.Reset()
	m.notice = ""
	m.searching = true
	ctx, session := m.ctx, m.session
	search := func() tea.Msg {
		o, err := session.Search(ctx, name)
		if err != nil {
			o = render.Outcome{Query: name, Status: "failed"}
		}
		return searchDoneMsg{outcome: o, err: err, connected: session.Connected()}
	}
	return m, tea.Batch(search, m.spinner.Tick)
}

func (m ShellModel) connect() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		if session.Connected() {
			return connectionMsg{action: "connect", err: fmt.Errorf("already connected"), connected: true}
		}
		err := session.Connect(ctx)
		return connectionMsg{action: "connect", err: err, connected: session.Connected()}
	}
}

func (m ShellModel) disconnect() tea.Cmd {
	session := m.session
	return func() tea.Msg {
		if !session.Connected() {
			return connectionMsg{action: "disconnect", err: fmt.Errorf("not connected")}
		}
		err := session.Disconnect()
		return connectionMsg{action: "disconnect", err: err, connected: session.Connected()}
	}
}

func (m *ShellModel) record(msg searchDoneMsg) {
	e := entry{
		query:   msg.outcome.Query,
		status:  msg.outcome.Status,
		elapsed: msg.outcome.ElapsedMS,
	}
	switch {
	case msg.err != nil:
		e.text = msg.err.Error()
	case len(msg.outcome.Matches) > 0:
		var b strings.Builder
		for _, match := range msg.outcome.Matches {
			fmt.Fprintf(&b, "%s featured in\n    %s\n", match.Name, match.Films)
		}
		e.text = strings.TrimRight(b.String(), "\n")
	default:
		e.text = msg.outcome.Error
	}

	m.history = append(m.history, e)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
}

// View implements tea.Model.
func (m ShellModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("holonet shell"))
	b.WriteString("  ")
	if m.connected {
		b.WriteString(SuccessStyle.Render("● connected"))
	} else {
		b.WriteString(ErrorStyle.Render("○ disconnected"))
	}
	b.WriteString("\n\n")

	for _, e := range m.history {
		header := fmt.Sprintf("%s  %s  %dms", e.query, StatusStyle(e.status).Render(e.status), e.elapsed)
		b.WriteString(EntryStyle.Render(header + "\n" + e.text))
		b.WriteString("\n")
	}

	if m.searching {
		b.WriteString(m.spinner.View() + " searching...\n")
	}
	if m.notice != "" {
		b.WriteString(m.notice + "\n")
	}
	b.WriteString(m.input.View())

	help := []string{
		keys.Submit.Help().Key + " " + keys.Submit.Help().Desc,
		keys.Connect.Help().Key + " " + keys.Connect.Help().Desc,
		keys.Disconnect.Help().Key + " " + keys.Disconnect.Help().Desc,
		keys.Quit.Help().Key + " " + keys.Quit.Help().Desc,
	}
	b.WriteString("\n" + HelpStyle.Render(strings.Join(help, " • ")))
	return b.String()
}

// RunShell runs the shell until the user quits.
func RunShell(ctx context.Context, session Session) error {
	p := tea.NewProgram(NewShellModel(ctx, session), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
