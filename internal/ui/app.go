// internal/ui/app.go
package ui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gembot/internal/commands"
	"gembot/internal/config"
	"gembot/internal/db"
	"gembot/internal/export"
	"gembot/internal/irc"
	"gembot/internal/orchestrator"
)

// notifyMsg signals that the chat history changed.
type notifyMsg struct{}

// askResultMsg carries a private AI answer back to the UI.
type askResultMsg struct {
	answer string
	err    error
}

// rephraseDoneMsg reports the outcome of a /rephrase command.
type rephraseDoneMsg struct {
	err error
}

// exportDoneMsg reports the outcome of a transcript export.
type exportDoneMsg struct {
	path string
	err  error
}

// Model is the root bubbletea model.
type Model struct {
	mgr   *irc.Manager
	orch  *orchestrator.Orchestrator
	store *db.Store
	cfg   *config.Config

	input     textinput.Model
	chatView  *ChatView
	history   *HistoryState
	mode      ViewMode
	sessionID string
	startedAt time.Time
	exportDir string

	width, height int
	ready         bool
}

// New builds the root model. store may be nil when persistence is
// unavailable.
func New(mgr *irc.Manager, orch *orchestrator.Orchestrator, store *db.Store, cfg *config.Config, exportDir string) Model {
	input := textinput.New()
	input.Placeholder = "Type a message or /help"
	input.CharLimit = 500
	input.Focus()

	return Model{
		mgr:       mgr,
		orch:      orch,
		store:     store,
		cfg:       cfg,
		input:     input,
		history:   NewHistoryState(),
		exportDir: exportDir,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForNotify(m.mgr.Updates()))
}

// waitForNotify blocks until the connection manager signals a history
// change, then wakes the UI for a redraw.
func waitForNotify(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return notifyMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.history.SetMaxHeight(msg.Height)
		m.input.Width = msg.Width - 4

		chatHeight := msg.Height - 4
		if chatHeight < 1 {
			chatHeight = 1
		}
		if m.chatView == nil {
			m.chatView = NewChatView(msg.Width, chatHeight)
		} else {
			m.chatView.Viewport.Width = msg.Width
			m.chatView.Viewport.Height = chatHeight
		}
		m.chatView.SetMessages(m.mgr.History().All())
		m.ready = true
		return m, nil

	case notifyMsg:
		if m.chatView != nil {
			m.chatView.SetMessages(m.mgr.History().All())
		}
		return m, waitForNotify(m.mgr.Updates())

	case askResultMsg:
		if msg.err != nil {
			m.mgr.AppendSystem("Ask failed: " + msg.err.Error())
		} else {
			m.mgr.AppendSystem("AI: " + msg.answer)
		}
		return m, nil

	case rephraseDoneMsg:
		if msg.err != nil {
			m.mgr.AppendSystem("Rephrase failed: " + msg.err.Error())
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.mgr.AppendSystem("Export failed: " + msg.err.Error())
		} else {
			m.mgr.AppendSystem("Transcript exported to " + msg.path)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ViewHelp:
		switch msg.String() {
		case "esc", "f1", "q":
			m.mode = ViewNormal
		case "ctrl+c":
			return m.quit()
		}
		return m, nil

	case ViewHistory:
		switch msg.String() {
		case "up", "k":
			m.history.Up()
		case "down", "j":
			m.history.Down()
		case "enter":
			if sel := m.history.Selected(); sel != nil {
				m.mode = ViewNormal
				return m, exportSessionCmd(m.store, sel.ID, m.mgr.Username(), m.exportDir)
			}
		case "esc":
			m.mode = ViewNormal
		case "ctrl+c":
			return m.quit()
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "f1":
		m.mode = ViewHelp
		return m, nil
	case "alt+h":
		if err := m.history.LoadSessions(m.store); err != nil {
			m.mgr.AppendSystem("History unavailable: " + err.Error())
			return m, nil
		}
		m.mode = ViewHistory
		return m, nil
	case "pgup", "pgdown":
		if m.chatView != nil {
			var cmd tea.Cmd
			m.chatView.Viewport, cmd = m.chatView.Viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	case "enter":
		text := m.input.Value()
		m.input.Reset()
		return m.handleSubmit(text)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSubmit(text string) (tea.Model, tea.Cmd) {
	cmd := commands.Parse(text)
	if cmd == nil {
		if text == "" {
			return m, nil
		}
		m.mgr.Send(text)
		return m, nil
	}

	switch c := cmd.(type) {
	case commands.Help:
		m.mode = ViewHelp

	case commands.Connect:
		channel := c.Channel
		if channel == "" {
			channel = m.cfg.Twitch.Channel
		}
		if channel == "" {
			m.mgr.AppendSystem("No channel configured. Use /connect <channel> or set twitch.channel in " + config.ConfigPath())
			return m, nil
		}
		m.mgr.Connect(context.Background(), irc.Credentials{
			Channel:  channel,
			Username: m.cfg.Twitch.Username,
			OAuth:    m.cfg.Twitch.OAuth,
		})
		m.startedAt = time.Now()
		if m.store != nil {
			id, err := m.store.CreateSession(channel)
			if err != nil {
				m.mgr.AppendSystem("Transcript recording unavailable: " + err.Error())
			} else {
				m.sessionID = id
				m.orch.SetRecorder(m.store, id)
			}
		}

	case commands.Disconnect:
		// The manager's own teardown is silent for manual disconnects,
		// so announce here, but only when there was a session to end.
		announce := m.mgr.Status() != irc.Disconnected
		m.mgr.Disconnect()
		m.endSession()
		if announce {
			m.mgr.AppendSystem("Disconnected.")
		}

	case commands.Say:
		m.mgr.Send(c.Text)

	case commands.Ask:
		m.mgr.AppendSystem("You asked: " + c.Prompt)
		return m, askCmd(m.orch, c.Prompt)

	case commands.Rephrase:
		return m, rephraseCmd(m.orch, c.Text)

	case commands.SetFrequency:
		m.orch.SetFrequency(c.Value)
		m.mgr.AppendSystem(fmt.Sprintf("Response frequency set to %.0f%%.", c.Value*100))

	case commands.Export:
		return m, m.exportCurrent()

	case commands.Quit:
		return m.quit()

	case commands.ParseError:
		m.mgr.AppendSystem(c.Message)
	}

	return m, nil
}

// exportCurrent exports the active session from the store when
// recording is on, falling back to the in-memory history.
func (m Model) exportCurrent() tea.Cmd {
	if m.store != nil && m.sessionID != "" {
		return exportSessionCmd(m.store, m.sessionID, m.mgr.Username(), m.exportDir)
	}

	tr := &export.Transcript{
		Channel:   m.mgr.Channel(),
		BotName:   m.mgr.Username(),
		StartedAt: m.startedAt,
		Messages:  m.mgr.History().All(),
	}
	if tr.StartedAt.IsZero() {
		tr.StartedAt = time.Now()
	}
	dir := m.exportDir
	return func() tea.Msg {
		path, err := export.WriteTranscript(tr, dir)
		return exportDoneMsg{path: path, err: err}
	}
}

func (m *Model) endSession() {
	if m.store != nil && m.sessionID != "" {
		m.store.EndSession(m.sessionID)
		m.orch.SetRecorder(nil, "")
		m.sessionID = ""
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.mgr.Disconnect()
	m.endSession()
	return m, tea.Quit
}

func askCmd(orch *orchestrator.Orchestrator, prompt string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		answer, err := orch.DirectAsk(ctx, prompt)
		return askResultMsg{answer: answer, err: err}
	}
}

func rephraseCmd(orch *orchestrator.Orchestrator, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		return rephraseDoneMsg{err: orch.RephraseAndSend(ctx, text)}
	}
}

func exportSessionCmd(store *db.Store, sessionID, botName, dir string) tea.Cmd {
	return func() tea.Msg {
		path, err := ExportSession(store, sessionID, botName, dir)
		return exportDoneMsg{path: path, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.mode {
	case ViewHelp:
		return m.renderHelp()
	case ViewHistory:
		return m.history.Render(m.width, m.height)
	}

	title := TitleStyle.Render("gembot") + DimStyle.Render("  -  Twitch AI chat bot  (F1 for help)")
	statusBar := RenderStatusBar(m.mgr.Status(), m.mgr.Channel(), m.mgr.Username(), m.orch.Frequency(), m.width)

	var chatArea string
	if m.chatView != nil {
		chatArea = m.chatView.Viewport.View()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		title,
		statusBar,
		chatArea,
		m.input.View(),
	)
}
