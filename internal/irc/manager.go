// internal/irc/manager.go
// Connection manager for Twitch chat. Owns the websocket lifecycle,
// the connection status, and the shared message history. At most one
// live transport exists per manager; reconnection is caller-initiated.
package irc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"gembot/internal/chat"
)

// Endpoint is the Twitch IRC websocket gateway.
const Endpoint = "wss://irc-ws.chat.twitch.tv:443"

// pongLine is the fixed heartbeat reply. Twitch disconnects clients
// that do not answer PING promptly.
const pongLine = "PONG :tmi.twitch.tv"

// Status is the connection state visible to the UI and the orchestrator.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
	ConnectionError
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case ConnectionError:
		return "error"
	default:
		return "unknown"
	}
}

// Credentials are the settings needed to join a channel.
type Credentials struct {
	Channel  string
	Username string
	OAuth    string // access token, with or without the "oauth:" prefix
}

// ErrNotConnected is returned by Send when there is no usable transport.
var ErrNotConnected = errors.New("not connected to chat")

// transport abstracts the websocket so the state machine is testable.
type transport interface {
	ReadMessage(ctx context.Context) (string, error)
	WriteLine(ctx context.Context, line string) error
	Close() error
}

type wsTransport struct {
	conn *websocket.Conn
}

func dialTwitch(ctx context.Context) (transport, error) {
	conn, _, err := websocket.Dial(ctx, Endpoint, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(1 << 20)
	return &wsTransport{conn: conn}, nil
}

func (t *wsTransport) ReadMessage(ctx context.Context) (string, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (t *wsTransport) WriteLine(ctx context.Context, line string) error {
	return t.conn.Write(ctx, websocket.MessageText, []byte(line))
}

func (t *wsTransport) Close() error {
	return t.conn.Close(websocket.StatusNormalClosure, "client disconnect")
}

// isCleanClose distinguishes an orderly shutdown from a genuine failure.
func isCleanClose(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return true
	}
	return websocket.CloseStatus(err) == websocket.StatusNormalClosure
}

// Manager is the chat connection state machine. All mutation happens
// under mu; the reader goroutine verifies it still owns the current
// transport before touching shared state, so a stale reader from a
// previous session can never clobber a newer one.
type Manager struct {
	mu     sync.Mutex
	status Status
	conn   transport
	creds  Credentials

	history *chat.History
	events  chan chat.Message
	notify  chan struct{}

	dial func(ctx context.Context) (transport, error)
}

// NewManager creates a disconnected manager with an empty history.
func NewManager() *Manager {
	return &Manager{
		history: chat.NewHistory(),
		events:  make(chan chat.Message, 256),
		notify:  make(chan struct{}, 1),
		dial:    dialTwitch,
	}
}

// History exposes the shared message log. Readers get copies.
func (m *Manager) History() *chat.History {
	return m.history
}

// Events delivers every appended message, in append order. The
// orchestrator consumes this channel one message at a time.
func (m *Manager) Events() <-chan chat.Message {
	return m.events
}

// Updates is a coalescing redraw signal for the UI.
func (m *Manager) Updates() <-chan struct{} {
	return m.notify
}

// Status returns the current connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Channel returns the channel of the last connection attempt.
func (m *Manager) Channel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.Channel
}

// Username returns the bot identity of the last connection attempt.
func (m *Manager) Username() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creds.Username
}

// Connect starts a new chat session. No-op while a session is already
// connecting or connected; otherwise any previous transport is torn
// down first, the history is cleared, and the handshake runs in the
// background. Authentication failures surface later via NOTICE.
func (m *Manager) Connect(ctx context.Context, creds Credentials) {
	m.mu.Lock()
	if m.status == Connecting || m.status == Connected {
		m.mu.Unlock()
		return
	}
	old := m.conn
	m.conn = nil
	m.creds = creds
	m.status = Connecting
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}

	m.history.Clear()
	m.appendSystem(fmt.Sprintf("Connecting to #%s...", creds.Channel))

	go m.run(ctx, creds)
}

func (m *Manager) run(ctx context.Context, creds Credentials) {
	tr, err := m.dial(ctx)
	if err != nil {
		log.Printf("[irc] dial failed: %v", err)
		m.mu.Lock()
		failed := m.status == Connecting
		if failed {
			m.status = ConnectionError
		}
		m.mu.Unlock()
		if failed {
			m.appendSystem("Connection error. Check network and credentials.")
		}
		return
	}

	m.mu.Lock()
	if m.status != Connecting {
		// Disconnected while dialing; drop the fresh transport.
		m.mu.Unlock()
		tr.Close()
		return
	}
	m.conn = tr
	m.mu.Unlock()

	token := strings.TrimPrefix(creds.OAuth, "oauth:")
	handshake := []string{
		"CAP REQ :twitch.tv/membership twitch.tv/tags twitch.tv/commands",
		"PASS oauth:" + token,
		"NICK " + creds.Username,
		"JOIN #" + creds.Channel,
	}
	for _, line := range handshake {
		if err := tr.WriteLine(ctx, line); err != nil {
			m.readerExit(tr, err)
			return
		}
	}

	for {
		payload, err := tr.ReadMessage(ctx)
		if err != nil {
			m.readerExit(tr, err)
			return
		}
		for _, raw := range SplitLines(payload) {
			m.handleLine(ctx, tr, raw)
		}
	}
}

// handleLine processes one decoded wire line. Each line is fully
// handled, including the synchronous heartbeat reply, before the next
// one is looked at.
func (m *Manager) handleLine(ctx context.Context, tr transport, raw string) {
	line := ParseLine(raw)
	if line == nil {
		return
	}

	switch line.Command {
	case CmdPing:
		if err := tr.WriteLine(ctx, pongLine); err != nil {
			log.Printf("[irc] pong write failed: %v", err)
		}

	case CmdWelcome:
		m.mu.Lock()
		if m.conn != tr {
			m.mu.Unlock()
			return
		}
		m.status = Connected
		channel, nick := m.creds.Channel, m.creds.Username
		m.mu.Unlock()

		m.appendSystem(fmt.Sprintf("Connected to #%s!", channel))
		m.appendSystem(fmt.Sprintf("Tip: for best results, make sure the bot is a moderator in your channel (/mod %s)", nick))

	case CmdNotice:
		m.appendSystem("Twitch Notice: " + line.Text)
		if IsFatalAuthNotice(line.Text) {
			m.mu.Lock()
			owned := m.conn == tr
			if owned {
				m.status = ConnectionError
				m.conn = nil
			}
			m.mu.Unlock()
			if owned {
				tr.Close()
			}
		}

	case CmdPrivmsg:
		color := line.Color
		if color == chat.DefaultColor {
			color = chat.ColorFor(line.User)
		}
		m.append(chat.Message{User: line.User, Text: line.Text, Color: color})
	}
}

// readerExit runs when the reader loop stops. The announcement is
// guarded on the pre-mutation status so a manual disconnect or a
// fatal-notice teardown is never re-announced.
func (m *Manager) readerExit(tr transport, err error) {
	tr.Close()

	m.mu.Lock()
	if m.conn != tr {
		m.mu.Unlock()
		return
	}
	m.conn = nil
	prev := m.status
	if isCleanClose(err) {
		m.status = Disconnected
	} else {
		m.status = ConnectionError
	}
	m.mu.Unlock()

	if prev != Connecting && prev != Connected {
		return
	}
	if isCleanClose(err) {
		m.appendSystem("Disconnected from Twitch chat.")
	} else {
		log.Printf("[irc] transport error: %v", err)
		m.appendSystem("Connection error. Check credentials and network.")
	}
}

// Disconnect tears down any live transport. Idempotent; appends no
// message, and a second call when already disconnected does nothing.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	changed := m.status != Disconnected
	m.status = Disconnected
	m.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if changed {
		m.notifyUI()
	}
}

// Send writes one outbound chat line and echoes it locally as a bot
// message. Valid only while connected with a live transport; the
// status can briefly claim connected after an abrupt network drop, so
// a missing transport fails safely instead of panicking.
func (m *Manager) Send(text string) error {
	m.mu.Lock()
	status := m.status
	conn := m.conn
	creds := m.creds
	m.mu.Unlock()

	if status != Connected || conn == nil {
		m.appendSystem("Cannot send: not connected to chat.")
		return ErrNotConnected
	}

	text = sanitizeOutbound(text)
	if text == "" {
		return nil
	}

	if err := conn.WriteLine(context.Background(), fmt.Sprintf("PRIVMSG #%s :%s", creds.Channel, text)); err != nil {
		m.appendSystem("Cannot send: connection lost.")
		return fmt.Errorf("send: %w", err)
	}

	m.append(chat.Message{User: creds.Username, Text: text, IsBot: true})
	return nil
}

// AppendSystem surfaces a locally generated notice in the chat log.
func (m *Manager) AppendSystem(text string) {
	m.appendSystem(text)
}

func (m *Manager) appendSystem(text string) {
	m.append(chat.Message{User: chat.SystemUser, Text: text, IsBot: true})
}

func (m *Manager) append(msg chat.Message) {
	stamped := m.history.Append(msg)
	select {
	case m.events <- stamped:
	default:
		log.Printf("[irc] event buffer full, dropping event from %s", msg.User)
	}
	m.notifyUI()
}

func (m *Manager) notifyUI() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// sanitizeOutbound collapses line breaks to spaces. The wire protocol
// is line-delimited; an embedded newline would corrupt framing.
func sanitizeOutbound(text string) string {
	text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	return strings.TrimSpace(text)
}
