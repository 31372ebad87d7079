// internal/ui/chatview.go
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"gembot/internal/chat"
	"gembot/internal/irc"
)

// RenderMessages formats chat history entries for display.
func RenderMessages(messages []chat.Message, width int) string {
	var sb strings.Builder

	for _, msg := range messages {
		var line string
		switch {
		case msg.IsSystem():
			line = SystemStyle.Render(fmt.Sprintf("[%s] * %s", msg.Timestamp, msg.Text))
		case msg.IsBot:
			header := BotStyle.Render(fmt.Sprintf("[%s] %s:", msg.Timestamp, msg.User))
			line = header + " " + msg.Text
		default:
			header := UserStyle(msg.Color).Render(fmt.Sprintf("[%s] %s:", msg.Timestamp, msg.User))
			line = header + " " + msg.Text
		}

		if width > 0 {
			line = lipgloss.NewStyle().Width(width).Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}

// StatusIndicator renders the colored dot for a connection status.
func StatusIndicator(status irc.Status) string {
	switch status {
	case irc.Connected:
		return StatusOK.Render("●")
	case irc.Connecting:
		return StatusWarn.Render("●")
	case irc.ConnectionError:
		return StatusCrit.Render("✗")
	default: // Disconnected
		return DimStyle.Render("○")
	}
}

// RenderStatusBar renders the one-line connection summary above the input.
func RenderStatusBar(status irc.Status, channel, botName string, freq float64, width int) string {
	var sb strings.Builder

	sb.WriteString(StatusIndicator(status))
	sb.WriteString(" ")
	sb.WriteString(status.String())

	if channel != "" && (status == irc.Connected || status == irc.Connecting) {
		sb.WriteString(" ")
		sb.WriteString(TitleStyle.Render("#" + channel))
	}

	sb.WriteString(DimStyle.Render(fmt.Sprintf("  |  bot: %s  |  freq: %.0f%%", botName, freq*100)))

	line := sb.String()
	if width > 0 {
		line = lipgloss.NewStyle().Width(width).Render(line)
	}
	return line
}

// ChatView wraps the message log with a viewport for scrolling.
type ChatView struct {
	Viewport viewport.Model
}

func NewChatView(width, height int) *ChatView {
	vp := viewport.New(width, height)
	vp.Style = lipgloss.NewStyle()
	vp.MouseWheelEnabled = true

	return &ChatView{Viewport: vp}
}

// SetMessages refreshes the viewport content and pins it to the bottom.
func (v *ChatView) SetMessages(messages []chat.Message) {
	content := RenderMessages(messages, v.Viewport.Width)
	v.Viewport.SetContent(content)
	v.Viewport.GotoBottom()
}
