// internal/ui/history.go
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"gembot/internal/chat"
	"gembot/internal/db"
	"gembot/internal/export"
)

// ViewMode represents the current view state
type ViewMode int

const (
	ViewNormal ViewMode = iota
	ViewHelp
	ViewHistory
)

// HistoryState holds the state for the past-session browser
type HistoryState struct {
	sessions  []db.Session
	cursor    int
	scrollTop int
	maxHeight int
}

// NewHistoryState creates a new history state
func NewHistoryState() *HistoryState {
	return &HistoryState{
		maxHeight: 20, // default, will be updated based on terminal size
	}
}

// Up moves the cursor up
func (h *HistoryState) Up() {
	if h.cursor > 0 {
		h.cursor--
		if h.cursor < h.scrollTop {
			h.scrollTop = h.cursor
		}
	}
}

// Down moves the cursor down
func (h *HistoryState) Down() {
	if h.cursor < len(h.sessions)-1 {
		h.cursor++
		if h.cursor >= h.scrollTop+h.maxHeight {
			h.scrollTop = h.cursor - h.maxHeight + 1
		}
	}
}

// Selected returns the currently selected session, or nil if none
func (h *HistoryState) Selected() *db.Session {
	if h.cursor >= 0 && h.cursor < len(h.sessions) {
		return &h.sessions[h.cursor]
	}
	return nil
}

// LoadSessions loads past sessions from the database
func (h *HistoryState) LoadSessions(store *db.Store) error {
	if store == nil {
		return fmt.Errorf("database not available")
	}
	sessions, err := store.ListSessions()
	if err != nil {
		return err
	}
	h.sessions = sessions
	h.cursor = 0
	h.scrollTop = 0
	return nil
}

// SetMaxHeight updates the max visible height
func (h *HistoryState) SetMaxHeight(height int) {
	h.maxHeight = height - 10 // Leave room for header/footer
	if h.maxHeight < 5 {
		h.maxHeight = 5
	}
}

// Render renders the session browser overlay
func (h *HistoryState) Render(width, height int) string {
	var content strings.Builder

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Render("PAST SESSIONS")
	content.WriteString(title)
	content.WriteString("\n")
	content.WriteString(DimStyle.Render("Select a session to export its transcript"))
	content.WriteString("\n\n")

	if len(h.sessions) == 0 {
		content.WriteString(DimStyle.Render("No past sessions found."))
		content.WriteString("\n\n")
		content.WriteString(DimStyle.Render("Connect to a channel and the session will appear here."))
	} else {
		visibleEnd := h.scrollTop + h.maxHeight
		if visibleEnd > len(h.sessions) {
			visibleEnd = len(h.sessions)
		}

		// Header row
		header := fmt.Sprintf("  %-8s  %-20s  %-19s  %s",
			"ID", "Channel", "Started", "Status")
		content.WriteString(DimStyle.Render(header))
		content.WriteString("\n")
		content.WriteString(DimStyle.Render(strings.Repeat("-", 62)))
		content.WriteString("\n")

		for i := h.scrollTop; i < visibleEnd; i++ {
			s := h.sessions[i]

			channel := "#" + s.Channel
			if len(channel) > 18 {
				channel = channel[:18] + ".."
			}

			timeStr := s.StartedAt.Format("2006-01-02 15:04")
			if time.Since(s.StartedAt) < 24*time.Hour {
				timeStr = s.StartedAt.Format("Today 15:04")
			}

			status := "ended"
			statusStyle := DimStyle
			if s.EndedAt.IsZero() {
				status = "open"
				statusStyle = StatusOK
			}

			cursor := "  "
			lineStyle := DimStyle
			if i == h.cursor {
				cursor = "> "
				lineStyle = lipgloss.NewStyle().Foreground(Cyan)
			}

			line := fmt.Sprintf("%-8s  %-20s  %-19s  ",
				s.ID[:8], channel, timeStr)

			content.WriteString(cursor)
			content.WriteString(lineStyle.Render(line))
			content.WriteString(statusStyle.Render(status))
			content.WriteString("\n")
		}

		if len(h.sessions) > h.maxHeight {
			scrollInfo := fmt.Sprintf("Showing %d-%d of %d",
				h.scrollTop+1, visibleEnd, len(h.sessions))
			content.WriteString("\n")
			content.WriteString(DimStyle.Render(scrollInfo))
		}
	}

	content.WriteString("\n\n")
	footer := DimStyle.Render("Up/Down: Navigate | Enter: Export | Esc: Cancel")
	content.WriteString(footer)

	overlayStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Cyan).
		Padding(1, 2).
		MaxWidth(width - 10).
		MaxHeight(height - 4)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlayStyle.Render(content.String()),
	)
}

// ExportSession writes a stored session's transcript to a markdown file
// under baseDir and returns the written path.
func ExportSession(store *db.Store, sessionID, botName, baseDir string) (string, error) {
	if store == nil {
		return "", fmt.Errorf("database not available")
	}

	sess, err := store.GetSession(sessionID)
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}

	messages, err := store.GetMessages(sessionID)
	if err != nil {
		return "", fmt.Errorf("get messages: %w", err)
	}

	tr := &export.Transcript{
		SessionID: sess.ID,
		Channel:   sess.Channel,
		BotName:   botName,
		StartedAt: sess.StartedAt,
	}
	for _, msg := range messages {
		tr.Messages = append(tr.Messages, chat.Message{
			User:      msg.Author,
			Text:      msg.Content,
			IsBot:     msg.IsBot,
			Timestamp: msg.CreatedAt.Format("15:04"),
		})
	}

	return export.WriteTranscript(tr, baseDir)
}
