// internal/export/markdown.go
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gembot/internal/chat"
)

// Transcript contains the data needed to export a chat session
type Transcript struct {
	SessionID string
	Channel   string
	BotName   string
	StartedAt time.Time
	Messages  []chat.Message
}

// RenderTranscript generates a formatted markdown string from a session
func RenderTranscript(tr *Transcript) string {
	var sb strings.Builder

	// Title header
	sb.WriteString("# Chat Transcript: #")
	sb.WriteString(tr.Channel)
	sb.WriteString("\n\n")

	// Metadata section
	sb.WriteString("---\n\n")
	if tr.SessionID != "" {
		sb.WriteString(fmt.Sprintf("**Session ID:** `%s`\n\n", tr.SessionID))
	}
	sb.WriteString(fmt.Sprintf("**Started:** %s\n\n", tr.StartedAt.Format("2006-01-02 15:04:05")))
	if tr.BotName != "" {
		sb.WriteString(fmt.Sprintf("**Bot:** %s\n\n", tr.BotName))
	}

	sb.WriteString("---\n\n")

	// Messages section
	sb.WriteString("## Messages\n\n")

	for _, msg := range tr.Messages {
		name := msg.User
		switch {
		case msg.IsSystem():
			name = "System"
		case msg.IsBot:
			name = name + " (bot)"
		}

		if msg.Timestamp != "" {
			sb.WriteString(fmt.Sprintf("**[%s] %s:** %s\n\n", msg.Timestamp, name, msg.Text))
		} else {
			sb.WriteString(fmt.Sprintf("**%s:** %s\n\n", name, msg.Text))
		}
	}

	// Footer
	sb.WriteString("---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from gembot on %s*\n", time.Now().Format("2006-01-02 15:04:05")))

	return sb.String()
}

// WriteTranscript exports a session to a markdown file in the transcripts directory
func WriteTranscript(tr *Transcript, baseDir string) (string, error) {
	// Generate filename: YYYY-MM-DD-channel.md
	datePart := tr.StartedAt.Format("2006-01-02")
	namePart := sanitizeFilename(tr.Channel)
	filename := fmt.Sprintf("%s-%s.md", datePart, namePart)

	transcriptsDir := filepath.Join(baseDir, "transcripts")
	if err := os.MkdirAll(transcriptsDir, 0755); err != nil {
		return "", fmt.Errorf("create transcripts directory: %w", err)
	}

	path := filepath.Join(transcriptsDir, filename)

	content := RenderTranscript(tr)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	return path, nil
}

// sanitizeFilename removes/replaces characters unsuitable for filenames
func sanitizeFilename(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			sb.WriteRune(r)
		case r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '-' || r == '_':
			sb.WriteRune(r)
		}
	}

	result := sb.String()

	// Collapse multiple hyphens
	for strings.Contains(result, "--") {
		result = strings.ReplaceAll(result, "--", "-")
	}

	result = strings.Trim(result, "-")

	if result == "" {
		result = "chat"
	}

	if len(result) > 50 {
		result = result[:50]
	}

	return result
}
