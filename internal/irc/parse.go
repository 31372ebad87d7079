// internal/irc/parse.go
// Decodes raw Twitch IRC lines into typed events. Parsing stays regex
// based but everything past this file only sees *Line values.
package irc

import (
	"regexp"
	"strings"
)

// Commands recognized by the decoder. Anything else is ignored.
const (
	CmdPing    = "PING"
	CmdWelcome = "001"
	CmdNotice  = "NOTICE"
	CmdPrivmsg = "PRIVMSG"
)

// Line is one decoded wire line.
type Line struct {
	Command string
	Channel string
	User    string
	Text    string
	Color   string
}

var (
	userRe  = regexp.MustCompile(`:(.*?)!`)
	colorRe = regexp.MustCompile(`color=(.*?);`)
)

// ParseLine decodes a single raw IRC line. Returns nil for anything the
// client does not care about; malformed lines are not an error.
func ParseLine(raw string) *Line {
	parts := strings.Split(raw, " ")

	if parts[0] == CmdPing {
		return &Line{Command: CmdPing}
	}

	// The handshake requests twitch.tv/tags, so PRIVMSG and NOTICE
	// lines usually lead with an @key=value;... token before the
	// :name! prefix. Peel it off so the command lands at parts[1].
	tags := ""
	if strings.HasPrefix(parts[0], "@") {
		tags = parts[0]
		parts = parts[1:]
	}

	if len(parts) < 2 {
		return nil
	}

	switch parts[1] {
	case CmdWelcome:
		// Welcome numeric, the authentication handshake succeeded.
		return &Line{Command: CmdWelcome}

	case CmdNotice:
		return &Line{Command: CmdNotice, Text: trailing(parts, 3)}

	case CmdPrivmsg:
		user := ""
		if m := userRe.FindStringSubmatch(parts[0]); m != nil {
			user = m[1]
		}
		channel := ""
		if len(parts) > 2 {
			channel = strings.TrimPrefix(parts[2], "#")
		}
		color := "#FFFFFF"
		if m := colorRe.FindStringSubmatch(tags); m != nil && m[1] != "" {
			color = m[1]
		}
		return &Line{
			Command: CmdPrivmsg,
			Channel: channel,
			User:    user,
			Text:    trailing(parts, 3),
			Color:   color,
		}
	}

	return nil
}

// trailing joins parts[from:] back together and strips the leading ":"
// that marks an IRC trailing parameter.
func trailing(parts []string, from int) string {
	if len(parts) <= from {
		return ""
	}
	text := strings.Join(parts[from:], " ")
	return strings.TrimPrefix(text, ":")
}

// SplitLines splits one transport delivery into individual wire lines.
// Twitch batches multiple lines per websocket frame.
func SplitLines(payload string) []string {
	var lines []string
	for _, line := range strings.Split(payload, "\r\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// IsFatalAuthNotice reports whether a NOTICE text signals a failed login.
// Twitch only reveals bad credentials through this notice, after connect.
func IsFatalAuthNotice(text string) bool {
	return strings.Contains(strings.ToLower(text), "login authentication failed")
}
