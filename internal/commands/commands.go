// Package commands handles slash command parsing for the gembot TUI.
package commands

import (
	"strconv"
	"strings"
)

// Command interface for all command types
type Command interface {
	Type() string
}

// Help returns help text
type Help struct{}

func (Help) Type() string { return "help" }

// Connect joins a Twitch channel
type Connect struct {
	Channel string
}

func (Connect) Type() string { return "connect" }

// Disconnect leaves the current channel
type Disconnect struct{}

func (Disconnect) Type() string { return "disconnect" }

// Say sends a plain message to the channel
type Say struct {
	Text string
}

func (Say) Type() string { return "say" }

// Ask queries the AI directly without posting to chat
type Ask struct {
	Prompt string
}

func (Ask) Type() string { return "ask" }

// Rephrase rewrites a message in the bot's voice and sends it
type Rephrase struct {
	Text string
}

func (Rephrase) Type() string { return "rephrase" }

// SetFrequency changes the random response rate
type SetFrequency struct {
	Value float64
}

func (SetFrequency) Type() string { return "freq" }

// Export writes the current transcript to a file
type Export struct{}

func (Export) Type() string { return "export" }

// Quit exits the application
type Quit struct{}

func (Quit) Type() string { return "quit" }

// ParseError represents a command parsing error
type ParseError struct {
	Message string
}

func (ParseError) Type() string { return "error" }

// Parse parses user input and returns the appropriate Command.
// Returns nil if the input is not a slash command.
func Parse(input string) Command {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return nil
	}

	// Split into command and arguments
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "/help":
		return Help{}

	case "/connect", "/join":
		channel := ""
		if len(args) > 0 {
			channel = strings.TrimPrefix(args[0], "#")
		}
		return Connect{Channel: channel}

	case "/disconnect", "/leave":
		return Disconnect{}

	case "/say":
		text := strings.Join(args, " ")
		if text == "" {
			return ParseError{Message: "/say requires a message"}
		}
		return Say{Text: text}

	case "/ask":
		prompt := strings.Join(args, " ")
		if prompt == "" {
			return ParseError{Message: "/ask requires a prompt"}
		}
		return Ask{Prompt: prompt}

	case "/rephrase":
		text := strings.Join(args, " ")
		if text == "" {
			return ParseError{Message: "/rephrase requires a message"}
		}
		return Rephrase{Text: text}

	case "/freq":
		if len(args) == 0 {
			return ParseError{Message: "/freq requires a value between 0 and 1"}
		}
		v, err := strconv.ParseFloat(args[0], 64)
		if err != nil || v < 0 || v > 1 {
			return ParseError{Message: "/freq requires a value between 0 and 1"}
		}
		return SetFrequency{Value: v}

	case "/export":
		return Export{}

	case "/quit", "/exit":
		return Quit{}

	default:
		return ParseError{Message: "unknown command: " + cmd}
	}
}

// HelpText returns the help text for all available commands.
func HelpText() string {
	return `Available commands:
  /help               - Show this help
  /connect [channel]  - Connect to a Twitch channel (default from config)
  /disconnect         - Leave the current channel
  /say <message>      - Send a message to the channel as-is
  /ask <prompt>       - Ask the AI privately (not posted to chat)
  /rephrase <message> - Rewrite a message in the bot's voice and send it
  /freq <0..1>        - Set the random response frequency
  /export             - Export the current transcript to Markdown
  /quit               - Exit`
}
