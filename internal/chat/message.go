// internal/chat/message.go
package chat

// SystemUser is the author attached to status and error notices.
const SystemUser = "System"

// DefaultColor is the sentinel Twitch sends when a chatter never picked
// a color. Messages carrying it get re-colored via ColorFor.
const DefaultColor = "#FFFFFF"

// Message is one normalized chat entry. Immutable once appended to a History.
type Message struct {
	User      string
	Text      string
	IsBot     bool
	Color     string
	Timestamp string
}

// IsSystem reports whether the message is a locally generated notice.
func (m Message) IsSystem() bool {
	return m.User == SystemUser
}
