// internal/moderation/filter.go
// Outbound reply filter for the bot.
// Keeps generated text from posting links, spam, or chat commands.
package moderation

import (
	"regexp"
	"strings"
)

const (
	// MaxMessageLen is the largest reply the bot will post. Twitch
	// truncates chat messages at 500 characters; stay under it.
	MaxMessageLen = 450
)

// BlockedPatterns are patterns that disqualify a generated reply.
var BlockedPatterns = []string{
	// Links. Bots posting URLs get channels flagged for spam.
	`(?i)https?://`,
	`(?i)www\.[a-z0-9-]+\.[a-z]{2,}`,
	`(?i)[a-z0-9-]+\.(com|net|org|tv|gg)(/|\s|$)`,

	// Caps walls
	`[A-Z]{25,}`,
}

// maxCharRun is the longest allowed run of one repeated character.
const maxCharRun = 15

var blockedRegexes []*regexp.Regexp

func init() {
	blockedRegexes = make([]*regexp.Regexp, len(BlockedPatterns))
	for i, pattern := range BlockedPatterns {
		blockedRegexes[i] = regexp.MustCompile(pattern)
	}
}

// Filter screens outbound bot replies before they reach the channel.
type Filter struct {
	enabled bool
	maxLen  int
}

// New creates a Filter with the default message limit.
func New() *Filter {
	return &Filter{
		enabled: true,
		maxLen:  MaxMessageLen,
	}
}

// SetEnabled enables or disables filtering.
func (f *Filter) SetEnabled(enabled bool) {
	f.enabled = enabled
}

// IsEnabled returns whether filtering is active.
func (f *Filter) IsEnabled() bool {
	return f.enabled
}

// Review returns the blocked patterns the text matches.
func (f *Filter) Review(text string) []string {
	var matches []string
	seen := make(map[string]bool)

	for i, re := range blockedRegexes {
		if re.MatchString(text) {
			pattern := BlockedPatterns[i]
			if !seen[pattern] {
				matches = append(matches, pattern)
				seen[pattern] = true
			}
		}
	}

	if hasLongRun(text, maxCharRun) {
		matches = append(matches, "repeated characters")
	}

	return matches
}

// hasLongRun reports whether any rune repeats more than limit times
// in a row.
func hasLongRun(text string, limit int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev {
			run++
			if run > limit {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}

// Sanitize prepares a generated reply for the channel. It strips
// leading command characters, enforces the length limit, and rejects
// text matching a blocked pattern. Returns the cleaned text and a
// reason when the reply is rejected.
func (f *Filter) Sanitize(text string) (string, string) {
	text = strings.TrimSpace(text)
	if !f.enabled {
		return text, ""
	}

	// A reply starting with "/" or "." would execute as a chat
	// command, not print as a message.
	for strings.HasPrefix(text, "/") || strings.HasPrefix(text, ".") {
		text = strings.TrimSpace(strings.TrimLeft(text, "/."))
	}
	if text == "" {
		return "", "reply was only command characters"
	}

	if matches := f.Review(text); len(matches) > 0 {
		return "", "blocked pattern: " + strings.Join(matches, ", ")
	}

	if len(text) > f.maxLen {
		text = truncateAtWord(text, f.maxLen)
	}

	return text, ""
}

// truncateAtWord cuts text to at most limit bytes, preferring a word
// boundary near the end.
func truncateAtWord(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndex(cut, " "); idx > limit/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "…"
}
