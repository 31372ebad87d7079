// internal/orchestrator/orchestrator.go
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"gembot/internal/chat"
	"gembot/internal/gemini"
	"gembot/internal/irc"
	"gembot/internal/moderation"
)

const (
	// contextWindow bounds how much history is handed to generation.
	contextWindow = 15

	// commandPrefix explicitly addresses the bot.
	commandPrefix = "!ai"

	// defaultCooldown keeps the guard set after a reply completes, so
	// bursty chat cannot trigger rapid-fire generations.
	defaultCooldown = 3 * time.Second

	helpMessage  = "You can ask me a question after !ai. For example: !ai what is your favorite game?"
	fallbackLine = "I'm not sure how to respond to that."
)

// Generator is the text-generation service boundary.
type Generator interface {
	Reply(ctx context.Context, persona, botName string, turns []gemini.Turn) (string, error)
	Direct(ctx context.Context, persona, botName, prompt string) (string, error)
	Rephrase(ctx context.Context, persona, botName, text string) (string, error)
}

// Chat is the slice of the connection manager the orchestrator needs.
type Chat interface {
	Status() irc.Status
	Send(text string) error
	AppendSystem(text string)
	History() *chat.History
	Events() <-chan chat.Message
}

// Recorder persists chat exchanges. A nil recorder disables persistence.
type Recorder interface {
	SaveMessage(sessionID, author, content string, isBot bool) (int64, error)
}

// Orchestrator decides, per inbound message, whether to produce an
// automated reply, and holds the single-in-flight guard.
type Orchestrator struct {
	mgr     Chat
	gen     Generator
	botName string
	persona string

	rec       Recorder
	sessionID string

	filter    *moderation.Filter
	mentionRe *regexp.Regexp
	randFn    func() float64
	cooldown  time.Duration

	mu         sync.Mutex
	freq       float64
	responding bool
	release    *time.Timer
	closed     bool
}

// New creates an orchestrator bound to a connection manager and a
// generation client.
func New(mgr Chat, gen Generator, botName, persona string, frequency float64) *Orchestrator {
	return &Orchestrator{
		mgr:       mgr,
		gen:       gen,
		botName:   botName,
		persona:   persona,
		freq:      frequency,
		filter:    moderation.New(),
		mentionRe: regexp.MustCompile(`(?i)@` + regexp.QuoteMeta(botName) + `\b`),
		randFn:    rand.Float64,
		cooldown:  defaultCooldown,
	}
}

// SetRecorder attaches a transcript recorder for the given session.
func (o *Orchestrator) SetRecorder(rec Recorder, sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rec = rec
	o.sessionID = sessionID
}

// Frequency returns the current random response rate.
func (o *Orchestrator) Frequency() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.freq
}

// SetFrequency changes the random response rate at runtime.
func (o *Orchestrator) SetFrequency(f float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.freq = f
}

// Run consumes manager events one at a time until the context ends or
// the event channel closes. Each event is fully evaluated before the
// next one is taken; only the generation call itself runs detached,
// protected by the guard.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-o.mgr.Events():
			if !ok {
				return
			}
			o.Handle(ctx, msg)
		}
	}
}

// Handle evaluates one appended chat message against the trigger rules.
func (o *Orchestrator) Handle(ctx context.Context, msg chat.Message) {
	if !msg.IsSystem() {
		o.record(msg.User, msg.Text, msg.IsBot)
	}

	if msg.IsSystem() || msg.IsBot || strings.EqualFold(msg.User, o.botName) {
		return
	}
	if o.mgr.Status() != irc.Connected {
		return
	}

	text := msg.Text
	mentioned := o.mentionRe.MatchString(text)
	command := strings.HasPrefix(strings.ToLower(text), commandPrefix)

	remainder := ""
	if command {
		remainder = strings.TrimSpace(text[len(commandPrefix):])
		if remainder == "" {
			// Bare "!ai": answer with usage help, no generation.
			o.mgr.Send(helpMessage)
			return
		}
	}

	// Sampling is evaluated only after mention and command both miss.
	// A mention never counts toward sampling.
	if !mentioned && !command {
		if freq := o.Frequency(); freq <= 0 || o.randFn() >= freq {
			return
		}
	}

	o.mu.Lock()
	if o.responding || o.closed {
		o.mu.Unlock()
		return
	}
	o.responding = true
	o.mu.Unlock()

	entries := o.mgr.History().Last(contextWindow)
	if command && len(entries) > 0 {
		// The command form hands only the post-prefix text to generation.
		last := &entries[len(entries)-1]
		if last.User == msg.User && last.Text == msg.Text {
			last.Text = remainder
		}
	}

	go o.respond(ctx, entries)
}

func (o *Orchestrator) respond(ctx context.Context, entries []chat.Message) {
	defer o.scheduleRelease()

	turns := BuildTurns(entries, o.botName)
	if len(turns) == 0 {
		return
	}

	reply, err := o.gen.Reply(ctx, o.persona, o.botName, turns)
	if err != nil {
		log.Printf("[orchestrator] generation failed: %v", err)
		o.mgr.AppendSystem("AI response failed: " + err.Error())
		return
	}

	reply = collapseLines(reply)
	if reply == "" {
		reply = fallbackLine
	}

	reply, rejected := o.filter.Sanitize(reply)
	if rejected != "" {
		log.Printf("[orchestrator] reply rejected: %s", rejected)
		return
	}

	if err := o.mgr.Send(reply); err != nil {
		log.Printf("[orchestrator] send failed: %v", err)
	}
}

// scheduleRelease clears the in-flight guard after the cooldown. The
// timer is stopped on Close, so a stale timer cannot resurrect a guard
// after the session ends.
func (o *Orchestrator) scheduleRelease() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		o.responding = false
		return
	}
	o.release = time.AfterFunc(o.cooldown, func() {
		o.mu.Lock()
		o.responding = false
		o.release = nil
		o.mu.Unlock()
	})
}

// Close stops the cooldown timer and refuses further triggers.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	if o.release != nil {
		o.release.Stop()
		o.release = nil
	}
	o.responding = false
}

// DirectAsk answers an operator prompt without touching the channel.
func (o *Orchestrator) DirectAsk(ctx context.Context, prompt string) (string, error) {
	return o.gen.Direct(ctx, o.persona, o.botName, prompt)
}

// RephraseAndSend rewrites an operator message in the bot's voice and
// sends it to the channel.
func (o *Orchestrator) RephraseAndSend(ctx context.Context, text string) error {
	rephrased, err := o.gen.Rephrase(ctx, o.persona, o.botName, text)
	if err != nil {
		return fmt.Errorf("rephrase: %w", err)
	}
	rephrased = collapseLines(rephrased)
	if rephrased == "" {
		return nil
	}
	rephrased, rejected := o.filter.Sanitize(rephrased)
	if rejected != "" {
		return fmt.Errorf("rephrase rejected: %s", rejected)
	}
	return o.mgr.Send(rephrased)
}

func (o *Orchestrator) record(author, content string, isBot bool) {
	o.mu.Lock()
	rec, sessionID := o.rec, o.sessionID
	o.mu.Unlock()
	if rec == nil || sessionID == "" {
		return
	}
	if _, err := rec.SaveMessage(sessionID, author, content, isBot); err != nil {
		log.Printf("[orchestrator] transcript save failed: %v", err)
	}
}

// BuildTurns converts a history window into the alternating turn
// sequence the generation service requires. System entries are
// dropped, everything before the earliest human entry is discarded,
// and the remaining entries are walked newest to oldest keeping the
// longest strictly-alternating suffix that ends in a human turn.
// Entries that would break alternation are skipped, not merged.
func BuildTurns(entries []chat.Message, botName string) []gemini.Turn {
	window := make([]chat.Message, 0, len(entries))
	for _, e := range entries {
		if !e.IsSystem() {
			window = append(window, e)
		}
	}

	start := -1
	for i, e := range window {
		if !e.IsBot && !strings.EqualFold(e.User, botName) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}
	window = window[start:]

	expected := gemini.RoleUser
	var turns []gemini.Turn
	for i := len(window) - 1; i >= 0; i-- {
		e := window[i]
		role := gemini.RoleUser
		text := fmt.Sprintf("%s: %s", e.User, e.Text)
		if e.IsBot || strings.EqualFold(e.User, botName) {
			role = gemini.RoleModel
			text = e.Text
		}
		if role != expected {
			continue
		}
		turns = append([]gemini.Turn{{Role: role, Text: text}}, turns...)
		if expected == gemini.RoleUser {
			expected = gemini.RoleModel
		} else {
			expected = gemini.RoleUser
		}
	}

	if len(turns) == 0 || turns[len(turns)-1].Role != gemini.RoleUser {
		return nil
	}
	return turns
}

// collapseLines folds line breaks into spaces; the wire protocol
// cannot carry multi-line payloads.
func collapseLines(text string) string {
	text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	return strings.TrimSpace(text)
}
