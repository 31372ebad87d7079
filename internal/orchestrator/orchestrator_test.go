// internal/orchestrator/orchestrator_test.go
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"gembot/internal/chat"
	"gembot/internal/gemini"
	"gembot/internal/irc"
)

// MockChat implements the Chat interface for testing
type MockChat struct {
	mu      sync.Mutex
	status  irc.Status
	history *chat.History
	sent    []string
	system  []string
	sendErr error
	events  chan chat.Message
}

func NewMockChat() *MockChat {
	return &MockChat{
		status:  irc.Connected,
		history: chat.NewHistory(),
		events:  make(chan chat.Message, 16),
	}
}

func (m *MockChat) Status() irc.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *MockChat) Send(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, text)
	return nil
}

func (m *MockChat) AppendSystem(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.system = append(m.system, text)
}

func (m *MockChat) History() *chat.History { return m.history }

func (m *MockChat) Events() <-chan chat.Message { return m.events }

func (m *MockChat) Sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.sent))
	copy(out, m.sent)
	return out
}

func (m *MockChat) System() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.system))
	copy(out, m.system)
	return out
}

// MockGenerator implements the Generator interface for testing
type MockGenerator struct {
	mu        sync.Mutex
	replyFunc func(turns []gemini.Turn) (string, error)
	calls     [][]gemini.Turn
}

func (g *MockGenerator) Reply(ctx context.Context, persona, botName string, turns []gemini.Turn) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, turns)
	fn := g.replyFunc
	g.mu.Unlock()
	if fn != nil {
		return fn(turns)
	}
	return "mock reply", nil
}

func (g *MockGenerator) Direct(ctx context.Context, persona, botName, prompt string) (string, error) {
	return "direct: " + prompt, nil
}

func (g *MockGenerator) Rephrase(ctx context.Context, persona, botName, text string) (string, error) {
	return "rephrased: " + text, nil
}

func (g *MockGenerator) Calls() [][]gemini.Turn {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([][]gemini.Turn, len(g.calls))
	copy(out, g.calls)
	return out
}

func newTestOrchestrator(freq float64) (*Orchestrator, *MockChat, *MockGenerator) {
	mc := NewMockChat()
	mg := &MockGenerator{}
	o := New(mc, mg, "gembot", "test persona", freq)
	o.cooldown = 10 * time.Millisecond
	o.randFn = func() float64 { return 0.99 }
	return o, mc, mg
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func human(user, text string) chat.Message {
	return chat.Message{User: user, Text: text, Color: chat.DefaultColor}
}

func bot(text string) chat.Message {
	return chat.Message{User: "gembot", Text: text, IsBot: true}
}

func TestMentionTriggersReply(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)

	mc.history.Append(human("alice", "hi all"))
	mc.history.Append(bot("hello!"))
	msg := mc.history.Append(human("bob", "@gembot how are you"))

	o.Handle(context.Background(), msg)

	waitFor(t, "reply to be sent", func() bool { return len(mc.Sent()) == 1 })
	if got := mc.Sent()[0]; got != "mock reply" {
		t.Errorf("Expected 'mock reply', got %q", got)
	}

	calls := mg.Calls()
	if len(calls) != 1 {
		t.Fatalf("Expected 1 generation call, got %d", len(calls))
	}
	turns := calls[0]
	last := turns[len(turns)-1]
	if last.Role != gemini.RoleUser || last.Text != "bob: @gembot how are you" {
		t.Errorf("Expected final user turn 'bob: @gembot how are you', got %+v", last)
	}
}

func TestMentionIsCaseInsensitiveAndWordBounded(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)

	msg := mc.history.Append(human("bob", "hey @GemBot what's up"))
	o.Handle(context.Background(), msg)
	waitFor(t, "case-insensitive mention reply", func() bool { return len(mg.Calls()) == 1 })

	o2, mc2, mg2 := newTestOrchestrator(0)
	msg2 := mc2.history.Append(human("bob", "check out @gembotfan"))
	o2.Handle(context.Background(), msg2)
	time.Sleep(30 * time.Millisecond)
	if len(mg2.Calls()) != 0 {
		t.Errorf("Expected no generation for @gembotfan, got %d calls", len(mg2.Calls()))
	}
}

func TestBareCommandSendsHelpWithoutGeneration(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)

	msg := mc.history.Append(human("bob", "!ai  "))
	o.Handle(context.Background(), msg)

	waitFor(t, "help message", func() bool { return len(mc.Sent()) == 1 })
	if got := mc.Sent()[0]; got != helpMessage {
		t.Errorf("Expected help message, got %q", got)
	}
	if len(mg.Calls()) != 0 {
		t.Errorf("Expected no generation calls, got %d", len(mg.Calls()))
	}

	// The help path must not set the guard.
	msg2 := mc.history.Append(human("bob", "@gembot hello"))
	o.Handle(context.Background(), msg2)
	waitFor(t, "followup reply", func() bool { return len(mg.Calls()) == 1 })
}

func TestCommandUsesRemainderAsPrompt(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)

	msg := mc.history.Append(human("bob", "!AI what is your favorite game?"))
	o.Handle(context.Background(), msg)

	waitFor(t, "generation call", func() bool { return len(mg.Calls()) == 1 })
	turns := mg.Calls()[0]
	last := turns[len(turns)-1]
	if last.Text != "bob: what is your favorite game?" {
		t.Errorf("Expected prompt stripped of command prefix, got %q", last.Text)
	}
}

func TestZeroFrequencyNeverSamples(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)
	o.randFn = func() float64 { return 0.0 }

	msg := mc.history.Append(human("bob", "just chatting"))
	o.Handle(context.Background(), msg)

	time.Sleep(30 * time.Millisecond)
	if len(mg.Calls()) != 0 {
		t.Errorf("Expected no calls at frequency 0, got %d", len(mg.Calls()))
	}
}

func TestFrequencySampling(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0.2)
	o.randFn = func() float64 { return 0.1 }

	msg := mc.history.Append(human("bob", "just chatting"))
	o.Handle(context.Background(), msg)
	waitFor(t, "sampled reply", func() bool { return len(mg.Calls()) == 1 })

	o2, mc2, mg2 := newTestOrchestrator(0.2)
	o2.randFn = func() float64 { return 0.5 }
	msg2 := mc2.history.Append(human("bob", "just chatting"))
	o2.Handle(context.Background(), msg2)
	time.Sleep(30 * time.Millisecond)
	if len(mg2.Calls()) != 0 {
		t.Errorf("Expected no call when sample misses, got %d", len(mg2.Calls()))
	}
}

func TestGuardBlocksOverlappingTriggers(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)

	started := make(chan struct{})
	unblock := make(chan struct{})
	mg.replyFunc = func(turns []gemini.Turn) (string, error) {
		close(started)
		<-unblock
		return "slow reply", nil
	}

	msg := mc.history.Append(human("alice", "@gembot one"))
	o.Handle(context.Background(), msg)
	<-started

	msg2 := mc.history.Append(human("bob", "@gembot two"))
	o.Handle(context.Background(), msg2)

	close(unblock)
	waitFor(t, "first reply", func() bool { return len(mc.Sent()) == 1 })
	if len(mg.Calls()) != 1 {
		t.Errorf("Expected second trigger to be dropped, got %d calls", len(mg.Calls()))
	}
}

func TestGuardReleasesAfterCooldown(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)
	o.cooldown = 150 * time.Millisecond

	msg := mc.history.Append(human("alice", "@gembot one"))
	o.Handle(context.Background(), msg)
	waitFor(t, "first reply", func() bool { return len(mc.Sent()) == 1 })

	// Within the cooldown the guard still holds.
	msg2 := mc.history.Append(human("bob", "@gembot two"))
	o.Handle(context.Background(), msg2)
	if len(mg.Calls()) != 1 {
		t.Errorf("Expected trigger inside cooldown to be dropped, got %d calls", len(mg.Calls()))
	}

	waitFor(t, "second reply after cooldown", func() bool {
		o.Handle(context.Background(), mc.history.Append(human("bob", "@gembot again")))
		return len(mg.Calls()) == 2
	})
}

func TestEmptyReplyFallsBack(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)
	mg.replyFunc = func(turns []gemini.Turn) (string, error) {
		return "  \n ", nil
	}

	msg := mc.history.Append(human("bob", "@gembot hello"))
	o.Handle(context.Background(), msg)

	waitFor(t, "fallback reply", func() bool { return len(mc.Sent()) == 1 })
	if got := mc.Sent()[0]; got != fallbackLine {
		t.Errorf("Expected fallback line, got %q", got)
	}
}

func TestMultilineReplyIsCollapsed(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)
	mg.replyFunc = func(turns []gemini.Turn) (string, error) {
		return "line one\nline two\r\nline three", nil
	}

	msg := mc.history.Append(human("bob", "@gembot hi"))
	o.Handle(context.Background(), msg)

	waitFor(t, "collapsed reply", func() bool { return len(mc.Sent()) == 1 })
	if got := mc.Sent()[0]; got != "line one line two line three" {
		t.Errorf("Expected collapsed reply, got %q", got)
	}
}

func TestReplyWithLinkIsSuppressed(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)
	mg.replyFunc = func(turns []gemini.Turn) (string, error) {
		return "check out https://example.com for more", nil
	}

	msg := mc.history.Append(human("bob", "@gembot got a link?"))
	o.Handle(context.Background(), msg)

	waitFor(t, "generation call", func() bool { return len(mg.Calls()) == 1 })
	time.Sleep(30 * time.Millisecond)
	if len(mc.Sent()) != 0 {
		t.Errorf("Expected link reply to be suppressed, got %v", mc.Sent())
	}
}

func TestGenerationErrorAppendsNotice(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)
	mg.replyFunc = func(turns []gemini.Turn) (string, error) {
		return "", errors.New("quota exceeded")
	}

	msg := mc.history.Append(human("bob", "@gembot hi"))
	o.Handle(context.Background(), msg)

	waitFor(t, "error notice", func() bool { return len(mc.System()) == 1 })
	if !strings.Contains(mc.System()[0], "quota exceeded") {
		t.Errorf("Expected error notice to carry the cause, got %q", mc.System()[0])
	}
	if len(mc.Sent()) != 0 {
		t.Errorf("Expected nothing sent on error, got %v", mc.Sent())
	}
}

func TestIgnoresBotAndSystemMessages(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)

	o.Handle(context.Background(), bot("@gembot am I talking to myself"))
	o.Handle(context.Background(), chat.Message{User: chat.SystemUser, Text: "@gembot notice"})

	time.Sleep(30 * time.Millisecond)
	if len(mg.Calls()) != 0 {
		t.Errorf("Expected no calls for bot/system messages, got %d", len(mg.Calls()))
	}
	_ = mc
}

func TestIgnoresTriggersWhileDisconnected(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)
	mc.status = irc.Disconnected

	msg := mc.history.Append(human("bob", "@gembot hi"))
	o.Handle(context.Background(), msg)

	time.Sleep(30 * time.Millisecond)
	if len(mg.Calls()) != 0 {
		t.Errorf("Expected no calls while disconnected, got %d", len(mg.Calls()))
	}
}

func TestRunConsumesEvents(t *testing.T) {
	o, mc, mg := newTestOrchestrator(0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go o.Run(ctx)

	msg := mc.history.Append(human("bob", "@gembot hello"))
	mc.events <- msg

	waitFor(t, "reply via event loop", func() bool { return len(mg.Calls()) == 1 })
}

func TestBuildTurns(t *testing.T) {
	tests := []struct {
		name    string
		entries []chat.Message
		want    []gemini.Turn
	}{
		{
			name: "simple exchange",
			entries: []chat.Message{
				human("alice", "hi"),
				bot("hello!"),
				human("bob", "how are you"),
			},
			want: []gemini.Turn{
				{Role: gemini.RoleUser, Text: "alice: hi"},
				{Role: gemini.RoleModel, Text: "hello!"},
				{Role: gemini.RoleUser, Text: "bob: how are you"},
			},
		},
		{
			name: "system entries dropped",
			entries: []chat.Message{
				{User: chat.SystemUser, Text: "Connected to #chan!"},
				human("alice", "hi"),
			},
			want: []gemini.Turn{
				{Role: gemini.RoleUser, Text: "alice: hi"},
			},
		},
		{
			name: "leading bot entries dropped",
			entries: []chat.Message{
				bot("I woke up"),
				human("alice", "hi"),
			},
			want: []gemini.Turn{
				{Role: gemini.RoleUser, Text: "alice: hi"},
			},
		},
		{
			name: "consecutive human entries keep the newest",
			entries: []chat.Message{
				human("alice", "first"),
				human("bob", "second"),
			},
			want: []gemini.Turn{
				{Role: gemini.RoleUser, Text: "bob: second"},
			},
		},
		{
			name: "trailing bot entry yields nothing",
			entries: []chat.Message{
				human("alice", "hi"),
				bot("hello!"),
			},
			want: nil,
		},
		{
			name:    "only bot entries yields nothing",
			entries: []chat.Message{bot("hi"), bot("anyone?")},
			want:    nil,
		},
		{
			name:    "empty history yields nothing",
			entries: nil,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildTurns(tt.entries, "gembot")
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d turns, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Turn %d: expected %+v, got %+v", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestDirectAsk(t *testing.T) {
	o, _, _ := newTestOrchestrator(0)
	got, err := o.DirectAsk(context.Background(), "what time is it")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "direct: what time is it" {
		t.Errorf("Expected direct answer, got %q", got)
	}
}

func TestRephraseAndSend(t *testing.T) {
	o, mc, _ := newTestOrchestrator(0)
	if err := o.RephraseAndSend(context.Background(), "hello there"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(mc.Sent()) != 1 || mc.Sent()[0] != "rephrased: hello there" {
		t.Errorf("Expected rephrased message sent, got %v", mc.Sent())
	}
}
