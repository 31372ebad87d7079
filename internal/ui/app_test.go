// internal/ui/app_test.go
package ui

import (
	"strings"
	"testing"

	"gembot/internal/config"
	"gembot/internal/irc"
)

func TestDisconnectWhileDisconnectedStaysSilent(t *testing.T) {
	mgr := irc.NewManager()
	m := New(mgr, nil, nil, &config.Config{}, t.TempDir())

	// Never connected; a manual /disconnect has nothing to announce,
	// and repeating it must not stack notices.
	m.handleSubmit("/disconnect")
	m.handleSubmit("/disconnect")

	for _, msg := range mgr.History().All() {
		if strings.Contains(msg.Text, "Disconnected") {
			t.Errorf("Expected no disconnect notice while already disconnected, got %q", msg.Text)
		}
	}
}
