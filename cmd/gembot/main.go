package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"gembot/internal/config"
	"gembot/internal/db"
	"gembot/internal/gemini"
	"gembot/internal/helix"
	"gembot/internal/irc"
	"gembot/internal/orchestrator"
	"gembot/internal/ui"
)

func main() {
	// The TUI owns the terminal, so logs go to a file.
	logFile, err := tea.LogToFile(filepath.Join(os.TempDir(), "gembot.log"), "gembot")
	if err == nil {
		defer logFile.Close()
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config (%s): %v\n", config.ConfigPath(), err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen, err := gemini.NewClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\nSet gemini.api_key in %s or the GEMINI_API_KEY environment variable.\n",
			err, config.ConfigPath())
		os.Exit(1)
	}

	mgr := irc.NewManager()
	orch := orchestrator.New(mgr, gen, cfg.Twitch.Username, cfg.Bot.Persona, cfg.Frequency())
	defer orch.Close()

	store, err := db.Open()
	if err != nil {
		log.Printf("[main] transcript store unavailable: %v", err)
		store = nil
	} else {
		defer store.Close()
	}

	// Verify the chat token up front so a bad credential fails loudly
	// in the log instead of as a silent join failure.
	if cfg.Twitch.ClientID != "" && cfg.Twitch.OAuth != "" {
		if user, err := helix.NewClient().FetchUser(ctx, cfg.Twitch.OAuth, cfg.Twitch.ClientID); err != nil {
			log.Printf("[main] token validation failed: %v", err)
		} else {
			log.Printf("[main] authenticated as %s", user.DisplayName)
		}
	}

	go orch.Run(ctx)

	exportDir := os.TempDir()
	if home, err := os.UserHomeDir(); err == nil {
		exportDir = filepath.Join(home, "gembot")
	}

	p := tea.NewProgram(
		ui.New(mgr, orch, store, cfg, exportDir),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	mgr.Disconnect()
}
