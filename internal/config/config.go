// internal/config/config.go
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultPersona is the system prompt used when none is configured.
const DefaultPersona = "You are a helpful and friendly Twitch chat bot. Keep your responses concise, fun, and relevant to the chat. You can use Twitch emotes."

// DefaultFrequency is the chance of an unprompted reply per message.
const DefaultFrequency = 0.2

type TwitchConfig struct {
	Channel  string `yaml:"channel,omitempty"`
	Username string `yaml:"username,omitempty"`
	OAuth    string `yaml:"oauth,omitempty"`
	ClientID string `yaml:"client_id,omitempty"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
	Model  string `yaml:"model,omitempty"`
}

type BotConfig struct {
	Persona string `yaml:"persona,omitempty"`
	// ResponseFrequency is a pointer because zero is meaningful: it
	// disables unprompted replies entirely.
	ResponseFrequency *float64 `yaml:"response_frequency,omitempty"`
}

type Config struct {
	Twitch TwitchConfig `yaml:"twitch"`
	Gemini GeminiConfig `yaml:"gemini"`
	Bot    BotConfig    `yaml:"bot"`
}

// Frequency returns the configured sampling probability.
func (c *Config) Frequency() float64 {
	if c.Bot.ResponseFrequency == nil {
		return DefaultFrequency
	}
	return *c.Bot.ResponseFrequency
}

func Load() (*Config, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = os.ExpandEnv("$HOME/.config")
	}

	path := filepath.Join(configDir, "gembot", "config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		// Return defaults if no config file
		return defaultConfig(), nil
	}

	// Expand environment variables in config
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for unset values
	applyDefaults(&cfg)

	return &cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Gemini.Model == "" {
		cfg.Gemini.Model = "gemini-2.5-flash"
	}
	if cfg.Bot.Persona == "" {
		cfg.Bot.Persona = DefaultPersona
	}
	if cfg.Bot.ResponseFrequency == nil {
		freq := DefaultFrequency
		cfg.Bot.ResponseFrequency = &freq
	}
}

func ConfigPath() string {
	configDir, _ := os.UserConfigDir()
	if configDir == "" {
		configDir = os.ExpandEnv("$HOME/.config")
	}
	return filepath.Join(configDir, "gembot", "config.yaml")
}
