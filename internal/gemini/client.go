// internal/gemini/client.go
// Generation service boundary. The client owns no retry policy and no
// conversation state; failures are returned to the caller as-is.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when the config leaves the model unset.
const DefaultModel = "gemini-2.5-flash"

// Roles for conversation turns. The API requires strict user/model
// alternation ending in a user turn.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one role-tagged entry of the conversation context.
type Turn struct {
	Role string
	Text string
}

// ErrNoAPIKey is returned by NewClient when the key is missing.
var ErrNoAPIKey = errors.New("gemini api key is required")

// Client talks to the Gemini API through the genai SDK.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client for the given API key.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

// systemInstruction combines the configured persona with the fixed
// chat-bot framing constraints.
func systemInstruction(persona, botName string) string {
	return fmt.Sprintf("%s\nYou are a Twitch chat bot named %q. Do not prefix your response with your name. Keep responses concise and suitable for a fast-paced chat.", persona, botName)
}

// generate runs one completion with the chat sampling parameters:
// temperature 0.8, topP 0.9, thinking disabled for low latency.
func (c *Client) generate(ctx context.Context, system string, contents []*genai.Content) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(float32(0.8)),
		TopP:              genai.Ptr(float32(0.9)),
		ThinkingConfig: &genai.ThinkingConfig{
			ThinkingBudget: genai.Ptr(int32(0)),
		},
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return strings.TrimSpace(resp.Text()), nil
}

// Reply produces a chat reply from an alternating turn sequence. The
// sequence must end in a user turn; the orchestrator guarantees that.
func (c *Client) Reply(ctx context.Context, persona, botName string, turns []Turn) (string, error) {
	if len(turns) == 0 {
		return "", nil
	}

	contents := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		var role genai.Role = genai.RoleUser
		if turn.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, role))
	}

	return c.generate(ctx, systemInstruction(persona, botName), contents)
}

// Direct answers a single operator prompt outside of chat context.
func (c *Client) Direct(ctx context.Context, persona, botName, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	return c.generate(ctx, systemInstruction(persona, botName), contents)
}

// Rephrase rewrites an operator-supplied message in the bot's voice.
func (c *Client) Rephrase(ctx context.Context, persona, botName, text string) (string, error) {
	prompt := fmt.Sprintf("Rephrase the following message in your own voice, keeping the meaning intact. Reply with the rephrased message only:\n%s", text)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	return c.generate(ctx, systemInstruction(persona, botName), contents)
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}
