package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hyperjump/askthebook/internal/config"
)

// Generator calls the remote chat-completion endpoint that produces answers.
// Unlike compression there is no fallback: the answer cannot be synthesized
// without it, so every failure surfaces to the caller.
type Generator struct {
	url           string
	apiKey        string
	model         string
	systemMessage string
	httpClient    *http.Client
}

// NewGenerator creates a generation client from cfg.
func NewGenerator(cfg *config.GenerationConfig) *Generator {
	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Generator{
		url:           cfg.URL,
		apiKey:        cfg.APIKey(),
		model:         cfg.Model,
		systemMessage: cfg.SystemMessage,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// Model returns the model identifier, part of the cache key.
func (g *Generator) Model() string {
	return g.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate asks the model to follow instruction against contextText and
// returns the generated answer.
func (g *Generator) Generate(ctx context.Context, instruction, contextText string) (string, error) {
	fullPrompt := fmt.Sprintf("Context:\n%s\n\nInstruction:\n%s", contextText, instruction)
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: g.systemMessage},
			{Role: "user", Content: fullPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal generation request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read generation response: %w", err)
	}
	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal generation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("generation endpoint returned status %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("generation endpoint returned status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("generation response has no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
