// Package llm holds the remote compression and generation clients and the
// cache-fronted pipeline that orchestrates them.
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

// compressInstruction is the fixed instruction sent with every compression
// request; the user's actual question never reaches the compression service.
const compressInstruction = "Summarize and retain all key technical details for Q&A."

// Compressor calls the remote context-compression endpoint.
type Compressor struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewCompressor creates a compression client from cfg with a bounded timeout.
func NewCompressor(cfg *config.CompressionConfig) *Compressor {
	timeout := cfg.Timeout()
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Compressor{
		url:        cfg.URL,
		apiKey:     cfg.APIKey(),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type compressRequest struct {
	Context   string            `json:"context"`
	Prompt    string            `json:"prompt"`
	Model     string            `json:"model"`
	Scaledown compressRateField `json:"scaledown"`
}

type compressRateField struct {
	Rate string `json:"rate"`
}

type compressResponse struct {
	Results struct {
		CompressedPrompt string `json:"compressed_prompt"`
	} `json:"results"`
}

// Compress sends contextText for compression and returns the compressed text.
// Any transport error, non-200 status, unparseable body, or missing result
// field is an error; callers fall back to the original context.
func (c *Compressor) Compress(ctx context.Context, contextText string) (string, error) {
	body, err := json.Marshal(compressRequest{
		Context:   contextText,
		Prompt:    compressInstruction,
		Model:     c.model,
		Scaledown: compressRateField{Rate: "auto"},
	})
	if err != nil {
		return "", fmt.Errorf("marshal compression request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build compression request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("compression request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("compression endpoint returned status %d", resp.StatusCode)
	}
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read compression response: %w", err)
	}
	var parsed compressResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal compression response: %w", err)
	}
	if parsed.Results.CompressedPrompt == "" {
		return "", fmt.Errorf("compression response missing compressed_prompt")
	}
	return parsed.Results.CompressedPrompt, nil
}
