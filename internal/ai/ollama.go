// Package ai produces natural-language summaries of weekly reports through an
// Ollama-compatible generation endpoint.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Completer generates text for a prompt.
type Completer interface {
	GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error)
}

type OllamaClient struct {
	BaseURL  string
	GenModel string
	HTTP     *http.Client
}

func NewOllamaClient(baseURL, genModel string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if genModel == "" {
		genModel = "llama3.2:latest"
	}
	return &OllamaClient{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		GenModel: genModel,
		HTTP:     &http.Client{Timeout: 60 * time.Second},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"` // "json" for JSON mode
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

func (c *OllamaClient) GenerateCompletion(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	reqBody := generateRequest{
		Model:  c.GenModel,
		Prompt: prompt,
		Stream: false,
	}
	if jsonMode {
		reqBody.Format = "json"
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	var out generateResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out)
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, out.Error)
		}
		return "", fmt.Errorf("ollama returned status: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if !out.Done {
		return "", fmt.Errorf("ollama returned an incomplete response")
	}
	return strings.TrimSpace(out.Response), nil
}
