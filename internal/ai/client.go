package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

var ErrNotConfigured = errors.New("llm not configured")

// Client talks to an OpenAI-compatible chat completions endpoint. Settings can
// be swapped at runtime through Configure.
type Client struct {
	mu      sync.RWMutex
	baseURL string
	apiKey  string
	model   string
	HTTP    *http.Client
}

type Settings struct {
	BaseURL string `json:"baseUrl"`
	Model   string `json:"model"`
	Enabled bool   `json:"enabled"`
}

// VisionRequest is a single user turn made of a text prompt and one image.
type VisionRequest struct {
	Prompt      string
	ImageURL    string
	MaxTokens   int
	Temperature float64
}

type imageURL struct {
	URL string `json:"url"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configure replaces the non-empty fields.
func (c *Client) Configure(baseURL, apiKey, model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	if apiKey != "" {
		c.apiKey = apiKey
	}
	if model != "" {
		c.model = model
	}
}

func (c *Client) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Settings{
		BaseURL: c.baseURL,
		Model:   c.model,
		Enabled: c.baseURL != "" && c.apiKey != "" && c.model != "",
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.Settings().Enabled
}

// Vision sends the prompt and image as one mixed-content user message and
// returns the trimmed text of the first choice.
func (c *Client) Vision(ctx context.Context, in VisionRequest) (string, error) {
	if !c.Enabled() {
		return "", ErrNotConfigured
	}
	c.mu.RLock()
	base, key, model := c.baseURL, c.apiKey, c.model
	c.mu.RUnlock()

	parts := []contentPart{{Type: "text", Text: in.Prompt}}
	if in.ImageURL != "" {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: in.ImageURL}})
	}
	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: parts}},
		MaxTokens:   in.MaxTokens,
		Temperature: in.Temperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(base), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", fmt.Errorf("llm error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var res chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", errors.New("llm empty response")
	}
	return strings.TrimSpace(res.Choices[0].Message.Content), nil
}

func endpoint(base string) string {
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}
