package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nickelsound/3DprinterMonitor/internal/logger"
)

// OpenAIChatClient talks to an OpenAI-compatible /v1/chat/completions
// endpoint with vision message parts. One request per call, no retries: the
// monitor's fixed analysis cadence is the retry policy.
type OpenAIChatClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	httpClient *http.Client
}

// SetHTTPClient sets the HTTP client for testing.
func (c *OpenAIChatClient) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

func (c *OpenAIChatClient) ID() string { return "openai" }

func (c *OpenAIChatClient) Call(ctx context.Context, payload ChatPayload) (string, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	url := c.endpoint()

	messages := []map[string]any{}
	if payload.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": payload.System})
	}
	content := []map[string]any{
		{"type": "text", "text": payload.User},
	}
	for _, img := range payload.Images {
		content = append(content, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": img.DataURI},
		})
	}
	messages = append(messages, map[string]any{"role": "user", "content": content})

	body := map[string]any{"model": c.Model, "messages": messages}
	if payload.MaxTokens > 0 {
		body["max_tokens"] = payload.MaxTokens
	}
	b, _ := json.Marshal(body)

	sizes := make([]int, 0, len(payload.Images))
	for _, img := range payload.Images {
		sizes = append(sizes, img.RawSize)
	}
	logger.LogLLMRequest(c.ID(), payload.System, payload.User, sizes, string(b))
	logger.Debugf("[vision] POST %s model=%s images=%d auth=Bearer %s",
		url, c.Model, len(payload.Images), maskKey(c.APIKey))

	httpc := c.httpClient
	if httpc == nil {
		httpc = &http.Client{Timeout: timeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("vision request failed: status=%d: %s", resp.StatusCode, msg)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decoding vision response failed: %w", err)
	}
	if len(r.Choices) == 0 {
		return "", ErrNoChoices
	}
	out := r.Choices[0].Message.Content
	logger.LogLLMResponse(c.ID(), out)
	return out, nil
}

// endpoint normalizes BaseURL so a configured value with or without the
// /chat/completions suffix resolves to the same URL.
func (c *OpenAIChatClient) endpoint() string {
	url := c.BaseURL
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	if strings.HasSuffix(url, "/chat/completions") {
		url = strings.TrimSuffix(url, "/chat/completions")
	}
	return url + "/chat/completions"
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) > 4 {
		return "****" + key[len(key)-4:]
	}
	return "****"
}
