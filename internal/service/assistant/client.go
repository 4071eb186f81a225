package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

const maxAttempts = 3

var ErrNoAPIKeys = errors.New("no api keys configured")

// emptyReply is returned when the upstream answers successfully but with no
// usable text.
const emptyReply = "I couldn't think of a response."

type Config struct {
	// APIKeys is a comma-separated pool. Each attempt picks a random key,
	// so a rate-limited key does not starve the whole pool.
	APIKeys string
	BaseURL string
	Model   string
}

type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	keys       []string
	baseURL    string
	model      string
}

func NewClient(logger *slog.Logger, cfg *Config) *Client {
	var keys []string
	for _, key := range strings.Split(cfg.APIKeys, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		keys:       keys,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		model:      cfg.Model,
	}
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Ask sends one completion request. Attempts rotate through random keys and
// retry on rate limiting and upstream failures.
func (c *Client) Ask(ctx context.Context, prompt, systemInstruction string) (string, error) {
	if len(c.keys) == 0 {
		return "", ErrNoAPIKeys
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		SystemInstruction: &content{
			Parts: []part{{Text: systemInstruction}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		key := c.keys[rand.Intn(len(c.keys))]

		reply, retryable, err := c.generate(ctx, key, body)
		if err == nil {
			return reply, nil
		}

		lastErr = err
		if !retryable {
			return "", err
		}

		c.logger.WarnContext(ctx, "assistant request failed",
			"attempt", attempt+1,
			"error", err,
		)
	}

	return "", fmt.Errorf("all attempts failed: %w", lastErr)
}

func (c *Client) generate(ctx context.Context, key string, body []byte) (string, bool, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, key)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", true, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", false, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return emptyReply, false, nil
	}

	text := parsed.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return emptyReply, false, nil
	}

	return text, false, nil
}
