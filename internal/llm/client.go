// Package llm is a small client for an OpenAI-compatible chat-completions
// endpoint, used as a parsing and venue oracle.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned when no endpoint is configured.
var ErrDisabled = errors.New("llm oracle not configured")

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client calls the chat-completions API. A zero BaseURL disables it.
type Client struct {
	httpClient *resty.Client
	model      string
	enabled    bool
	log        zerolog.Logger
}

// NewClient creates a client with a hard per-call timeout and no retries.
func NewClient(baseURL, apiKey, model string, timeout time.Duration, log zerolog.Logger) *Client {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &Client{
		httpClient: client,
		model:      model,
		enabled:    baseURL != "",
		log:        log,
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Complete sends one system+user exchange and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	if !c.enabled {
		return "", ErrDisabled
	}

	req := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}

	start := time.Now()
	var out chatResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		c.log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Chat completion call failed")
		return "", fmt.Errorf("failed to call chat completions: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if out.Error != nil {
			msg = out.Error.Message
		}
		c.log.Warn().Int("status_code", resp.StatusCode()).Str("error", msg).Msg("Chat completion returned error")
		return "", fmt.Errorf("chat completions error: %s (status: %d)", msg, resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat completions returned no choices")
	}

	c.log.Debug().Dur("elapsed", time.Since(start)).Msg("Chat completion succeeded")
	return out.Choices[0].Message.Content, nil
}
