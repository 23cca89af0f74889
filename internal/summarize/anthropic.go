package summarize

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
	anthropicModel    = "claude-3-5-sonnet-latest"
)

type anthropic struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func newAnthropic(opts Options) *anthropic {
	a := &anthropic{
		endpoint:    opts.Endpoint,
		apiKey:      opts.APIKey,
		model:       opts.Model,
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: opts.Timeout},
	}
	if a.endpoint == "" {
		a.endpoint = anthropicEndpoint
	}
	if a.model == "" {
		a.model = anthropicModel
	}
	return a
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (a *anthropic) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := anthropicRequest{
		Model:       a.model,
		MaxTokens:   maxTokens,
		Temperature: a.temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}

	var resp anthropicResponse
	if err := postJSON(ctx, a.client, a.endpoint, headers, req, &resp); err != nil {
		return "", err
	}
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" || block.Type == "" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("anthropic response has no text content")
	}
	return b.String(), nil
}

func (a *anthropic) close() error { return nil }
