package summarize

import (
	"context"
	"errors"
	"net/http"
)

const (
	openAIEndpoint = "https://api.openai.com/v1/chat/completions"
	openAIModel    = "gpt-4o-mini"
)

type openAI struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func newOpenAI(opts Options) *openAI {
	o := &openAI{
		endpoint:    opts.Endpoint,
		apiKey:      opts.APIKey,
		model:       opts.Model,
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: opts.Timeout},
	}
	if o.endpoint == "" {
		o.endpoint = openAIEndpoint
	}
	if o.model == "" {
		o.model = openAIModel
	}
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (o *openAI) complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	req := chatRequest{
		Model:       o.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: o.temperature,
	}
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}

	var resp chatResponse
	if err := postJSON(ctx, o.client, o.endpoint, headers, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *openAI) close() error { return nil }
