package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/pkg/retrier"
)

// OpenAICompatibleClient talks to any chat-completions API (OpenAI, OpenRouter, DeepSeek, ...).
type OpenAICompatibleClient struct {
	apiURL     string
	apiKey     string
	model      string
	httpClient *http.Client
	retrier    *retrier.Retrier
}

// ClientOption configures HTTP reasoning clients.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// WithRetries sets how many times a failed call is retried and the initial delay.
func WithRetries(n int, delay time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.maxRetries = n
		o.retryDelay = delay
	}
}

func buildOptions(opts []ClientOption) clientOptions {
	o := clientOptions{
		httpClient: &http.Client{Timeout: defaultTimeout},
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewOpenAICompatibleClient creates a new client for OpenAI-compatible APIs
func NewOpenAICompatibleClient(apiURL, apiKey, model string, opts ...ClientOption) *OpenAICompatibleClient {
	o := buildOptions(opts)
	return &OpenAICompatibleClient{
		apiURL:     apiURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: o.httpClient,
		retrier:    newRetrier(o.maxRetries, o.retryDelay),
	}
}

// chatRequest represents the request structure for OpenAI-compatible APIs
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

// chatResponse represents the response structure from OpenAI-compatible APIs
type chatResponse struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Choices []choice  `json:"choices"`
	Usage   usage     `json:"usage"`
	Error   *apiError `json:"error,omitempty"`
}

type choice struct {
	Index        int     `json:"index"`
	Message      message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// Reason sends the prompts as a chat request and returns the first choice.
func (c *OpenAICompatibleClient) Reason(ctx context.Context, req ReasoningRequest) (ReasoningResponse, error) {
	if c.apiKey == "" {
		return ReasoningResponse{}, errors.New("LLM API key is empty")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		MaxTokens:   1024,
	}
	if len(req.Schema) > 0 {
		reqBody.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: "signal_verdict", Schema: req.Schema, Strict: true},
		}
	}

	resp, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (ReasoningResponse, error) {
		return c.sendRequest(ctx, reqBody)
	})
	if err != nil {
		return ReasoningResponse{}, errors.Wrap(err, "chat completion failed")
	}

	return resp, nil
}

func (c *OpenAICompatibleClient) sendRequest(ctx context.Context, reqBody chatRequest) (ReasoningResponse, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return ReasoningResponse{}, retrier.Permanent(errors.Wrap(err, "failed to marshal request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return ReasoningResponse{}, retrier.Permanent(errors.Wrap(err, "failed to create HTTP request"))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ReasoningResponse{}, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ReasoningResponse{}, errors.Wrap(err, "failed to read response body")
	}

	if resp.StatusCode != http.StatusOK {
		return ReasoningResponse{}, &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return ReasoningResponse{}, &decodeError{err: errors.Wrap(err, "failed to unmarshal response")}
	}

	if chatResp.Error != nil {
		return ReasoningResponse{}, &decodeError{err: fmt.Errorf("LLM API error: %s (type: %s, code: %s)",
			chatResp.Error.Message, chatResp.Error.Type, chatResp.Error.Code)}
	}

	if len(chatResp.Choices) == 0 {
		return ReasoningResponse{}, &decodeError{err: errors.New("LLM API returned no choices")}
	}

	content := chatResp.Choices[0].Message.Content
	out := ReasoningResponse{Completion: content, Model: chatResp.Model}
	if reqBody.ResponseFormat != nil && json.Valid([]byte(content)) {
		out.Structured = json.RawMessage(content)
	}

	return out, nil
}
