package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/vadiminshakov/tradesignals/pkg/retrier"
)

// A0Client calls an a0-style completion endpoint that accepts {messages, temperature, schema}
// and answers {completion, schema_data, is_structured}.
type A0Client struct {
	apiURL     string
	apiKey     string
	httpClient *http.Client
	retrier    *retrier.Retrier
}

// NewA0Client creates a client for the a0 completion API. apiKey may be empty.
func NewA0Client(apiURL, apiKey string, opts ...ClientOption) *A0Client {
	o := buildOptions(opts)
	return &A0Client{
		apiURL:     apiURL,
		apiKey:     apiKey,
		httpClient: o.httpClient,
		retrier:    newRetrier(o.maxRetries, o.retryDelay),
	}
}

type a0Request struct {
	Messages    []message       `json:"messages"`
	Temperature float64         `json:"temperature"`
	Schema      json.RawMessage `json:"schema,omitempty"`
}

// Reason posts the prompts and extracts the completion and structured data.
func (c *A0Client) Reason(ctx context.Context, req ReasoningRequest) (ReasoningResponse, error) {
	payload, err := json.Marshal(a0Request{
		Messages: []message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Temperature: req.Temperature,
		Schema:      req.Schema,
	})
	if err != nil {
		return ReasoningResponse{}, errors.Wrap(err, "failed to marshal request")
	}

	resp, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) (ReasoningResponse, error) {
		return c.send(ctx, payload)
	})
	if err != nil {
		return ReasoningResponse{}, errors.Wrap(err, "a0 completion failed")
	}
	return resp, nil
}

func (c *A0Client) send(ctx context.Context, payload []byte) (ReasoningResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return ReasoningResponse{}, retrier.Permanent(errors.Wrap(err, "failed to create HTTP request"))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

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
	if !gjson.ValidBytes(body) {
		return ReasoningResponse{}, &decodeError{err: errors.New("a0 response is not JSON")}
	}

	parsed := gjson.ParseBytes(body)
	completion := parsed.Get("completion")
	schemaData := parsed.Get("schema_data")
	if !completion.Exists() && !schemaData.Exists() {
		return ReasoningResponse{}, &decodeError{err: errors.New("a0 response has neither completion nor schema_data")}
	}

	out := ReasoningResponse{Completion: completion.String()}
	// some deployments leave is_structured out, so a schema_data object is enough
	if schemaData.IsObject() && (parsed.Get("is_structured").Bool() || !parsed.Get("is_structured").Exists()) {
		out.Structured = json.RawMessage(schemaData.Raw)
	}
	return out, nil
}
