package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/pkg/retrier"
)

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 2
	defaultRetryDelay = 2 * time.Second
)

// verdictSchema constrains the reasoning service to a {signal, confidence, reasoning}
// object. Strict mode needs every property listed as required.
const verdictSchema = `{
  "type": "object",
  "properties": {
    "signal": {"type": "string", "enum": ["BUY", "SELL", "HOLD"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 100},
    "reasoning": {"type": "string"}
  },
  "required": ["signal", "confidence", "reasoning"],
  "additionalProperties": false
}`

// VerdictSchema returns the JSON schema of a structured signal verdict.
func VerdictSchema() json.RawMessage {
	return json.RawMessage(verdictSchema)
}

// ReasoningRequest is a single prompt for the reasoning service.
type ReasoningRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	// Schema requests a structured answer when set.
	Schema json.RawMessage
}

// ReasoningResponse carries the free-text completion and, when the service honoured the
// schema, the structured payload.
type ReasoningResponse struct {
	Completion string
	Structured json.RawMessage
	Model      string
}

// Reasoner defines the interface for interacting with LLM services.
type Reasoner interface {
	Reason(ctx context.Context, req ReasoningRequest) (ReasoningResponse, error)
}

// StatusError is returned when the service answers with a non-success status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("reasoning service returned status %d: %s", e.Code, e.Body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// retryable retries transport failures and temporary statuses, never context errors.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var de *decodeError
	return !errors.As(err, &de)
}

// decodeError marks a response that arrived but could not be understood.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

func newRetrier(maxRetries int, delay time.Duration) *retrier.Retrier {
	return retrier.New(
		retrier.WithMaxRetries(maxRetries),
		retrier.WithInitialInterval(delay),
		retrier.WithMaxInterval(4*delay),
		retrier.WithRetryIf(retryable),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
