package domain

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	signalTextPattern     = regexp.MustCompile(`(?i)SIGNAL:\s*(BUY|SELL|HOLD)`)
	confidenceTextPattern = regexp.MustCompile(`(?i)CONFIDENCE:\s*(\d+(?:\.\d+)?)%?`)
)

// Verdict is the answer of the reasoning service.
type Verdict struct {
	Signal     SignalType `json:"signal"`
	Confidence float64    `json:"confidence"`
	Reasoning  string     `json:"reasoning,omitempty"`
}

// NewVerdict builds a validated verdict from a structured JSON payload.
func NewVerdict(raw []byte) (*Verdict, error) {
	payload := sanitizeVerdictPayload(string(raw))

	if !json.Valid([]byte(payload)) {
		return nil, errors.Wrap(ErrInvalidVerdict, "invalid JSON structure")
	}

	var wire struct {
		Signal     string  `json:"signal"`
		Confidence float64 `json:"confidence"`
		Reasoning  string  `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return nil, errors.Wrapf(ErrInvalidVerdict, "JSON unmarshal error: %v", err)
	}

	v := Verdict{
		Signal:     SignalType(strings.ToUpper(strings.TrimSpace(wire.Signal))),
		Confidence: wire.Confidence,
		Reasoning:  wire.Reasoning,
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	return &v, nil
}

// ParseVerdictText extracts "SIGNAL: BUY, CONFIDENCE: 85%" from free text.
// Both parts are required.
func ParseVerdictText(text string) (*Verdict, error) {
	sm := signalTextPattern.FindStringSubmatch(text)
	if sm == nil {
		return nil, errors.Wrap(ErrInvalidVerdict, "no SIGNAL in text")
	}
	cm := confidenceTextPattern.FindStringSubmatch(text)
	if cm == nil {
		return nil, errors.Wrap(ErrInvalidVerdict, "no CONFIDENCE in text")
	}

	confidence, err := strconv.ParseFloat(cm[1], 64)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidVerdict, "bad confidence %q", cm[1])
	}

	v := Verdict{
		Signal:     SignalType(strings.ToUpper(sm[1])),
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(text),
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}

	return &v, nil
}

func sanitizeVerdictPayload(raw string) string {
	response := strings.TrimSpace(raw)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// Validate validates the verdict.
func (v *Verdict) Validate() error {
	if v.Signal == "" {
		return errors.Wrap(ErrInvalidVerdict, "signal field is required")
	}
	if !v.Signal.Valid() {
		return errors.Wrapf(ErrInvalidVerdict, "invalid signal: %s", v.Signal)
	}
	if v.Confidence < 0 || v.Confidence > 100 {
		return errors.Wrapf(ErrInvalidVerdict, "invalid confidence: %f (must be 0-100)", v.Confidence)
	}
	return nil
}
