package clients

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestA0Client_Reason(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		wantErr        bool
		wantStructured string
		wantCompletion string
	}{
		{
			name:           "structured",
			status:         http.StatusOK,
			body:           `{"completion":"","schema_data":{"signal":"HOLD","confidence":61},"is_structured":true}`,
			wantStructured: `{"signal":"HOLD","confidence":61}`,
		},
		{
			name:           "structured flag missing",
			status:         http.StatusOK,
			body:           `{"schema_data":{"signal":"BUY","confidence":90}}`,
			wantStructured: `{"signal":"BUY","confidence":90}`,
		},
		{
			name:           "explicitly unstructured",
			status:         http.StatusOK,
			body:           `{"completion":"SIGNAL: BUY, CONFIDENCE: 82%","schema_data":{},"is_structured":false}`,
			wantCompletion: "SIGNAL: BUY, CONFIDENCE: 82%",
		},
		{
			name:    "not json",
			status:  http.StatusOK,
			body:    `<html>oops</html>`,
			wantErr: true,
		},
		{
			name:    "empty object",
			status:  http.StatusOK,
			body:    `{}`,
			wantErr: true,
		},
		{
			name:    "bad request",
			status:  http.StatusBadRequest,
			body:    `{"error":"bad"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				var req a0Request
				require.NoError(t, json.Unmarshal(body, &req))
				assert.Len(t, req.Messages, 2)
				assert.NotEmpty(t, req.Schema)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewA0Client(srv.URL, "", WithRetries(0, time.Millisecond))
			resp, err := c.Reason(context.Background(), ReasoningRequest{
				SystemPrompt: "s", UserPrompt: "u", Schema: VerdictSchema(),
			})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantStructured != "" {
				assert.JSONEq(t, tt.wantStructured, string(resp.Structured))
			} else {
				assert.Empty(t, resp.Structured)
			}
			assert.Equal(t, tt.wantCompletion, resp.Completion)
		})
	}
}
