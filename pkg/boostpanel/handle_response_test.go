package boostpanel

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleResponseErrorBodies(t *testing.T) {
	client := NewClient()

	tests := []struct {
		name        string
		statusCode  int
		body        string
		wantMessage string
	}{
		{
			name:        "error field",
			statusCode:  400,
			body:        `{"error": "amount below minimum"}`,
			wantMessage: "amount below minimum",
		},
		{
			name:        "message field",
			statusCode:  403,
			body:        `{"message": "access denied"}`,
			wantMessage: "access denied",
		},
		{
			name:        "error field wins over message",
			statusCode:  400,
			body:        `{"error": "bad request", "message": "ignored"}`,
			wantMessage: "bad request",
		},
		{
			name:        "unparseable body",
			statusCode:  502,
			body:        "<html>bad gateway</html>",
			wantMessage: "HTTP 502",
		},
		{
			name:        "empty fields",
			statusCode:  404,
			body:        `{}`,
			wantMessage: "HTTP 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{
				StatusCode: tt.statusCode,
				Header:     http.Header{"X-Request-Id": []string{"req_1"}},
				Body:       io.NopCloser(strings.NewReader(tt.body)),
			}

			err := client.handleResponse(resp, nil)
			require.Error(t, err)

			apiErr, ok := IsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.statusCode, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.Equal(t, tt.body, apiErr.Body)
			assert.Equal(t, "req_1", apiErr.RequestID)
		})
	}
}
