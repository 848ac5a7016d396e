package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponseBody {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestWriteErrorResponse_WritesUnifiedFormat(t *testing.T) {
	w := httptest.NewRecorder()

	WriteErrorResponse(w, http.StatusNotFound, model.NewEventNotFoundError("web3-day"))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeEventNotFound {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeEventNotFound)
	}
	if body.Category != "content" {
		t.Errorf("category = %q, want content", body.Category)
	}
	if body.Message == "" || body.Action == "" {
		t.Errorf("message and action must be set: %+v", body)
	}
}

func TestWriteErrorResponse_DifferentStatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		apiErr     *model.APIError
	}{
		{"validation", http.StatusBadRequest, model.NewValidationError("email is required")},
		{"unauthorized", http.StatusUnauthorized, model.NewUnauthorizedError()},
		{"csrf", http.StatusForbidden, model.NewCSRFError()},
		{"rate limit", http.StatusTooManyRequests, model.NewRateLimitError()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorResponse(w, tt.statusCode, tt.apiErr)

			if w.Code != tt.statusCode {
				t.Errorf("status = %d, want %d", w.Code, tt.statusCode)
			}
			if body := decodeErrorBody(t, w); body.Code != tt.apiErr.Code {
				t.Errorf("code = %q, want %q", body.Code, tt.apiErr.Code)
			}
		})
	}
}

// 内部エラーの詳細は利用者に返さない
func TestWriteInternalServerError(t *testing.T) {
	w := httptest.NewRecorder()

	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	body := decodeErrorBody(t, w)
	if body.Code != model.ErrCodeInternal || body.Category != "system" {
		t.Errorf("body = %+v", body)
	}
}
