package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCORSMiddleware_AllowedOrigin(t *testing.T) {
	handler := NewCORSMiddleware([]string{"https://bpsclub.example/", "http://localhost:3000"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/events/get-all", nil)
	req.Header.Set("Origin", "https://bpsclub.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://bpsclub.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("expected Allow-Credentials: true")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Headers"), CSRFHeaderName) {
		t.Errorf("Allow-Headers = %q, want to include %s", w.Header().Get("Access-Control-Allow-Headers"), CSRFHeaderName)
	}
	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
}

func TestCORSMiddleware_UnknownOrigin(t *testing.T) {
	handler := NewCORSMiddleware([]string{"https://bpsclub.example"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/events/get-all", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin = %q, want empty", got)
	}
	if w.Header().Get("Vary") != "Origin" {
		t.Errorf("Vary = %q", w.Header().Get("Vary"))
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	called := false
	handler := NewCORSMiddleware([]string{"https://bpsclub.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/contacts/create", nil)
	req.Header.Set("Origin", "https://bpsclub.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if called {
		t.Error("preflight should not reach the handler")
	}
}
