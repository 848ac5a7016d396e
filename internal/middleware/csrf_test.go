package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

func csrfHandler(t *testing.T, called *bool) http.Handler {
	t.Helper()
	var buf bytes.Buffer
	return NewCSRFMiddleware(CSRFConfig{}, newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFMiddleware_SafeMethod_SetsCookie(t *testing.T) {
	called := false
	handler := csrfHandler(t, &called)

	req := httptest.NewRequest(http.MethodGet, "/api/events/get-all", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if !called || w.Code != http.StatusOK {
		t.Fatalf("called=%v status=%d", called, w.Code)
	}
	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			found = true
			if c.HttpOnly {
				t.Error("CSRF cookie must be readable from JavaScript")
			}
			if len(c.Value) != 64 {
				t.Errorf("token length = %d, want 64", len(c.Value))
			}
		}
	}
	if !found {
		t.Error("expected csrf_token cookie to be set")
	}
}

func TestCSRFMiddleware_SafeMethod_KeepsExistingCookie(t *testing.T) {
	called := false
	handler := csrfHandler(t, &called)

	req := httptest.NewRequest(http.MethodGet, "/api/events/get-all", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if len(w.Result().Cookies()) != 0 {
		t.Errorf("既存Cookieがあるのに再発行された: %v", w.Result().Cookies())
	}
}

func TestCSRFMiddleware_UnsafeMethod(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		header     string
		wantStatus int
	}{
		{"一致", "tok-1", "tok-1", http.StatusOK},
		{"Cookieなし", "", "tok-1", http.StatusForbidden},
		{"ヘッダーなし", "tok-1", "", http.StatusForbidden},
		{"不一致", "tok-1", "tok-2", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := csrfHandler(t, &called)

			req := httptest.NewRequest(http.MethodDelete, "/api/admin/events/x", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("handler called = %v", called)
			}
			if tt.wantStatus == http.StatusForbidden {
				if body := decodeErrorBody(t, w); body.Code != model.ErrCodeCSRFInvalid {
					t.Errorf("code = %q", body.Code)
				}
			}
		})
	}
}

func TestCSRFTokenHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCSRFTokenHandler(CSRFConfig{}, newTestLogger(&buf))

	// 新規発行
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	cookies := w.Result().Cookies()
	if body.Token == "" || len(cookies) != 1 || cookies[0].Value != body.Token {
		t.Errorf("token=%q cookies=%v", body.Token, cookies)
	}

	// 既存Cookieの再利用
	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "reuse-me"})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Token != "reuse-me" {
		t.Errorf("token = %q, want reuse-me", body.Token)
	}
}
