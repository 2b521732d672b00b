package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, "req_123", http.StatusBadRequest, "EMPTY_PROMPT", "Bitte gib eine Beschreibung ein.")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if rid := w.Header().Get("X-Request-ID"); rid != "req_123" {
		t.Errorf("expected X-Request-ID req_123, got %s", rid)
	}

	var resp APIError
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Error != "Bitte gib eine Beschreibung ein." {
		t.Errorf("unexpected message %q", resp.Error)
	}
	if resp.Code != "EMPTY_PROMPT" {
		t.Errorf("expected code EMPTY_PROMPT, got %q", resp.Code)
	}
	if resp.RequestID != "req_123" {
		t.Errorf("expected request_id req_123, got %q", resp.RequestID)
	}
}

func TestWriteErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"auth", func(w http.ResponseWriter) { WriteAuthError(w, "r", "nope") }, http.StatusUnauthorized, "INVALID_API_KEY"},
		{"rate limit", func(w http.ResponseWriter) { WriteRateLimitError(w, "r", "slow") }, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"bad request", func(w http.ResponseWriter) { WriteBadRequestError(w, "r", "INVALID_JSON", "bad") }, http.StatusBadRequest, "INVALID_JSON"},
		{"internal", func(w http.ResponseWriter) { WriteInternalError(w, "r", "boom") }, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, w.Code)
			}
			var resp APIError
			json.Unmarshal(w.Body.Bytes(), &resp)
			if resp.Code != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, resp.Code)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, "", http.StatusOK, map[string]string{"status": "healthy"})

	if w.Header().Get("X-Request-ID") != "" {
		t.Error("expected no X-Request-ID header for empty id")
	}
	if w.Body.String() != "{\"status\":\"healthy\"}\n" {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}
