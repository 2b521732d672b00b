package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/af-corp/imagerouter/internal/config"
)

func TestOpenAIAdapter_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("X-School") != "gs-nord" {
			t.Errorf("expected static header to be forwarded")
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"intent\":\"edit_image\",\"confidence\":0.9}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 9, "total_tokens": 51}
		}`)
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(config.ProviderConfig{
		BaseURL: srv.URL + "/v1/",
		APIKey:  "sk-test",
		Headers: map[string]string{"X-School": "gs-nord"},
	}, srv.Client())

	c, err := a.Complete(context.Background(), CompletionRequest{
		Model:     "gpt-4o-mini",
		System:    "classify",
		Messages:  []Message{{Role: "user", Content: "Mach es heller"}},
		MaxTokens: 50,
		JSON:      true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Content != `{"intent":"edit_image","confidence":0.9}` {
		t.Errorf("unexpected content %q", c.Content)
	}
	if c.InputTokens != 42 || c.OutputTokens != 9 {
		t.Errorf("unexpected usage %d/%d", c.InputTokens, c.OutputTokens)
	}

	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system + user message, got %d", len(msgs))
	}
	rf, _ := got["response_format"].(map[string]any)
	if rf["type"] != "json_object" {
		t.Errorf("expected json_object response format, got %v", got["response_format"])
	}
}

func TestOpenAIAdapter_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer srv.Close()

	a := NewOpenAIAdapter(config.ProviderConfig{BaseURL: srv.URL, APIKey: "k"}, srv.Client())
	if _, err := a.Complete(context.Background(), CompletionRequest{Model: "m"}); err == nil {
		t.Fatal("expected error for 429")
	}
}

func TestAnthropicAdapter_Complete(t *testing.T) {
	var got anthropicRequestBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "ak" {
			t.Errorf("missing x-api-key")
		}
		if r.Header.Get("anthropic-version") != defaultAnthropicVersion {
			t.Errorf("unexpected anthropic-version %q", r.Header.Get("anthropic-version"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{
			"id": "msg_1", "model": "claude-3-5-haiku-latest", "stop_reason": "end_turn",
			"content": [{"type": "text", "text": "{\"intent\":\"create_image\",\"confidence\":0.8}"}],
			"usage": {"input_tokens": 30, "output_tokens": 12}
		}`)
	}))
	defer srv.Close()

	a := NewAnthropicAdapter(config.ProviderConfig{BaseURL: srv.URL + "/v1", APIKey: "ak"}, srv.Client())
	c, err := a.Complete(context.Background(), CompletionRequest{
		Model:    "claude-3-5-haiku-latest",
		System:   "classify",
		Messages: []Message{{Role: "user", Content: "Zeichne einen Fuchs"}},
		JSON:     true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Content != `{"intent":"create_image","confidence":0.8}` {
		t.Errorf("unexpected content %q", c.Content)
	}
	if got.MaxTokens != 256 {
		t.Errorf("expected default max_tokens 256, got %d", got.MaxTokens)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestAnthropicAdapter_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"overloaded_error"}}`)
	}))
	defer srv.Close()

	a := NewAnthropicAdapter(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	_, err := a.Complete(context.Background(), CompletionRequest{Model: "m"})

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", se.StatusCode)
	}
}

func TestAnthropicAdapter_EmptyContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"id":"msg_2","content":[]}`)
	}))
	defer srv.Close()

	a := NewAnthropicAdapter(config.ProviderConfig{BaseURL: srv.URL}, srv.Client())
	_, err := a.Complete(context.Background(), CompletionRequest{Model: "m"})
	if !errors.Is(err, ErrEmptyCompletion) {
		t.Errorf("expected ErrEmptyCompletion, got %v", err)
	}
}
