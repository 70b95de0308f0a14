package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stupiduntilnot/picrelay/internal/history"
)

func newTestClient(url string) *Client {
	return NewClient(Options{
		APIKey:     "test-key",
		BaseURL:    url + "/",
		Model:      "test-model",
		ImageModel: "dall-e-2",
		ImageSize:  "256x256",
		Timeout:    5 * time.Second,
	})
}

func TestChatCompletion_RequestAndUsage(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"id":"cmpl-1","object":"chat.completion","created":0,"model":"test-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  [message] Hello!\n"}}],
			"usage":{"prompt_tokens":42,"completion_tokens":7,"total_tokens":49}
		}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	result, err := client.ChatCompletion(context.Background(), []history.Message{
		{Role: history.RoleSystem, Content: "sys"},
		{Role: history.RoleUser, Content: "hi"},
		{Role: history.RoleAssistant, Content: "[message] hey"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// Content is returned untrimmed.
	if result.Content != "  [message] Hello!\n" {
		t.Errorf("expected raw content, got %q", result.Content)
	}
	if result.InputTokens != 42 || result.OutputTokens != 7 {
		t.Errorf("unexpected usage: %+v", result)
	}

	if got["model"] != "test-model" {
		t.Errorf("unexpected model: %v", got["model"])
	}
	if temp, ok := got["temperature"]; !ok || temp != float64(0) {
		t.Errorf("expected explicit temperature 0, got %v (present=%v)", temp, ok)
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, role := range []string{"system", "user", "assistant"} {
		m, _ := msgs[i].(map[string]any)
		if m["role"] != role {
			t.Errorf("message %d: expected role %s, got %v", i, role, m["role"])
		}
	}
}

func TestChatCompletion_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"x","object":"chat.completion","created":0,"model":"m","choices":[]}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ChatCompletion(context.Background(), []history.Message{{Role: history.RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestChatCompletion_HTTPErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"rate limited","type":"requests"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).ChatCompletion(context.Background(), []history.Message{{Role: history.RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "status=429") {
		t.Errorf("expected status in error, got %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly one attempt, got %d", n)
	}
}

func TestGenerateImage_ReturnsURL(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/generations" {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":0,"data":[{"url":"https://img.example/fox.png"}]}`)
	}))
	defer server.Close()

	url, err := newTestClient(server.URL).GenerateImage(context.Background(), "Painting of a fox")
	if err != nil {
		t.Fatal(err)
	}
	if url != "https://img.example/fox.png" {
		t.Errorf("unexpected url %q", url)
	}
	if got["prompt"] != "Painting of a fox" {
		t.Errorf("unexpected prompt %v", got["prompt"])
	}
	if got["n"] != float64(1) || got["response_format"] != "url" || got["size"] != "256x256" {
		t.Errorf("unexpected params: %v", got)
	}
}

func TestGenerateImage_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"Your request was rejected by our safety system","type":"invalid_request_error"}}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).GenerateImage(context.Background(), "Painting of a fox")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "status=400") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestGenerateImage_NoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"created":0,"data":[]}`)
	}))
	defer server.Close()

	if _, err := newTestClient(server.URL).GenerateImage(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty data")
	}
}
