package providers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func openRouterReply(content, finishReason string) map[string]any {
	return map[string]any{
		"id":    "test-id",
		"model": "google/gemini-3-flash-preview",
		"choices": []map[string]any{
			{
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": finishReason,
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     1200,
			"completion_tokens": 80,
			"total_tokens":      1280,
		},
	}
}

func TestOpenRouterClient_Extract(t *testing.T) {
	t.Run("successful extraction", func(t *testing.T) {
		var received openRouterRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected authorization: %s", auth)
			}
			if r.Header.Get("X-Request-ID") == "" {
				t.Error("missing request id header")
			}
			if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
				t.Errorf("decode request: %v", err)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openRouterReply(
				"```json\n{\"clauses\":[{\"page\":2,\"clause_number\":\"1.\",\"text\":\"Delivery\"}]}\n```", "stop"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		pdf := []byte("%PDF-1.4 test")
		result, err := client.Extract(context.Background(), pdf, "extract clauses")
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if len(result.Clauses) != 1 || result.Clauses[0].Page != 2 || result.Clauses[0].Text != "Delivery" {
			t.Errorf("Clauses = %+v", result.Clauses)
		}
		if result.PromptTokens != 1200 || result.CompletionTokens != 80 {
			t.Errorf("tokens = %d/%d", result.PromptTokens, result.CompletionTokens)
		}
		if result.Provider != OpenRouterName || result.RequestID == "" {
			t.Errorf("Provider = %q RequestID = %q", result.Provider, result.RequestID)
		}

		if received.Model != OpenRouterDefaultModel {
			t.Errorf("model = %q", received.Model)
		}
		if len(received.Messages) != 1 || len(received.Messages[0].Content) != 2 {
			t.Fatalf("unexpected message shape: %+v", received.Messages)
		}
		file := received.Messages[0].Content[0]
		if file.Type != "file" || file.File == nil {
			t.Fatalf("first part = %+v, want file", file)
		}
		wantData := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf)
		if file.File.FileData != wantData {
			t.Errorf("file_data = %q", file.File.FileData)
		}
		if text := received.Messages[0].Content[1]; text.Type != "text" || text.Text != "extract clauses" {
			t.Errorf("second part = %+v", text)
		}
		if len(received.Plugins) != 1 || received.Plugins[0].PDF.Engine != "native" {
			t.Errorf("plugins = %+v", received.Plugins)
		}
	})

	t.Run("status codes are classified", func(t *testing.T) {
		tests := []struct {
			status int
			want   ErrorKind
		}{
			{http.StatusTooManyRequests, KindTransient},
			{http.StatusServiceUnavailable, KindTransient},
			{522, KindTransient},
			{http.StatusUnauthorized, KindPermanent},
			{http.StatusBadRequest, KindPermanent},
		}
		for _, tt := range tests {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))

			client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
			_, err := client.Extract(context.Background(), []byte("%PDF"), "p")
			server.Close()

			var gwErr *GatewayError
			if !errors.As(err, &gwErr) {
				t.Fatalf("status %d: expected GatewayError, got %v", tt.status, err)
			}
			if gwErr.Kind != tt.want || gwErr.StatusCode != tt.status {
				t.Errorf("status %d: got kind %v status %d", tt.status, gwErr.Kind, gwErr.StatusCode)
			}
		}
	})

	t.Run("truncated response is a parse error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(openRouterReply(`{"clauses":[{"page":1,"clause_number":"1","text":"The ves`, "length"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.Extract(context.Background(), []byte("%PDF"), "p")
		if Classify(err) != KindParse {
			t.Errorf("expected parse error, got %v", err)
		}
	})

	t.Run("malformed content is a parse error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(openRouterReply("I cannot read this scan.", "stop"))
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.Extract(context.Background(), []byte("%PDF"), "p")
		if Classify(err) != KindParse || !IsRetryable(err) {
			t.Errorf("expected retryable parse error, got %v", err)
		}
	})

	t.Run("api error in 200 body", func(t *testing.T) {
		tests := []struct {
			code any
			want ErrorKind
		}{
			{"overloaded", KindTransient},
			{502, KindTransient},
			{"content_filter", KindPermanent},
		}
		for _, tt := range tests {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "upstream", "code": tt.code},
				})
			}))
			client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
			_, err := client.Extract(context.Background(), []byte("%PDF"), "p")
			server.Close()

			if Classify(err) != tt.want {
				t.Errorf("code %v: got %v, want %v", tt.code, Classify(err), tt.want)
			}
		}
	})

	t.Run("rate limit in 200 body drains the limiter", func(t *testing.T) {
		for _, code := range []any{"rate_limit_exceeded", 429} {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "slow down", "code": code},
				})
			}))
			limiter := NewRateLimiter(600)
			client := WithRateLimit(NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL}), limiter)
			_, err := client.Extract(context.Background(), []byte("%PDF"), "p")
			server.Close()

			var gwErr *GatewayError
			if !errors.As(err, &gwErr) || gwErr.StatusCode != http.StatusTooManyRequests {
				t.Fatalf("code %v: error = %v, want status 429", code, err)
			}
			if !IsRetryable(err) {
				t.Errorf("code %v: should be retryable", code)
			}
			status := limiter.Status()
			if status.Last429Time.IsZero() || status.TokensAvailable != 0 {
				t.Errorf("code %v: limiter not drained: %+v", code, status)
			}
		}
	})

	t.Run("empty choices are transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"id": "x", "choices": []any{}})
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.Extract(context.Background(), []byte("%PDF"), "p")
		if err == nil || Classify(err) != KindTransient {
			t.Errorf("expected transient error, got %v", err)
		}
	})

	t.Run("unreachable server is transient", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := server.URL
		server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: url})
		_, err := client.Extract(context.Background(), []byte("%PDF"), "p")
		if err == nil || !IsRetryable(err) {
			t.Errorf("expected retryable error, got %v", err)
		}
		if !strings.Contains(err.Error(), OpenRouterName) {
			t.Errorf("error should name the provider: %v", err)
		}
	})

	t.Run("oversized payload is rejected before sending", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		client := NewOpenRouterClient(OpenRouterConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.Extract(context.Background(), make([]byte, MaxPDFBytes+1), "p")
		if Classify(err) != KindPermanent {
			t.Errorf("expected permanent error, got %v", err)
		}
		if called {
			t.Error("server should not be called")
		}
	})
}
