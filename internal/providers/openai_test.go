package providers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func openAIReply(content, finishReason string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4.1",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": finishReason,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
					"refusal": nil,
				},
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     900,
			"completion_tokens": 60,
			"total_tokens":      960,
		},
	}
}

func TestOpenAIClient_Extract(t *testing.T) {
	t.Run("successful extraction", func(t *testing.T) {
		var payload map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				t.Errorf("read body: %v", err)
			}
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Errorf("unmarshal body: %v", err)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openAIReply(`{"clauses":[{"page":3,"clause_number":"12","title":"Lien","text":"Owners shall have a lien"}]}`, "stop"))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := client.Extract(context.Background(), []byte("%PDF-1.4"), "extract clauses")
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if len(result.Clauses) != 1 {
			t.Fatalf("got %d clauses, want 1", len(result.Clauses))
		}
		c := result.Clauses[0]
		if c.Page != 3 || c.ClauseNumber != "12" || c.Title != "Lien" {
			t.Errorf("clause = %+v", c)
		}
		if result.PromptTokens != 900 || result.CompletionTokens != 60 {
			t.Errorf("tokens = %d/%d", result.PromptTokens, result.CompletionTokens)
		}

		if payload["model"] != OpenAIDefaultModel {
			t.Errorf("model = %v", payload["model"])
		}
		raw, _ := json.Marshal(payload["messages"])
		if !strings.Contains(string(raw), "data:application/pdf;base64,") {
			t.Errorf("request does not carry the PDF: %s", raw)
		}
		if !strings.Contains(string(raw), "extract clauses") {
			t.Errorf("request does not carry the prompt: %s", raw)
		}
	})

	t.Run("status codes are classified", func(t *testing.T) {
		tests := []struct {
			status int
			want   ErrorKind
		}{
			{http.StatusTooManyRequests, KindTransient},
			{http.StatusInternalServerError, KindTransient},
			{http.StatusUnauthorized, KindPermanent},
			{http.StatusBadRequest, KindPermanent},
		}
		for _, tt := range tests {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error"}}`))
			}))

			client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
			_, err := client.Extract(context.Background(), []byte("%PDF"), "p")
			server.Close()

			if got := Classify(err); got != tt.want {
				t.Errorf("status %d: Classify() = %v, want %v (%v)", tt.status, got, tt.want, err)
			}
			if calls != 1 {
				t.Errorf("status %d: server called %d times, SDK retries should be off", tt.status, calls)
			}
		}
	})

	t.Run("truncated response is a parse error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(openAIReply(`{"clauses":[`, "length"))
		}))
		defer server.Close()

		client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
		_, err := client.Extract(context.Background(), []byte("%PDF"), "p")
		if Classify(err) != KindParse {
			t.Errorf("expected parse error, got %v", err)
		}
	})
}
