package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"healthmate/internal/config"
)

type completionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func fakeOpenAI(t *testing.T, reply string, got *completionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if got != nil {
			_ = json.NewDecoder(r.Body).Decode(got)
		}
		choices := []map[string]any{}
		if reply != "" {
			choices = append(choices, map[string]any{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o-mini",
			"choices": choices,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIClient_Chat(t *testing.T) {
	var req completionRequest
	srv := fakeOpenAI(t, "Dial 112.", &req)
	c := NewOpenAIClient(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/"})

	out, err := c.Chat(context.Background(), []Message{
		{Role: "system", Content: "be brief"},
		{Role: "narrator", Content: "what is the emergency number?"},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out != "Dial 112." {
		t.Fatalf("unexpected reply %q", out)
	}
	if req.Model != "gpt-4o-mini" || len(req.Messages) != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Messages[1].Role != "user" {
		t.Fatalf("unknown roles must be sent as user, got %q", req.Messages[1].Role)
	}
}

func TestOpenAIClient_EmptyReply(t *testing.T) {
	srv := fakeOpenAI(t, "", nil)
	c := NewOpenAIClient(config.OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL})

	if _, err := c.Chat(context.Background(), []Message{{Role: "user", Content: "hi"}}); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
}
