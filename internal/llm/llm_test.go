package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaChat_SessionThreading(t *testing.T) {
	var lastRequest ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&lastRequest); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: Message{Role: "assistant", Content: "reply"},
		})
	}))
	defer server.Close()

	chat := NewOllamaChat("testmodel", server.URL)

	reply, session, err := chat.Chat(context.Background(), "first prompt", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "reply" {
		t.Errorf("expected reply %q, got %q", "reply", reply)
	}
	if len(session) != 2 {
		t.Fatalf("expected session with 2 messages, got %d", len(session))
	}
	if len(lastRequest.Messages) != 1 {
		t.Errorf("first call should send 1 message, sent %d", len(lastRequest.Messages))
	}

	_, session, err = chat.Chat(context.Background(), "second prompt", session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(session) != 4 {
		t.Errorf("expected session with 4 messages, got %d", len(session))
	}
	if len(lastRequest.Messages) != 3 {
		t.Errorf("second call should carry history of 3 messages, sent %d", len(lastRequest.Messages))
	}
	if lastRequest.Messages[0].Content != "first prompt" {
		t.Error("history lost the first prompt")
	}
	if lastRequest.Messages[1].Role != "assistant" {
		t.Error("history lost the assistant reply")
	}
	if lastRequest.Model != "testmodel" {
		t.Errorf("expected model testmodel, got %s", lastRequest.Model)
	}
}

func TestOllamaChat_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	chat := NewOllamaChat("m", server.URL)
	_, session, err := chat.Chat(context.Background(), "prompt", Session{{Role: "user", Content: "old"}})
	if err == nil {
		t.Error("expected error for non-OK status")
	}
	if len(session) != 1 {
		t.Errorf("session must be unchanged on failure, got %d messages", len(session))
	}
}
