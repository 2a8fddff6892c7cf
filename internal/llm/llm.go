// Package llm provides the conversational backend used by the alignment
// client. A Session is an opaque continuation: callers thread it through
// successive calls so retry attempts for the same page share one logical
// conversation. Sessions are never shared across pages.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is the conversation history carried between calls. The zero value
// starts a fresh conversation.
type Session []Message

// ChatBackend performs one conversational exchange. It returns the model's
// reply text and the extended session including this exchange.
type ChatBackend interface {
	Chat(ctx context.Context, prompt string, session Session) (string, Session, error)
}

// OllamaChat is a ChatBackend speaking the Ollama /api/chat protocol.
type OllamaChat struct {
	model   string
	baseURL string
	client  *http.Client
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
}

// NewOllamaChat creates a chat backend for the given model on a local or
// remote Ollama instance.
func NewOllamaChat(model, baseURL string) *OllamaChat {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &OllamaChat{
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 180 * time.Second},
	}
}

// Chat implements ChatBackend.
func (c *OllamaChat) Chat(ctx context.Context, prompt string, session Session) (string, Session, error) {
	messages := make([]Message, 0, len(session)+1)
	messages = append(messages, session...)
	messages = append(messages, Message{Role: "user", Content: prompt})

	reqBody := ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", session, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/chat", c.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return "", session, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", session, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", session, fmt.Errorf("chat backend returned status %d", resp.StatusCode)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", session, fmt.Errorf("failed to decode chat response: %w", err)
	}

	reply := chatResp.Message.Content
	next := append(messages, Message{Role: "assistant", Content: reply})
	return reply, next, nil
}

// IsAvailable checks that the Ollama instance answers.
func (c *OllamaChat) IsAvailable(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, "GET", fmt.Sprintf("%s/api/tags", c.baseURL), nil)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("Ollama not available: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}
	return nil
}
