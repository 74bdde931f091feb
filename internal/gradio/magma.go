package gradio

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lehigh-university-libraries/magma/internal/providers"
)

// Magma is a provider for the Magma-8B Gradio demo
type Magma struct {
	client *Client
}

// NewMagma returns a provider backed by the demo at client
func NewMagma(client *Client) *Magma {
	return &Magma{client: client}
}

// Generate asks the demo's /generate_response endpoint. The demo returns the
// whole chat history; the reply is the assistant side of its last exchange.
func (m *Magma) Generate(ctx context.Context, req providers.Request) (string, error) {
	var image any
	if req.Image != nil {
		fd, err := m.client.Upload(ctx, req.Image.Name, req.Image.Data)
		if err != nil {
			return "", err
		}
		image = fd
	}

	history := make([][2]string, 0, len(req.History))
	for _, ex := range req.History {
		history = append(history, [2]string{ex.User, ex.Assistant})
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 128
	}

	out, err := m.client.Predict(ctx, "/generate_response",
		image,
		req.SystemPrompt,
		req.Prompt,
		history,
		maxTokens,
		req.Temperature,
		req.Temperature > 0,
		1,
	)
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", fmt.Errorf("no output returned from gradio")
	}

	return lastReply(out[0])
}

// Clear resets the demo's conversation while keeping the image
func (m *Magma) Clear(ctx context.Context, image *providers.Image) error {
	var arg any
	if image != nil {
		fd, err := m.client.Upload(ctx, image.Name, image.Data)
		if err != nil {
			return err
		}
		arg = fd
	}
	if _, err := m.client.Predict(ctx, "/clear_conversation", arg); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}

// lastReply accepts both chatbot formats: tuples ([[user, bot], ...]) and
// messages ([{"role": ..., "content": ...}, ...])
func lastReply(raw json.RawMessage) (string, error) {
	var tuples [][]*string
	if err := json.Unmarshal(raw, &tuples); err == nil {
		if len(tuples) == 0 {
			return "", fmt.Errorf("empty chat history returned from gradio")
		}
		last := tuples[len(tuples)-1]
		if len(last) < 2 || last[1] == nil {
			return "", fmt.Errorf("last exchange has no reply")
		}
		return *last[1], nil
	}

	var messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &messages); err != nil {
		return "", fmt.Errorf("unexpected chat history format: %w", err)
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "assistant" {
			return messages[i].Content, nil
		}
	}
	return "", fmt.Errorf("no assistant message returned from gradio")
}
