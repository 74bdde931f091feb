package providers

import (
	"context"
)

// Exchange is one completed user/assistant turn
type Exchange struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Image is an encoded image attached to a request
type Image struct {
	Name string
	Data []byte
	MIME string
}

// Request represents a single generation request to a vision-language model
type Request struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	SystemPrompt string
	Prompt       string

	// Image is attached to the current prompt when set
	Image *Image

	// History holds previous turns of the conversation, oldest first
	History []Exchange
}

// Provider defines the interface for a vision-language model backend
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Clearer is implemented by providers that keep server-side conversation
// state
type Clearer interface {
	Clear(ctx context.Context, image *Image) error
}
