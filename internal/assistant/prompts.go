package assistant

import (
	"github.com/lehigh-university-libraries/magma/internal/images"
	"github.com/lehigh-university-libraries/magma/internal/providers"
)

const (
	// WebSystemPrompt frames screenshot analysis
	WebSystemPrompt = "You are an assistant that analyzes web screenshots to find buttons and elements."

	// WebUserPrompt asks for the page's primary action
	WebUserPrompt = "Find the main call-to-action button in this image and give me its coordinates."

	// DefaultQuestion is asked when no prompt is given
	DefaultQuestion = "What is in this image?"

	// NoImageReply answers a first prompt sent without an image
	NoImageReply = "Please provide an image to start the conversation."
)

// ImageFrom wraps a loaded image for a provider request
func ImageFrom(src *images.Source) *providers.Image {
	if src == nil {
		return nil
	}
	return &providers.Image{
		Name: src.Name,
		Data: src.Data,
		MIME: src.MIME,
	}
}
