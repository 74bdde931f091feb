package models

import (
	"time"

	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/providers"
)

// ChatSession is a conversation about one uploaded image
type ChatSession struct {
	ID           string               `json:"id"`
	ImagePath    string               `json:"image_path"`
	ImageURL     string               `json:"image_url"`
	ImageMIME    string               `json:"image_mime"`
	ImageWidth   int                  `json:"image_width"`
	ImageHeight  int                  `json:"image_height"`
	Provider     string               `json:"provider,omitempty"`
	Model        string               `json:"model,omitempty"`
	SystemPrompt string               `json:"system_prompt,omitempty"`
	History      []providers.Exchange `json:"history"`
	LastLocation *coords.Location     `json:"last_location,omitempty"`
	AnnotatedURL string               `json:"annotated_url,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// MessageResult is the outcome of one chat turn
type MessageResult struct {
	Reply        string           `json:"reply"`
	Provider     string           `json:"provider"`
	Model        string           `json:"model,omitempty"`
	Location     *coords.Location `json:"location,omitempty"`
	AnnotatedURL string           `json:"annotated_url,omitempty"`
	Duration     float64          `json:"duration_seconds"`
	Turns        int              `json:"turns"`
}

// Clone returns a copy that shares no mutable state with cs
func (cs *ChatSession) Clone() *ChatSession {
	c := *cs
	c.History = append([]providers.Exchange{}, cs.History...)
	if cs.LastLocation != nil {
		loc := *cs.LastLocation
		c.LastLocation = &loc
	}
	return &c
}
