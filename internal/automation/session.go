package automation

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/magma/internal/annotate"
	"github.com/lehigh-university-libraries/magma/internal/assistant"
	"github.com/lehigh-university-libraries/magma/internal/browser"
	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/providers"
)

var (
	// ErrNoScreenshot is returned by Analyze before a page was captured
	ErrNoScreenshot = errors.New("no screenshot available, capture a page first")

	// ErrNoLocation is returned by Execute before a location was detected
	ErrNoLocation = errors.New("no coordinates detected, analyze the screenshot first")
)

// Browser captures pages and clicks on them
type Browser interface {
	Capture(ctx context.Context, url string) (*browser.Screenshot, error)
	Click(ctx context.Context, url string, loc coords.Location) (*browser.ActionResult, error)
}

// Locator asks a model where something is
type Locator interface {
	Locate(ctx context.Context, q assistant.Query) (*assistant.Answer, error)
}

// Analysis is the model's reading of the current screenshot
type Analysis struct {
	Answer      *assistant.Answer
	Highlighted image.Image
}

// Session holds the current screenshot and detected location for one
// capture, analyze, execute cycle
type Session struct {
	browser  Browser
	locator  Locator
	Provider string
	Model    string

	mu         sync.Mutex
	url        string
	screenshot *browser.Screenshot
	location   *coords.Location
}

// NewSession creates an empty session
func NewSession(b Browser, l Locator) *Session {
	return &Session{browser: b, locator: l}
}

// Screenshot returns the current screenshot, if any
func (s *Session) Screenshot() *browser.Screenshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screenshot
}

// Location returns the detected location, if any
func (s *Session) Location() *coords.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// Capture loads url and makes its screenshot current. Any previously
// detected location is discarded.
func (s *Session) Capture(ctx context.Context, url string) (*browser.Screenshot, error) {
	shot, err := s.browser.Capture(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}

	s.mu.Lock()
	s.url = shot.URL
	s.screenshot = shot
	s.location = nil
	s.mu.Unlock()

	slog.Info("Captured page", "url", shot.URL)
	return shot, nil
}

// Analyze asks the model to locate prompt in the current screenshot. The
// default prompt looks for the main call-to-action.
func (s *Session) Analyze(ctx context.Context, prompt string) (*Analysis, error) {
	s.mu.Lock()
	shot := s.screenshot
	s.mu.Unlock()
	if shot == nil {
		return nil, ErrNoScreenshot
	}

	if prompt == "" {
		prompt = assistant.WebUserPrompt
	}

	answer, err := s.locator.Locate(ctx, assistant.Query{
		Provider:     s.Provider,
		Model:        s.Model,
		SystemPrompt: assistant.WebSystemPrompt,
		Prompt:       prompt,
		Image: &providers.Image{
			Name: "screenshot.png",
			Data: shot.PNG,
			MIME: "image/png",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	analysis := &Analysis{Answer: answer}

	s.mu.Lock()
	s.location = answer.Location
	s.mu.Unlock()

	if answer.Location == nil {
		slog.Warn("No coordinates in reply", "reply", answer.Reply, "err", answer.ParseErr)
		return analysis, nil
	}

	analysis.Highlighted = annotate.Draw(shot.Image, *answer.Location, annotate.Highlight)
	slog.Info("Detected location", "location", answer.Location.String())
	return analysis, nil
}

// Execute clicks the detected location on the captured page
func (s *Session) Execute(ctx context.Context) (*browser.ActionResult, error) {
	s.mu.Lock()
	url, loc := s.url, s.location
	s.mu.Unlock()

	if loc == nil {
		return nil, ErrNoLocation
	}

	result, err := s.browser.Click(ctx, url, *loc)
	if err != nil {
		return nil, fmt.Errorf("action failed: %w", err)
	}
	slog.Info("Executed click", "url", url, "x", result.Target.X, "y", result.Target.Y, "title", result.Title)
	return result, nil
}
