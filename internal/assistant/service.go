package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/magma/internal/config"
	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/gemini"
	"github.com/lehigh-university-libraries/magma/internal/gradio"
	"github.com/lehigh-university-libraries/magma/internal/monitoring"
	"github.com/lehigh-university-libraries/magma/internal/ollama"
	"github.com/lehigh-university-libraries/magma/internal/openai"
	"github.com/lehigh-university-libraries/magma/internal/providers"
)

// DefaultProvider is used when neither the caller nor MAGMA_PROVIDER names one
const DefaultProvider = "gradio"

// Query is one question about an image
type Query struct {
	Provider     string
	Model        string
	SystemPrompt string
	Prompt       string
	Image        *providers.Image
	History      []providers.Exchange

	// Temperature overrides the configured temperature when set
	Temperature *float64
	MaxTokens   int
}

// Answer is the model's reply and, for Locate, the parsed location
type Answer struct {
	Provider string           `json:"provider"`
	Model    string           `json:"model,omitempty"`
	Reply    string           `json:"reply"`
	Location *coords.Location `json:"location,omitempty"`
	ParseErr error            `json:"-"`
	Duration time.Duration    `json:"duration"`
}

// Service routes questions to the configured model providers
type Service struct {
	cfg *config.Config

	mu        sync.Mutex
	providers map[string]providers.Provider
}

// NewService creates a service using cfg for provider endpoints and defaults
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg:       cfg,
		providers: make(map[string]providers.Provider),
	}
}

// Register installs p under name, replacing any built-in provider
func (s *Service) Register(name string, p providers.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[name] = p
}

func (s *Service) resolveName(name string) string {
	if name != "" {
		return name
	}
	if s.cfg.Provider != "" {
		return s.cfg.Provider
	}
	return DefaultProvider
}

// Provider returns the provider registered under name, building a built-in
// one on first use
func (s *Service) Provider(name string) (providers.Provider, string, error) {
	name = s.resolveName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.providers[name]; ok {
		return p, name, nil
	}

	var p providers.Provider
	switch name {
	case "gradio":
		p = gradio.NewMagma(gradio.New(s.cfg.GradioURL, gradio.Options{RequestsPerSecond: s.cfg.GradioRPS}))
	case "ollama":
		p = ollama.New(s.cfg.OllamaBaseURL())
	case "openai":
		p = openai.New(s.cfg.OpenAIBaseURL, s.cfg.OpenAIKey)
	case "gemini":
		p = gemini.New(s.cfg.GeminiKey)
	default:
		return nil, name, fmt.Errorf("unsupported provider: %s", name)
	}
	s.providers[name] = p
	return p, name, nil
}

// Ask sends a single turn to the model
func (s *Service) Ask(ctx context.Context, q Query) (*Answer, error) {
	p, name, err := s.Provider(q.Provider)
	if err != nil {
		return nil, err
	}

	model := q.Model
	if model == "" {
		model = s.cfg.DefaultModel(name)
	}
	systemPrompt := q.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = s.cfg.SystemPrompt
	}
	temperature := s.cfg.Temperature
	if q.Temperature != nil {
		temperature = *q.Temperature
	}
	maxTokens := q.MaxTokens
	if maxTokens == 0 {
		maxTokens = s.cfg.MaxNewTokens
	}

	slog.Debug("Asking model", "provider", name, "model", model, "has_image", q.Image != nil, "history", len(q.History))

	start := time.Now()
	reply, err := p.Generate(ctx, providers.Request{
		Model:        model,
		Temperature:  temperature,
		MaxTokens:    maxTokens,
		SystemPrompt: systemPrompt,
		Prompt:       q.Prompt,
		Image:        q.Image,
		History:      q.History,
	})
	elapsed := time.Since(start)
	monitoring.RecordProviderCall(name, err, elapsed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	slog.Info("Model replied", "provider", name, "model", model, "duration", elapsed, "length", len(reply))

	return &Answer{
		Provider: name,
		Model:    model,
		Reply:    reply,
		Duration: elapsed,
	}, nil
}

// Locate asks the model and parses a coordinate from the reply. A reply
// without a usable coordinate is not an error; ParseErr says why.
func (s *Service) Locate(ctx context.Context, q Query) (*Answer, error) {
	answer, err := s.Ask(ctx, q)
	if err != nil {
		return nil, err
	}
	ParseInto(answer)
	return answer, nil
}

// ParseInto fills Location or ParseErr from the answer's reply
func ParseInto(answer *Answer) {
	loc, err := coords.Parse(answer.Reply)
	if err != nil {
		answer.ParseErr = err
		monitoring.RecordLocation(outcome(err))
		return
	}
	answer.Location = &loc
	monitoring.RecordLocation(string(loc.Kind))
}

func outcome(err error) string {
	switch {
	case errors.Is(err, coords.ErrNotFound):
		return "not_found"
	case errors.Is(err, coords.ErrMalformed):
		return "malformed"
	case errors.Is(err, coords.ErrOutOfRange):
		return "out_of_range"
	default:
		return "error"
	}
}

// Clear resets server-side conversation state for providers that keep it
func (s *Service) Clear(ctx context.Context, provider string, image *providers.Image) error {
	p, name, err := s.Provider(provider)
	if err != nil {
		return err
	}
	c, ok := p.(providers.Clearer)
	if !ok {
		return nil
	}
	if err := c.Clear(ctx, image); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
