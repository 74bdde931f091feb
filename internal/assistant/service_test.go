package assistant

import (
	"context"
	"errors"
	"testing"

	"github.com/lehigh-university-libraries/magma/internal/config"
	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	reply   string
	err     error
	last    providers.Request
	cleared bool
}

func (s *stubProvider) Generate(ctx context.Context, req providers.Request) (string, error) {
	s.last = req
	return s.reply, s.err
}

func (s *stubProvider) Clear(ctx context.Context, image *providers.Image) error {
	s.cleared = true
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Provider:     "stub",
		SystemPrompt: config.DefaultSystemPrompt,
		MaxNewTokens: 128,
		OllamaModel:  "llava:13b",
	}
}

func TestAskAppliesDefaults(t *testing.T) {
	stub := &stubProvider{reply: "A chart."}
	svc := NewService(testConfig())
	svc.Register("stub", stub)

	answer, err := svc.Ask(context.Background(), Query{Prompt: DefaultQuestion})
	require.NoError(t, err)

	assert.Equal(t, "A chart.", answer.Reply)
	assert.Equal(t, "stub", answer.Provider)
	assert.Equal(t, config.DefaultSystemPrompt, stub.last.SystemPrompt)
	assert.Equal(t, 128, stub.last.MaxTokens)
	assert.Equal(t, 0.0, stub.last.Temperature)

	temp := 0.7
	_, err = svc.Ask(context.Background(), Query{Prompt: "again", Temperature: &temp, MaxTokens: 16, SystemPrompt: "custom"})
	require.NoError(t, err)
	assert.Equal(t, 0.7, stub.last.Temperature)
	assert.Equal(t, 16, stub.last.MaxTokens)
	assert.Equal(t, "custom", stub.last.SystemPrompt)
}

func TestAskUsesProviderDefaultModel(t *testing.T) {
	stub := &stubProvider{reply: "ok"}
	svc := NewService(testConfig())
	svc.Register("ollama", stub)

	answer, err := svc.Ask(context.Background(), Query{Provider: "ollama", Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "llava:13b", answer.Model)
	assert.Equal(t, "llava:13b", stub.last.Model)
}

func TestAskUnknownProvider(t *testing.T) {
	svc := NewService(testConfig())
	_, err := svc.Ask(context.Background(), Query{Provider: "watson"})
	assert.ErrorContains(t, err, "unsupported provider: watson")
}

func TestAskProviderError(t *testing.T) {
	svc := NewService(testConfig())
	svc.Register("stub", &stubProvider{err: errors.New("connection refused")})

	_, err := svc.Ask(context.Background(), Query{Prompt: "hi"})
	assert.ErrorContains(t, err, "stub: connection refused")
}

func TestResolveProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Provider = ""
	svc := NewService(cfg)

	p, name, err := svc.Provider("")
	require.NoError(t, err)
	assert.Equal(t, DefaultProvider, name)
	assert.NotNil(t, p)

	// built-in providers are cached
	again, _, err := svc.Provider("gradio")
	require.NoError(t, err)
	assert.Same(t, p, again)
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected *coords.Location
		parseErr error
	}{
		{
			name:     "bbox reply",
			reply:    "The button is at Coordinate: (0.1, 0.2, 0.3, 0.4)",
			expected: &coords.Location{Kind: coords.KindBox, Box: coords.Box{XMin: 0.1, YMin: 0.2, XMax: 0.3, YMax: 0.4}},
		},
		{
			name:     "no coordinates",
			reply:    "There is no button in this image.",
			parseErr: coords.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(testConfig())
			svc.Register("stub", &stubProvider{reply: tt.reply})

			answer, err := svc.Locate(context.Background(), Query{Prompt: WebUserPrompt})
			require.NoError(t, err)
			if tt.expected != nil {
				require.NotNil(t, answer.Location)
				assert.Equal(t, *tt.expected, *answer.Location)
				assert.NoError(t, answer.ParseErr)
			} else {
				assert.Nil(t, answer.Location)
				assert.ErrorIs(t, answer.ParseErr, tt.parseErr)
			}
		})
	}
}

func TestClear(t *testing.T) {
	stub := &stubProvider{}
	svc := NewService(testConfig())
	svc.Register("stub", stub)

	require.NoError(t, svc.Clear(context.Background(), "", nil))
	assert.True(t, stub.cleared)
}
