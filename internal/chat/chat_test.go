package chat

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/magma/internal/assistant"
	"github.com/lehigh-university-libraries/magma/internal/images"
	"github.com/lehigh-university-libraries/magma/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAsker struct {
	replies []string
	queries []assistant.Query
	clears  int
	err     error
}

func (f *fakeAsker) Ask(ctx context.Context, q assistant.Query) (*assistant.Answer, error) {
	if f.err != nil {
		return nil, f.err
	}
	// keep a copy since the session appends to its history afterwards
	q.History = append([]providers.Exchange(nil), q.History...)
	f.queries = append(f.queries, q)
	reply := "ok"
	if len(f.replies) > 0 {
		reply, f.replies = f.replies[0], f.replies[1:]
	}
	return &assistant.Answer{Reply: reply}, nil
}

func (f *fakeAsker) Clear(ctx context.Context, provider string, img *providers.Image) error {
	f.clears++
	return nil
}

type fakeLoader struct{}

func (fakeLoader) Load(ctx context.Context, ref string) (*images.Source, error) {
	if ref == "missing.png" {
		return nil, os.ErrNotExist
	}
	return &images.Source{
		Name:  ref,
		Data:  []byte("png"),
		MIME:  "image/png",
		Image: image.NewRGBA(image.Rect(0, 0, 200, 100)),
	}, nil
}

func TestSendWithoutImage(t *testing.T) {
	asker := &fakeAsker{}
	s := NewSession(asker, fakeLoader{}, Options{})

	reply, err := s.Send(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, assistant.NoImageReply, reply.Text)
	assert.Empty(t, asker.queries)
	assert.Empty(t, s.History())
}

func TestSendKeepsImageAndHistory(t *testing.T) {
	asker := &fakeAsker{replies: []string{"A form.", "Coordinate: (0.5, 0.5)"}}
	dir := t.TempDir()
	s := NewSession(asker, fakeLoader{}, Options{Provider: "stub", AnnotateDir: dir})
	require.NoError(t, s.SetImage(context.Background(), "page.png"))

	_, err := s.Send(context.Background(), "What is this?")
	require.NoError(t, err)
	reply, err := s.Send(context.Background(), "Where is submit?")
	require.NoError(t, err)

	require.Len(t, asker.queries, 2)
	for _, q := range asker.queries {
		require.NotNil(t, q.Image)
		assert.Equal(t, "stub", q.Provider)
	}
	assert.Empty(t, asker.queries[0].History)
	assert.Equal(t, []providers.Exchange{{User: "What is this?", Assistant: "A form."}}, asker.queries[1].History)

	require.NotNil(t, reply.Location)
	assert.Equal(t, filepath.Join(dir, "page_annotated_1.png"), reply.AnnotatedPath)
	assert.FileExists(t, reply.AnnotatedPath)
	assert.Len(t, s.History(), 2)
}

func TestSetImageResetsHistory(t *testing.T) {
	asker := &fakeAsker{}
	s := NewSession(asker, fakeLoader{}, Options{})
	require.NoError(t, s.SetImage(context.Background(), "a.png"))
	_, err := s.Send(context.Background(), "hi")
	require.NoError(t, err)
	require.Len(t, s.History(), 1)

	require.NoError(t, s.SetImage(context.Background(), "b.png"))
	assert.Empty(t, s.History())

	assert.Error(t, s.SetImage(context.Background(), "missing.png"))
}

func TestRun(t *testing.T) {
	asker := &fakeAsker{replies: []string{"Hello there.", "After clear."}}
	s := NewSession(asker, fakeLoader{}, Options{})

	input := strings.Join([]string{
		"first question",
		"/image",
		"/images page.png",
		"/image missing.png",
		"/image page.png",
		"what is this",
		"/clear",
		"again",
		"/quit",
		"never sent",
	}, "\n")

	var out strings.Builder
	require.NoError(t, Run(context.Background(), s, strings.NewReader(input), &out))

	text := out.String()
	assert.Contains(t, text, assistant.NoImageReply)
	assert.Contains(t, text, "usage: /image <path|url>")
	assert.Contains(t, text, "Image loaded: page.png (200x100)")
	assert.Contains(t, text, "Hello there.")
	assert.Contains(t, text, "Conversation cleared.")
	assert.Contains(t, text, "After clear.")

	// "/images page.png" is a prompt, not a command, and there is no image yet
	assert.Equal(t, 2, strings.Count(text, assistant.NoImageReply))
	assert.NotContains(t, text, "s page.png")

	require.Len(t, asker.queries, 2)
	assert.Empty(t, asker.queries[1].History)
	assert.Equal(t, 1, asker.clears)
}

func TestRunReportsErrors(t *testing.T) {
	asker := &fakeAsker{err: errors.New("provider down")}
	s := NewSession(asker, fakeLoader{}, Options{})
	require.NoError(t, s.SetImage(context.Background(), "page.png"))

	var out strings.Builder
	require.NoError(t, Run(context.Background(), s, strings.NewReader("hello\n"), &out))
	assert.Contains(t, out.String(), "Error: provider down")
	assert.Empty(t, s.History())
}
