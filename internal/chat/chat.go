package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/magma/internal/annotate"
	"github.com/lehigh-university-libraries/magma/internal/assistant"
	"github.com/lehigh-university-libraries/magma/internal/coords"
	"github.com/lehigh-university-libraries/magma/internal/images"
	"github.com/lehigh-university-libraries/magma/internal/providers"
)

// Asker answers questions and resets provider conversations
type Asker interface {
	Ask(ctx context.Context, q assistant.Query) (*assistant.Answer, error)
	Clear(ctx context.Context, provider string, image *providers.Image) error
}

// ImageLoader loads images from paths or URLs
type ImageLoader interface {
	Load(ctx context.Context, ref string) (*images.Source, error)
}

type Options struct {
	Provider     string
	Model        string
	SystemPrompt string
	Temperature  *float64
	MaxTokens    int

	// AnnotateDir receives a marked copy of the image whenever a reply has coordinates
	AnnotateDir string
}

// Reply is one assistant turn
type Reply struct {
	Text          string
	Location      *coords.Location
	AnnotatedPath string
}

// Session is a conversation about one sticky image
type Session struct {
	asker  Asker
	loader ImageLoader
	opts   Options

	image   *images.Source
	history []providers.Exchange
	saved   int
}

func NewSession(asker Asker, loader ImageLoader, opts Options) *Session {
	return &Session{asker: asker, loader: loader, opts: opts}
}

// History returns the exchanges so far
func (s *Session) History() []providers.Exchange {
	return s.history
}

// SetImage switches the sticky image and starts a new conversation
func (s *Session) SetImage(ctx context.Context, ref string) error {
	src, err := s.loader.Load(ctx, ref)
	if err != nil {
		return err
	}
	s.image = src
	s.history = nil
	slog.Debug("Chat image set", "name", src.Name, "width", src.Width(), "height", src.Height())
	return nil
}

// Clear drops the history but keeps the image
func (s *Session) Clear(ctx context.Context) {
	s.history = nil
	if err := s.asker.Clear(ctx, s.opts.Provider, assistant.ImageFrom(s.image)); err != nil {
		slog.Warn("Unable to clear provider conversation", "err", err)
	}
}

// Send asks about the sticky image. Without an image nothing is sent and the
// reply asks for one.
func (s *Session) Send(ctx context.Context, prompt string) (*Reply, error) {
	if s.image == nil {
		return &Reply{Text: assistant.NoImageReply}, nil
	}

	answer, err := s.asker.Ask(ctx, assistant.Query{
		Provider:     s.opts.Provider,
		Model:        s.opts.Model,
		SystemPrompt: s.opts.SystemPrompt,
		Prompt:       prompt,
		Image:        assistant.ImageFrom(s.image),
		History:      s.history,
		Temperature:  s.opts.Temperature,
		MaxTokens:    s.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	assistant.ParseInto(answer)

	s.history = append(s.history, providers.Exchange{User: prompt, Assistant: answer.Reply})

	reply := &Reply{Text: answer.Reply, Location: answer.Location}
	if answer.Location != nil && s.opts.AnnotateDir != "" {
		s.saved++
		base := strings.TrimSuffix(s.image.Name, filepath.Ext(s.image.Name))
		path := filepath.Join(s.opts.AnnotateDir, fmt.Sprintf("%s_annotated_%d.png", base, s.saved))
		if err := annotate.SavePNG(annotate.Draw(s.image.Image, *answer.Location, annotate.Annotate), path); err != nil {
			slog.Warn("Unable to save annotated image", "path", path, "err", err)
		} else {
			reply.AnnotatedPath = path
		}
	}
	return reply, nil
}

const help = `Commands:
  /image <path|url>  switch image (starts a new conversation)
  /clear             clear the conversation, keep the image
  /quit              exit`

// errQuit ends the loop
var errQuit = errors.New("quit")

// Run reads prompts line by line from in until EOF, /quit or ctx ends
func Run(ctx context.Context, s *Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(out, help)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return nil
		}

		err := handleLine(ctx, s, strings.TrimSpace(scanner.Text()), out)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
	}
}

func handleLine(ctx context.Context, s *Session, line string, out io.Writer) error {
	switch {
	case line == "":
		return nil
	case line == "/quit" || line == "/exit":
		return errQuit
	case line == "/help":
		fmt.Fprintln(out, help)
		return nil
	case line == "/clear":
		s.Clear(ctx)
		fmt.Fprintln(out, "Conversation cleared.")
		return nil
	case line == "/image" || strings.HasPrefix(line, "/image "):
		ref := strings.TrimSpace(strings.TrimPrefix(line, "/image"))
		if ref == "" {
			return fmt.Errorf("usage: /image <path|url>")
		}
		if err := s.SetImage(ctx, ref); err != nil {
			return err
		}
		fmt.Fprintf(out, "Image loaded: %s (%dx%d)\n", s.image.Name, s.image.Width(), s.image.Height())
		return nil
	}

	reply, err := s.Send(ctx, line)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, reply.Text)
	if reply.Location != nil {
		fmt.Fprintf(out, "[%s at %v]\n", reply.Location.Kind, reply.Location.ClickTarget(s.image.Width(), s.image.Height()))
	}
	if reply.AnnotatedPath != "" {
		fmt.Fprintf(out, "[annotated image: %s]\n", reply.AnnotatedPath)
	}
	return nil
}
