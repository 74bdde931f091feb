package gradio

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Gradio 5 mounts the API routes under this prefix
const apiPrefix = "/gradio_api"

var (
	ErrAppError   = errors.New("gradio app returned an error")
	ErrNoComplete = errors.New("gradio stream ended without a result")
)

// FileData references a file uploaded to a Gradio server
type FileData struct {
	Path     string       `json:"path"`
	OrigName string       `json:"orig_name,omitempty"`
	Meta     FileDataMeta `json:"meta"`
}

// FileDataMeta tags FileData for the Gradio payload decoder
type FileDataMeta struct {
	Type string `json:"_type"`
}

// Client talks to a Gradio app over its HTTP API
type Client struct {
	baseURL string
	resty   *resty.Client
	limiter *rate.Limiter

	mu     sync.Mutex
	prefix string
}

// Options configures a Client
type Options struct {
	// RequestsPerSecond paces calls; zero disables pacing
	RequestsPerSecond float64
	Timeout           time.Duration
	RetryMax          int
}

// New creates a Gradio client for the app at baseURL
func New(baseURL string, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Minute
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = 3
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.RetryMax
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 30 * time.Second
	retryClient.Logger = nil

	restyClient := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", "magma/1.0")

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		resty:   restyClient,
		limiter: limiter,
	}
}

func (c *Client) currentPrefix() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefix
}

func (c *Client) usePrefix(p string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prefix != p {
		slog.Debug("Switching gradio API prefix", "prefix", p)
	}
	c.prefix = p
}

// do runs call against the current route prefix and retries once under the
// Gradio 5 prefix when the bare route is missing
func (c *Client) do(ctx context.Context, call func(base string) (*resty.Response, error)) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	prefix := c.currentPrefix()
	resp, err := call(c.baseURL + prefix)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == http.StatusNotFound && prefix == "" {
		resp, err = call(c.baseURL + apiPrefix)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode() != http.StatusNotFound {
			c.usePrefix(apiPrefix)
		}
	}
	return resp, nil
}

// Upload sends a file to the server and returns a reference usable as a
// file argument
func (c *Client) Upload(ctx context.Context, name string, data []byte) (*FileData, error) {
	resp, err := c.do(ctx, func(base string) (*resty.Response, error) {
		return c.resty.R().
			SetContext(ctx).
			SetFileReader("files", name, bytes.NewReader(data)).
			Post(base + "/upload")
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("upload returned status %d: %s", resp.StatusCode(), resp.String())
	}

	var paths []string
	if err := json.Unmarshal(resp.Body(), &paths); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("upload returned no paths")
	}

	return &FileData{
		Path:     paths[0],
		OrigName: name,
		Meta:     FileDataMeta{Type: "gradio.FileData"},
	}, nil
}

// Predict calls the named endpoint with positional args and returns its
// output values
func (c *Client) Predict(ctx context.Context, apiName string, args ...any) ([]json.RawMessage, error) {
	apiName = strings.TrimPrefix(apiName, "/")
	if args == nil {
		args = []any{}
	}

	var queued struct {
		EventID string `json:"event_id"`
	}
	resp, err := c.do(ctx, func(base string) (*resty.Response, error) {
		return c.resty.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]any{"data": args}).
			Post(base + "/call/" + apiName)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", apiName, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("call %s returned status %d: %s", apiName, resp.StatusCode(), resp.String())
	}
	if err := json.Unmarshal(resp.Body(), &queued); err != nil {
		return nil, fmt.Errorf("failed to decode call response: %w", err)
	}
	if queued.EventID == "" {
		return nil, fmt.Errorf("call %s returned no event id", apiName)
	}

	slog.Debug("Gradio call queued", "api", apiName, "event_id", queued.EventID)

	stream, err := c.resty.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(c.baseURL + c.currentPrefix() + "/call/" + apiName + "/" + queued.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s result: %w", apiName, err)
	}
	body := stream.RawBody()
	defer body.Close()

	if stream.StatusCode() != http.StatusOK {
		msg, _ := io.ReadAll(body)
		return nil, fmt.Errorf("result stream for %s returned status %d: %s", apiName, stream.StatusCode(), string(msg))
	}

	return readResult(body)
}

// readResult consumes a server-sent event stream until the complete event
func readResult(r io.Reader) ([]json.RawMessage, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case "complete":
				var out []json.RawMessage
				if err := json.Unmarshal([]byte(data), &out); err != nil {
					return nil, fmt.Errorf("failed to decode result: %w", err)
				}
				return out, nil
			case "error":
				if data == "" || data == "null" {
					return nil, ErrAppError
				}
				return nil, fmt.Errorf("%w: %s", ErrAppError, data)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read result stream: %w", err)
	}
	return nil, ErrNoComplete
}
