package fileserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	DefaultPort     = 8000
	DefaultAttempts = 100
)

// ErrNoFreePort is returned when every port in the searched range is taken
var ErrNoFreePort = errors.New("could not find a free port")

// FindFreePort returns the first port in [start, start+attempts) that can be bound
func FindFreePort(start, attempts int) (int, error) {
	for port := start; port < start+attempts; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err != nil {
			continue
		}
		ln.Close()
		return port, nil
	}
	return 0, fmt.Errorf("%w in range %d-%d", ErrNoFreePort, start, start+attempts-1)
}

// Listen binds port, falling back to a free port from DefaultPort when it is
// taken. Port 0 always searches.
func Listen(port int) (net.Listener, error) {
	if port != 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return ln, nil
		}
		slog.Warn("Port unavailable, searching for a free one", "port", port, "err", err)
	}

	free, err := FindFreePort(DefaultPort, DefaultAttempts)
	if err != nil {
		return nil, err
	}
	return net.Listen("tcp", fmt.Sprintf(":%d", free))
}

// Handler serves files from dir
func Handler(dir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}

// Serve serves dir until ctx is cancelled. ready, when non-nil, receives the
// bound address once the listener is up.
func Serve(ctx context.Context, dir string, port int, ready func(addr string)) error {
	ln, err := Listen(port)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           Handler(dir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	addr := ln.Addr().String()
	slog.Info("Serving files", "dir", dir, "addr", addr)
	if ready != nil {
		ready(addr)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	slog.Info("File server stopped")
	return nil
}
