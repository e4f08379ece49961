package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server serves one generated page on a loopback address.
type Server struct {
	srv      *http.Server
	listener net.Listener
	page     []byte
	done     chan error
}

// Start generates the page for cfg and serves it on 127.0.0.1 at a free
// port until Close is called.
func Start(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	var buf bytes.Buffer

	summary, err := NewGenerator(cfg).Generate(&buf)
	if err != nil {
		return nil, fmt.Errorf("generate fixture page: %w", err)
	}

	var lc net.ListenConfig

	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{
		listener: ln,
		page:     buf.Bytes(),
		done:     make(chan error, 1),
	}
	s.srv = &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()

	logger.InfoContext(ctx, "fixture page served",
		slog.String("url", s.URL()),
		slog.Int("bytes", summary.Bytes),
		slog.Int("paragraphs", summary.Paragraphs),
		slog.Int("links", summary.Links),
		slog.Int("images", summary.Images),
	)

	return s, nil
}

// URL returns the address of the page.
func (s *Server) URL() string {
	return "http://" + s.listener.Addr().String() + "/"
}

// ServeHTTP writes the page for GET and HEAD on any path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	http.ServeContent(w, r, "index.html", time.Time{}, bytes.NewReader(s.page))
}

// Close stops the server and waits for it to exit.
func (s *Server) Close(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown fixture server: %w", err)
	}

	return <-s.done
}
