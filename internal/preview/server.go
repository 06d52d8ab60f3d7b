// Package preview serves a built site with live reload and metrics.
package preview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/sitepipe/internal/logfields"
	"git.home.luguber.info/inful/sitepipe/internal/metrics"
)

const scriptTag = `<script src="/livereload.js"></script>`

// Server serves the output directory, the live-reload stream and /metrics.
type Server struct {
	root     string
	hub      *LiveReloadHub
	gatherer prom.Gatherer
	logger   *slog.Logger

	srv *http.Server
	ln  net.Listener
}

// NewServer creates a server for root. A nil gatherer serves the default
// Prometheus registry.
func NewServer(root string, hub *LiveReloadHub, gatherer prom.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{root: root, hub: hub, gatherer: gatherer, logger: logger}
}

// Handler returns the routing mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/livereload", s.hub)
	mux.HandleFunc("/livereload.js", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		if _, err := w.Write([]byte(LiveReloadScript)); err != nil {
			s.logger.Debug("failed to write livereload script", logfields.Error(err))
		}
	})
	mux.Handle("/metrics", metrics.HTTPHandler(s.gatherer))
	mux.Handle("/", http.HandlerFunc(s.serveSite))
	return mux
}

// Start binds addr and serves in the background. Use Addr for the bound
// address when addr requests an ephemeral port.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("preview listen %s: %w", addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second, IdleTimeout: 120 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Preview server error", logfields.Error(err))
		}
	}()
	s.logger.Info("Preview server listening", slog.String("url", "http://"+ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop disconnects live-reload clients and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Shutdown()
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// serveSite serves files from root, injecting the live-reload script into
// HTML pages.
func (s *Server) serveSite(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	file := filepath.Join(s.root, filepath.FromSlash(name))
	if fi, err := os.Stat(file); err == nil && fi.IsDir() {
		file = filepath.Join(file, "index.html")
	}
	if !strings.EqualFold(filepath.Ext(file), ".html") {
		http.FileServer(http.Dir(s.root)).ServeHTTP(w, r)
		return
	}
	body, err := os.ReadFile(file)
	if err != nil {
		http.FileServer(http.Dir(s.root)).ServeHTTP(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(injectScript(body)); err != nil {
		s.logger.Debug("failed to write page", logfields.Path(file), logfields.Error(err))
	}
}

func injectScript(body []byte) []byte {
	if i := bytes.LastIndex(bytes.ToLower(body), []byte("</body>")); i >= 0 {
		out := make([]byte, 0, len(body)+len(scriptTag))
		out = append(out, body[:i]...)
		out = append(out, scriptTag...)
		return append(out, body[i:]...)
	}
	return append(body, scriptTag...)
}
