// Package preview serves the generated site locally and rebuilds it when
// the docs tree changes.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/docship/internal/config"
	"git.home.luguber.info/inful/docship/internal/logfields"
	"git.home.luguber.info/inful/docship/internal/site"
)

const rebuildDebounce = 300 * time.Millisecond

// Server serves the output directory over HTTP and rebuilds the site on
// filesystem changes under the docs directory.
type Server struct {
	cfg  *config.Config
	gen  *site.Generator
	port int

	mu        sync.RWMutex
	lastError error
}

// New creates a preview server. Port 0 picks a random free port.
func New(cfg *config.Config, port int) *Server {
	return &Server{
		cfg:  cfg,
		gen:  site.NewGenerator(cfg.Site, cfg.Output),
		port: port,
	}
}

// Serve builds the site, starts the HTTP listener and blocks until ctx is
// cancelled or the server fails.
func (s *Server) Serve(ctx context.Context) error {
	absDocs, err := filepath.Abs(s.cfg.Site.DocsDir)
	if err != nil {
		return fmt.Errorf("resolve docs dir: %w", err)
	}
	if st, statErr := os.Stat(absDocs); statErr != nil || !st.IsDir() {
		return fmt.Errorf("docs dir not found or not a directory: %s", absDocs)
	}

	if err := s.rebuild(); err != nil {
		// Keep running; requests answer 503 until a change fixes the build.
		slog.Error("Initial build failed", logfields.Error(err))
	}

	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	server := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("Preview server listening",
		logfields.URL(fmt.Sprintf("http://%s", listener.Addr())),
		logfields.Path(absDocs))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := addDirsRecursive(watcher, absDocs); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	rebuildReq, trigger := newDebouncer()
	go s.rebuildWorker(ctx, rebuildReq)

	for {
		select {
		case <-ctx.Done():
			return s.shutdown(server)
		case err := <-serveErr:
			return fmt.Errorf("preview server: %w", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return s.shutdown(server)
			}
			s.handleEvent(watcher, ev, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return s.shutdown(server)
			}
			slog.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// LastError reports the most recent build failure, if any.
func (s *Server) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

// handler serves the built site. While the docs tree fails to build it
// answers 503 with the build error, so a stale page is never mistaken for
// a current one.
func (s *Server) handler() http.Handler {
	files := http.FileServer(http.Dir(s.cfg.Output.Directory))
	return noCache(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.LastError(); err != nil {
			http.Error(w, "site build failed: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		files.ServeHTTP(w, r)
	}))
}

func (s *Server) shutdown(server *http.Server) error {
	slog.Info("Shutting down preview server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func (s *Server) rebuild() error {
	report, err := s.gen.Build()
	s.mu.Lock()
	s.lastError = err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	slog.Info("Site rebuilt",
		slog.Int("pages", len(report.Pages)),
		logfields.DurationMS(float64(report.Duration.Milliseconds())))
	return nil
}

func (s *Server) rebuildWorker(ctx context.Context, rebuildReq <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-rebuildReq:
			if !ok {
				return
			}
			slog.Info("Change detected; rebuilding site")
			if err := s.rebuild(); err != nil {
				slog.Warn("Rebuild failed", logfields.Error(err))
			}
		}
	}
}

func (s *Server) handleEvent(watcher *fsnotify.Watcher, ev fsnotify.Event, trigger func()) {
	if shouldIgnoreEvent(ev.Name) {
		return
	}
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = addDirsRecursive(watcher, ev.Name)
		}
	}
	slog.Debug("File change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
	trigger()
}

// newDebouncer coalesces bursts of filesystem events into one rebuild request.
func newDebouncer() (chan struct{}, func()) {
	var mu sync.Mutex
	var timer *time.Timer
	rebuildReq := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(rebuildDebounce, func() {
			select {
			case rebuildReq <- struct{}{}:
			default:
			}
		})
	}

	return rebuildReq, trigger
}

// noCache forces browsers to refetch every page; stale previews defeat the
// point of the watcher.
func noCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")
		next.ServeHTTP(w, r)
	})
}

func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != root {
				return filepath.SkipDir
			}
			if err := w.Add(path); err != nil {
				slog.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// shouldIgnoreEvent returns true for filesystem events that should not trigger rebuilds.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)

	if strings.HasPrefix(base, ".") {
		return true
	}

	// Editor temp/swap files.
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, ".#") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}

	if base == ".DS_Store" || base == "Thumbs.db" {
		return true
	}

	return false
}
