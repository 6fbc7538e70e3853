package server

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nao1215/codeflip/internal/model"
	"github.com/nao1215/codeflip/internal/page"
	"github.com/nao1215/codeflip/internal/pipeline"
)

// Response headers carrying the processing result of a page.
const (
	HeaderConverted = "X-Codeflip-Converted"
	HeaderFailed    = "X-Codeflip-Failed"
	HeaderFootnotes = "X-Codeflip-Footnotes"
)

// DefaultRequestTimeout bounds the processing of one request.
const DefaultRequestTimeout = 60 * time.Second

// SettingsFunc returns the pipeline settings for the page at rel, a
// slash-separated path relative to the served directory.
type SettingsFunc func(rel string) pipeline.Settings

// Config holds server configuration.
type Config struct {
	// Addr is the listen address.
	Addr string

	// Root is the directory served.
	Root string

	// AllowAllOrigins allows cross-origin requests from anywhere instead
	// of only from localhost.
	AllowAllOrigins bool

	// RequestTimeout bounds one request. Zero uses DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// Server is the preview server.
type Server struct {
	cfg        Config
	settings   SettingsFunc
	logger     *slog.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a server. A nil logger uses slog.Default().
func New(cfg Config, settings SettingsFunc, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	s := &Server{
		cfg:      cfg,
		settings: settings,
		logger:   logger,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{HeaderConverted, HeaderFailed, HeaderFootnotes},
		MaxAge:         300,
	}
	if s.cfg.AllowAllOrigins {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck // Client went away
	})
	r.Get("/*", s.handlePage)
	r.Head("/*", s.handlePage)

	return r
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start listens on the configured address until ctx is done, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("codeflip server listening", "addr", s.cfg.Addr, "root", s.cfg.Root)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx) //nolint:contextcheck // Parent is already done
	}
}

// handlePage serves processed pages and static files below Root.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")

	file, pageRel, ok := s.resolve(rel)
	if !ok {
		http.NotFound(w, r)
		return
	}

	format, isPage := model.FormatOf(file)
	if !isPage {
		http.ServeFile(w, r, file)
		return
	}

	raw, err := os.ReadFile(file) //nolint:gosec // Confined to Root by resolve
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	pg := model.NewPage(pageRel, format, raw)
	report, err := pipeline.Initialize(r.Context(), pg, s.settings(pageRel))
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		s.logger.Error("failed to process page", "page", pageRel, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := page.Render(&buf, pg.Doc); err != nil {
		s.logger.Error("failed to render page", "page", pageRel, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set(HeaderConverted, strconv.Itoa(report.Converted()))
	h.Set(HeaderFailed, strconv.Itoa(report.Failed()))
	h.Set(HeaderFootnotes, strconv.Itoa(report.Footnotes))
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = buf.WriteTo(w) //nolint:errcheck // Client went away
}

// resolve maps a cleaned request path to a file below Root. Directories
// resolve to their index.html or index.md, and a missing .html file falls
// back to the Markdown source with the same name. pageRel names the
// source document relative to Root.
func (s *Server) resolve(rel string) (file, pageRel string, ok bool) {
	candidates := []string{rel}
	if rel == "" {
		candidates = []string{"index.html", "index.md"}
	} else if info, err := os.Stat(filepath.Join(s.cfg.Root, filepath.FromSlash(rel))); err == nil && info.IsDir() {
		candidates = []string{path.Join(rel, "index.html"), path.Join(rel, "index.md")}
	} else if ext := path.Ext(rel); ext == ".html" || ext == ".htm" {
		base := strings.TrimSuffix(rel, ext)
		candidates = append(candidates, base+".md", base+".markdown")
	}

	for _, c := range candidates {
		full := filepath.Join(s.cfg.Root, filepath.FromSlash(c))
		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}
		return full, c, true
	}
	return "", "", false
}

// requestLogger logs each request with slog.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
