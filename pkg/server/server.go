// Package server exposes the analyzer over HTTP.
//
// Endpoints:
//
//	POST /api/analyze   dump text -> DOT            (?include_isolated=true)
//	POST /api/render    dump text -> SVG or PNG     (?engine=dot&format=svg)
//	GET  /api/engines   supported layout engines
//	GET  /api/reports   analysis history (requires the mongo store)
//	GET  /healthz       liveness probe
//
// Every call is stateless over its request body; the optional history store
// and the artifact cache are the only shared resources.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jstackviz/jstackviz/pkg/analyze"
	"github.com/jstackviz/jstackviz/pkg/cache"
	"github.com/jstackviz/jstackviz/pkg/dump"
	"github.com/jstackviz/jstackviz/pkg/render"
)

// maxDumpSize bounds request bodies. Thread dumps of real JVMs run to a few
// megabytes at most.
const maxDumpSize = 16 << 20

// Options configures a Server.
type Options struct {
	Logger          *log.Logger
	Cache           cache.Cache // artifact cache, nil = no caching
	History         *History    // analysis history, nil = disabled
	CacheTTL        time.Duration
	HighlightFill   string
	HighlightFont   string
	IncludeIsolated bool // default when the query param is absent
}

// Server handles HTTP requests for the analyzer.
type Server struct {
	opts Options
}

// New creates a Server. Missing options fall back to sane defaults.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = cache.DefaultTTL
	}
	if opts.HighlightFill == "" {
		opts.HighlightFill = analyze.DefaultHighlightFill
	}
	if opts.HighlightFont == "" {
		opts.HighlightFont = analyze.DefaultHighlightFont
	}
	return &Server{opts: opts}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/render", s.handleRender)
		r.Get("/engines", s.handleEngines)
		r.Get("/reports", s.handleReports)
	})

	return r
}

// logRequests logs method, path and duration for every request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.opts.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// readDump reads and bounds the request body.
func readDump(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDumpSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "dump too large")
		return "", false
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty request body")
		return "", false
	}
	return string(body), true
}

// runAnalysis parses the body and runs deadlock detection, writing an
// unprocessable-entity response on parse failures.
func (s *Server) runAnalysis(w http.ResponseWriter, text string) (*analyze.Analysis, bool) {
	a, err := analyze.Analyze(text)
	if err != nil {
		var pf *dump.ParseFailure
		if errors.As(err, &pf) {
			writeError(w, http.StatusUnprocessableEntity, pf.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return a, true
}

func (s *Server) includeIsolated(r *http.Request) bool {
	if v := r.URL.Query().Get("include_isolated"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return s.opts.IncludeIsolated
}

func (s *Server) buildDOT(a *analyze.Analysis, includeIsolated bool) string {
	attrs := analyze.Highlight(a.Elements, s.opts.HighlightFill, s.opts.HighlightFont)
	return analyze.BuildGraph(a, includeIsolated, attrs).DOT()
}

// handleAnalyze turns a dump into DOT text.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	text, ok := readDump(w, r)
	if !ok {
		return
	}
	a, ok := s.runAnalysis(w, text)
	if !ok {
		return
	}

	dot := s.buildDOT(a, s.includeIsolated(r))
	s.record(r, a, dot)

	w.Header().Set("Content-Type", "text/vnd.graphviz")
	_, _ = w.Write([]byte(dot))
}

// handleRender turns a dump into an SVG or PNG image.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	engine := r.URL.Query().Get("engine")
	if engine == "" {
		engine = render.DefaultEngine
	}
	format := render.Format(r.URL.Query().Get("format"))
	if format == "" {
		format = render.FormatSVG
	}
	if err := render.ValidateEngine(engine); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := render.ValidateFormat(format); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	text, ok := readDump(w, r)
	if !ok {
		return
	}
	includeIsolated := s.includeIsolated(r)

	key := cache.ArtifactKey(cache.Hash([]byte(text)), cache.ArtifactKeyOpts{
		Engine:          engine,
		Format:          string(format),
		IncludeIsolated: includeIsolated,
	})
	if data, hit, err := s.opts.Cache.Get(r.Context(), key); err == nil && hit {
		writeImage(w, format, data)
		return
	}

	a, ok := s.runAnalysis(w, text)
	if !ok {
		return
	}
	dot := s.buildDOT(a, includeIsolated)

	data, err := render.Render(r.Context(), dot, engine, format)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.opts.Cache.Set(r.Context(), key, data, s.opts.CacheTTL); err != nil {
		s.opts.Logger.Warn("cache write failed", "err", err)
	}
	s.record(r, a, dot)

	writeImage(w, format, data)
}

// handleEngines lists the supported layout engines.
func (s *Server) handleEngines(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"engines": render.Engines(),
		"default": render.DefaultEngine,
	})
}

// handleReports lists recent analyses from the history store.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeError(w, http.StatusNotImplemented, "history store not configured")
		return
	}
	records, err := s.opts.History.List(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": records})
}

// record saves a successful analysis to the history store, if configured.
// History failures are logged, never surfaced: the analysis already succeeded.
func (s *Server) record(r *http.Request, a *analyze.Analysis, dot string) {
	if s.opts.History == nil {
		return
	}
	if err := s.opts.History.Save(r.Context(), a, dot); err != nil {
		s.opts.Logger.Warn("history write failed", "err", err)
	}
}

func writeImage(w http.ResponseWriter, format render.Format, data []byte) {
	if format == render.FormatPNG {
		w.Header().Set("Content-Type", "image/png")
	} else {
		w.Header().Set("Content-Type", "image/svg+xml")
	}
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
