package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vbonduro/mahrfyi/internal/domain"
	"github.com/vbonduro/mahrfyi/internal/location"
	"github.com/vbonduro/mahrfyi/internal/money"
	"github.com/vbonduro/mahrfyi/internal/service"
)

// ReadinessChecker verifies the service can reach its dependencies.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// LocationPreviewer resolves free text for the normalization preview.
type LocationPreviewer interface {
	Resolve(ctx context.Context, raw string) location.Result
	Tables() *location.Tables
}

// Services bundles what the handlers call into.
type Services struct {
	Submissions *service.SubmissionService
	Stats       *service.StatsService
	Compare     *service.CompareService
	Locations   LocationPreviewer
	Currencies  []string
}

type Server struct {
	submissions *service.SubmissionService
	stats       *service.StatsService
	compare     *service.CompareService
	locations   LocationPreviewer
	currencies  []string
	ready       ReadinessChecker
	templates   embed.FS
	clock       clockwork.Clock
	mux         *http.ServeMux
	tmplFuncs   template.FuncMap
	logger      *slog.Logger
	httpServer  *http.Server
}

func NewServer(addr string, svcs Services, tmpl embed.FS, clock clockwork.Clock, logger *slog.Logger) *Server {
	s := &Server{
		submissions: svcs.Submissions,
		stats:       svcs.Stats,
		compare:     svcs.Compare,
		locations:   svcs.Locations,
		currencies:  svcs.Currencies,
		ready:       svcs.Stats,
		templates:   tmpl,
		clock:       clock,
		mux:         http.NewServeMux(),
		logger:      logger,
		tmplFuncs: template.FuncMap{
			"usd":   money.FormatUSD,
			"pct":   func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
			"inc":   func(i int) int { return i + 1 },
			"comma": func(i int) string { return humanize.Comma(int64(i)) },
			"ago":   humanize.Time,
			"title": location.TitleCase,
			"label": assetLabel,
		},
	}
	s.registerRoutes()
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("POST /submissions", s.handleSubmit)
	s.mux.HandleFunc("POST /api/submissions", s.handleSubmitJSON)

	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("GET /stats/export.xlsx", s.handleExport)
	s.mux.HandleFunc("GET /api/stats", s.handleStatsJSON)
	s.mux.HandleFunc("GET /api/dashboard", s.handleDashboardJSON)

	s.mux.HandleFunc("GET /api/locations/normalize", s.handleNormalize)

	s.mux.HandleFunc("GET /compare", s.handleCompareForm)
	s.mux.HandleFunc("POST /compare", s.handleCompare)

	s.mux.HandleFunc("GET /healthz", handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// securityHeaders sets browser hardening headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		level := slog.LevelInfo
		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
			level = slog.LevelDebug
		}
		logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// Start blocks until the server stops. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial parses and executes a single named partial template.
// The file must contain exactly one {{define "name"}}...{{end}} block.
func (s *Server) renderPartial(w http.ResponseWriter, status int, file string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	// ParseFS registers both the file-basename template and any {{define}} blocks.
	basename := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		basename = file[idx+1:]
	}
	for _, t := range tmpl.Templates() {
		if n := t.Name(); n != "" && n != basename {
			return t.Execute(w, data)
		}
	}
	return tmpl.ExecuteTemplate(w, basename, data)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// assetLabel returns a display name for an asset type.
func assetLabel(a domain.AssetType) string {
	switch a {
	case domain.AssetJewelry:
		return "Jewelry"
	case domain.AssetStocks:
		return "Stocks / investments"
	case domain.AssetBusiness:
		return "Business share"
	case domain.AssetMixed:
		return "Mixed"
	case "":
		return ""
	default:
		return strings.ToUpper(string(a[:1])) + string(a[1:])
	}
}
