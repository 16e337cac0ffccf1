package http

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/crimemap/pkg/service/chart"
	"github.com/secmon-lab/crimemap/pkg/service/export"
	"github.com/secmon-lab/crimemap/pkg/usecase"
)

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// Option configures the server
type Option func(*serverOptions)

type serverOptions struct {
	frontend     fs.FS
	defaultStore string
}

// WithFrontend serves the single-page frontend from fsys
func WithFrontend(fsys fs.FS) Option {
	return func(o *serverOptions) {
		o.frontend = fsys
	}
}

// WithDefaultStore sets the store name prefilled in the connection form
func WithDefaultStore(name string) Option {
	return func(o *serverOptions) {
		o.defaultStore = name
	}
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	addr string,
	gate usecase.GateUseCase,
	dashboard usecase.DashboardUseCase,
	tokens *TokenSigner,
	opts ...Option,
) (*Server, error) {
	if gate == nil || dashboard == nil || tokens == nil {
		return nil, goerr.New("gate, dashboard and token signer are required")
	}

	options := &serverOptions{}
	for _, opt := range opts {
		opt(options)
	}

	router := chi.NewRouter()
	sessionMiddleware := NewMiddleware(gate, tokens)
	connectHandler := NewConnectHandler(gate, tokens, sessionMiddleware, options.defaultStore)
	dashboardHandler := NewDashboardHandler(dashboard)

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth)

	// API routes
	router.Route("/api", func(r chi.Router) {
		r.Post("/connect", connectHandler.HandleConnect)
		r.Get("/session", connectHandler.HandleSession)

		// Connected routes
		r.Group(func(r chi.Router) {
			r.Use(sessionMiddleware.RequireSession)
			r.Get("/dashboard", dashboardHandler.HandleDashboard)
			r.Get("/map", dashboardHandler.HandleMap)
			r.Get("/chart.png", dashboardHandler.HandleChart(chart.FormatPNG))
			r.Get("/chart.svg", dashboardHandler.HandleChart(chart.FormatSVG))
			r.Get("/export.csv", dashboardHandler.HandleExport(export.FormatCSV))
			r.Get("/export.xlsx", dashboardHandler.HandleExport(export.FormatXLSX))
		})
	})

	// Frontend routes
	if options.frontend != nil {
		spa, err := NewSPAHandler(options.frontend)
		if err != nil {
			ctxlog.From(ctx).Warn("Failed to load frontend, using fallback", "error", err)
			router.Get("/*", handleFallbackHome)
		} else {
			ctxlog.From(ctx).Info("Serving frontend from embedded files")
			router.Handle("/*", spa)
		}
	} else {
		router.Get("/*", handleFallbackHome)
	}

	server := &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           gzhttp.GzipHandler(router),
			ReadHeaderTimeout: 15 * time.Second,
		},
	}

	return server, nil
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "crimemap",
	})
}

// handleFallbackHome handles the root path when frontend is not available
func handleFallbackHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`<!DOCTYPE html>
<html lang="es">
<head>
    <meta charset="utf-8">
    <title>Tablero Geoespacial FGJCDMX</title>
</head>
<body>
    <h1>Tablero Geoespacial de Incidencia Delictiva - CDMX</h1>
    <p>La interfaz no está disponible. Usa la API en <code>/api</code>.</p>
</body>
</html>`)); err != nil {
		ctxlog.From(r.Context()).Error("Failed to write fallback home page", "error", err)
	}
}

// writeJSON writes v as a JSON response
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Can't get context here, so use background context
		ctxlog.From(context.Background()).Error("Failed to encode response", "error", err)
	}
}

// writeMessage writes a user-visible message
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeError writes an error response. Server-side failures are reported
// with a generic message; details stay in the log.
func writeError(w http.ResponseWriter, err error, status int) {
	message := err.Error()
	if status >= http.StatusInternalServerError {
		message = MsgInternal
	}
	writeMessage(w, status, message)
}
