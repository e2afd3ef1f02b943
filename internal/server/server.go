// Package server exposes the frame pipeline over HTTP.
//
// Endpoints:
//
//	POST /api/convert  generate an image sequence from {"text": "..."}
//	GET  /api/health   liveness check
//	GET  /             embedded frontend (local server only)
package server

import (
	"context"
	"io/fs"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzhttp"

	"github.com/benbenbuben/text-to-video-app/internal/frames"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "text-to-video"

// Generator produces an image sequence for a prompt. *frames.Pipeline
// satisfies it.
type Generator interface {
	Generate(ctx context.Context, text string) (*frames.Result, error)
}

// Options configures the HTTP handler.
type Options struct {
	Generator Generator
	// Production hides error details from clients.
	Production bool
	// CORSOrigins are allowed in addition to localhost origins.
	CORSOrigins []string
	// Frontend is served at / when set.
	Frontend fs.FS
}

// Server holds the request handlers.
type Server struct {
	generator  Generator
	production bool
	origins    map[string]bool
	frontend   fs.FS
}

// New builds the complete handler, middleware included.
func New(opts Options) http.Handler {
	s := &Server{
		generator:  opts.Generator,
		production: opts.Production,
		origins:    make(map[string]bool, len(opts.CORSOrigins)),
		frontend:   opts.Frontend,
	}
	for _, o := range opts.CORSOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			s.origins[o] = true
		}
	}
	return s.Handler()
}

// Handler wires routes and middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/convert", s.handleConvert)
	mux.HandleFunc("/api/health", s.handleHealth)
	if s.frontend != nil {
		mux.Handle("/", s.frontendHandler())
	} else {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			httpError(w, http.StatusNotFound, "not found")
		})
	}

	var h http.Handler = mux
	h = gzhttp.GzipHandler(h)
	h = withJSONContentType(h)
	h = s.withCORS(h)
	h = withMetrics(h)
	h = withLogging(h)
	h = withRequestID(h)
	return h
}

// frontendHandler serves the embedded UI with security headers and falls
// back to index.html for unknown paths.
func (s *Server) frontendHandler() http.Handler {
	fileServer := http.FileServer(http.FS(s.frontend))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; connect-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if path := strings.TrimPrefix(r.URL.Path, "/"); path != "" {
			if f, err := s.frontend.Open(path); err != nil {
				r.URL.Path = "/"
			} else {
				f.Close()
			}
		}
		fileServer.ServeHTTP(w, r)
	})
}
