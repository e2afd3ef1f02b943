package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/benbenbuben/text-to-video-app/internal/frames"
)

// maxBodyBytes bounds the /api/convert request body.
const maxBodyBytes = 64 << 10

type convertResponse struct {
	Output    []string `json:"output"`
	Type      string   `json:"type"`
	MIMETypes []string `json:"mimeTypes,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if !strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
		httpError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req frames.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		httpError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		httpError(w, http.StatusBadRequest, "Text is required")
		return
	}

	// Generation outlives a disconnected client.
	ctx := context.WithoutCancel(r.Context())
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	result, err := s.generator.Generate(ctx, req.Text)
	if err != nil {
		s.respondGenerationError(w, logger, err)
		return
	}

	logger.Info().
		Int("frames", len(result.Frames)).
		Int("textLength", len(req.Text)).
		Dur("elapsed", time.Since(start)).
		Msg("Conversion complete")
	respondJSON(w, http.StatusOK, convertResponse{
		Output:    result.Frames,
		Type:      frames.OutputType,
		MIMETypes: result.MIMETypes,
	})
}

// respondGenerationError maps a pipeline error onto a status code. The full
// error chain is logged and only echoed to the client outside production.
func (s *Server) respondGenerationError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	kind := frames.KindOf(err)
	status := kind.HTTPStatus()

	evt := logger.Error()
	if status < http.StatusInternalServerError {
		evt = logger.Warn()
	}
	evt.Err(err).Str("kind", kind.String()).Int("status", status).Msg("Conversion failed")

	resp := errorResponse{Error: frames.PublicMessage(err)}
	if !s.production {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Service: ServiceName})
}
