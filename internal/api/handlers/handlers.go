// Package handlers implements the HTTP handlers for the KPI report service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/agentoven/kpi-report/internal/executor"
	"github.com/agentoven/kpi-report/internal/report"
	"github.com/rs/zerolog/hlog"
)

// DefaultMaxBodyBytes caps a POST /report body unless configured otherwise.
const DefaultMaxBodyBytes int64 = 4 << 20

// Handlers holds all handler dependencies.
type Handlers struct {
	Generator *report.Generator
	Version   string

	// MaxBodyBytes caps the request body; larger bodies get 413.
	MaxBodyBytes int64
}

// New creates a new Handlers instance.
func New(gen *report.Generator, version string) *Handlers {
	return &Handlers{
		Generator:    gen,
		Version:      version,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// CreateReport handles POST /report.
//
// Validation problems are answered before any model call. Failures of the
// model collaborator come back as 502 so callers can tell them apart from
// their own mistakes.
func (h *Handlers) CreateReport(w http.ResponseWriter, r *http.Request) {
	if h.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	}

	req, err := report.DecodeRequest(r.Body)
	if err != nil {
		var (
			verr   *report.ValidationError
			maxErr *http.MaxBytesError
		)
		switch {
		case errors.As(err, &maxErr):
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.As(err, &verr):
			respondError(w, http.StatusUnprocessableEntity, verr.Error())
		default:
			respondError(w, http.StatusBadRequest, "Invalid request body")
		}
		return
	}

	opts := report.Options{HTML: strings.EqualFold(r.URL.Query().Get("format"), "html")}

	resp, _, err := h.Generator.Generate(r.Context(), req, opts)
	if err != nil {
		h.respondGenerateError(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().
		Str("conversation", resp.ConversationID).
		Bool("approved", resp.Approved).
		Int("turns", resp.Turns).
		Int("blobs", len(req.Data)).
		Msg("Report generated")

	respondJSON(w, http.StatusOK, resp)
}

// respondGenerateError maps a Generate failure to a status. Collaborator
// errors can quote the provider's response body, so only the log gets the
// full error.
func (h *Handlers) respondGenerateError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *report.ValidationError
	switch {
	case errors.Is(err, report.ErrEmptyData):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &verr):
		respondError(w, http.StatusUnprocessableEntity, verr.Error())
	case errors.Is(err, executor.ErrCompletion):
		hlog.FromRequest(r).Error().Err(err).Msg("Report generation failed")
		msg := "report generation failed: model provider error"
		if errors.Is(err, executor.ErrEmptyCompletion) {
			msg = "report generation failed: model returned an empty reply"
		}
		respondError(w, http.StatusBadGateway, msg)
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("Report generation failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "kpi-report-service",
	})
}

// VersionInfo handles GET /version.
func (h *Handlers) VersionInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
		"service": "kpi-report-service",
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
