// Package web exposes the service over HTTP: JSON handlers, CORS, and
// the error-to-status mapping.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/clearweb/clearweb/internal/apperr"
	"github.com/clearweb/clearweb/models"
	"github.com/clearweb/clearweb/pkg/fetcher"
	"github.com/clearweb/clearweb/pkg/safeurl"
)

// Service is the slice of the orchestration layer the handlers need.
type Service interface {
	Scrape(ctx context.Context, req models.ScrapRequest) (*models.ScrapResponse, error)
	Simplify(ctx context.Context, req models.SimplifyRequest) (*models.SimplifyResponse, error)
	Chat(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
	TextCompletion(ctx context.Context, req models.CompletionRequest) (*models.CompletionResponse, error)
}

// Handlers contains the HTTP route handlers.
type Handlers struct {
	svc    Service
	logger *slog.Logger
}

func NewHandlers(svc Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

// HandleRoot handles GET / with a liveness payload.
func (h *Handlers) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "clearweb"})
}

// HandleScrap handles POST /scrap.
func (h *Handlers) HandleScrap(w http.ResponseWriter, r *http.Request) {
	var req models.ScrapRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Scrape(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleSimplify handles POST /simplify.
func (h *Handlers) HandleSimplify(w http.ResponseWriter, r *http.Request) {
	var req models.SimplifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Simplify(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleChat handles POST /chat.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.svc.Chat(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleTextCompletion handles POST /text-completion.
func (h *Handlers) HandleTextCompletion(w http.ResponseWriter, r *http.Request) {
	var req models.CompletionRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.svc.TextCompletion(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, apperr.InvalidRequest("invalid JSON body"))
		return false
	}
	return true
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= 500 {
		h.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	} else {
		h.logger.Warn("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, models.ErrorResponse{OK: false, Error: err.Error(), Code: code})
}

// statusFor maps an error to its HTTP status and machine-readable code.
func statusFor(err error) (int, string) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Status, string(appErr.Code)
	}

	switch {
	case errors.Is(err, safeurl.ErrBlockedHost):
		return http.StatusBadRequest, string(apperr.CodeBlockedHost)
	case errors.Is(err, safeurl.ErrResolution):
		return http.StatusBadRequest, string(apperr.CodeResolution)
	case errors.Is(err, fetcher.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, string(apperr.CodePayloadTooLarge)
	case errors.Is(err, fetcher.ErrUnsupportedContentType):
		return http.StatusUnsupportedMediaType, string(apperr.CodeUnsupportedContent)
	}

	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		return http.StatusBadGateway, string(apperr.CodeFetchFailed)
	}

	return http.StatusInternalServerError, string(apperr.CodeInternal)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
