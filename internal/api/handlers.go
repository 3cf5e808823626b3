package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/interp"
	"github.com/starford/raido/internal/protocol"
	"github.com/starford/raido/internal/surfaceservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *surfaceservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *surfaceservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListSessions handles GET /api/sessions.
//
//	@Summary		List known surface sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{object}	SessionListResponse
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.Sessions()
	if err != nil {
		slog.Error("list sessions failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
	})
}

// CreateSession handles POST /api/sessions.
//
//	@Summary		Create a surface session
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateSessionRequest	true	"Session to create"
//	@Success		201		{object}	SessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("id is required"))
		return
	}
	if err := h.svc.CreateSession(req.ID); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("session already exists"))
			return
		}
		slog.Error("create session failed", slog.String("id", req.ID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          req.ID,
		"catalog_ref": h.svc.CatalogReference(),
	})
}

// Ingest handles POST /api/sessions/{id}/messages. The body is one or more
// newline-delimited stream lines; each line is processed in order. A
// malformed line is skipped and counted, never fatal to the request.
//
//	@Summary		Feed stream lines into a session
//	@Tags			stream
//	@Accept			plain
//	@Produce		json
//	@Param			id		path		string	true	"Session id"
//	@Success		200		{object}	IngestResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/messages [post]
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, 16<<20)

	accepted, skipped := 0, 0
	ready := false
	scanner := bufio.NewScanner(r.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		snap, err := h.svc.Ingest(id, line)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				writeJSON(w, http.StatusNotFound, errorBody("session not found"))
				return
			}
			var mismatch *interp.MismatchError
			if errors.As(err, &mismatch) {
				// Surfaced verbatim; the session's layout/state remain intact.
				writeJSON(w, http.StatusConflict, map[string]any{
					"error":   mismatch.Code,
					"message": mismatch.Message,
				})
				return
			}
			slog.Warn("ingest: line skipped", slog.String("session", id), slog.String("error", err.Error()))
			skipped++
			continue
		}
		accepted++
		ready = snap.Ready
	}
	if err := scanner.Err(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	writeJSON(w, http.StatusOK, IngestResponse{Accepted: accepted, Skipped: skipped, Ready: ready})
}

// Snapshot handles GET /api/sessions/{id}/snapshot.
//
//	@Summary		Get a session's current UI snapshot with resolved properties
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	SnapshotResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/snapshot [get]
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := h.svc.Snapshot(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		} else {
			slog.Error("snapshot failed", slog.String("session", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	resolved, err := h.svc.Resolved(id)
	if err != nil {
		slog.Error("resolve failed", slog.String("session", id), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SnapshotResponse{Snapshot: snap, Resolved: resolved})
}

// UserEvent handles POST /api/sessions/{id}/events.
//
//	@Summary		Record a user interaction event for upstream transport
//	@Tags			events
//	@Accept			json
//	@Param			id		path	string				true	"Session id"
//	@Param			body	body	UserEventRequest	true	"Event"
//	@Success		202		"Event recorded"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/events [post]
func (h *Handler) UserEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req UserEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.SourceNodeID == "" || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("sourceNodeId and eventName are required"))
		return
	}
	ev := protocol.NewUserEvent(req.SourceNodeID, req.Name, req.Arguments)
	if err := h.svc.RecordEvent(id, ev); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("session not found"))
		} else {
			slog.Error("record event failed", slog.String("session", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
