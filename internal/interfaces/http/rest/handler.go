package rest

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/avatarflowx/avatarflowx/internal/adapters/llm"
	"github.com/avatarflowx/avatarflowx/internal/app/services"
	"github.com/avatarflowx/avatarflowx/internal/core/checkpoint"
	"github.com/avatarflowx/avatarflowx/internal/core/extract"
	"github.com/avatarflowx/avatarflowx/internal/core/graph"
	"github.com/avatarflowx/avatarflowx/internal/core/record"
	"github.com/avatarflowx/avatarflowx/pkg/validation"
)

// Services groups the application services the API exposes
type Services struct {
	Editor      *services.EditorService
	Checkpoints *services.CheckpointService
	Generation  *services.GenerationService
	Submissions *services.SubmissionService
	Extractor   *extract.Extractor
}

// Handler serves the editor API
// PRINCIPLES:
// - SRP: HTTP decoding and status mapping only, behaviour lives in services
type Handler struct {
	svc    Services
	logger *zap.Logger
}

// NewHandler creates the API handler
func NewHandler(svc Services, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if svc.Extractor == nil {
		svc.Extractor = extract.NewExtractor(logger)
	}
	return &Handler{svc: svc, logger: logger}
}

type historyResponse struct {
	Changed bool                  `json:"changed"`
	State   services.SessionState `json:"state"`
}

type generateResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Raw     string `json:"raw"`
}

// Extract pulls a flow graph out of posted text
func (h *Handler) Extract(w http.ResponseWriter, r *http.Request) {
	var req validation.ExtractRequest
	if !validation.DecodeJSON(w, r, &req) {
		return
	}

	x := h.svc.Extractor
	if req.Strategy != "" {
		strategy, _ := extract.ParseStrategy(req.Strategy)
		x = extract.NewExtractor(h.logger, extract.WithStrategy(strategy))
	}

	flow, ok := x.Extract(req.Text)
	if !ok {
		h.respondError(w, http.StatusUnprocessableEntity, "no flow found")
		return
	}
	h.respondJSON(w, http.StatusOK, flow)
}

// OpenSession starts an editor session
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req validation.OpenSessionRequest
	if r.ContentLength != 0 {
		if !validation.DecodeJSON(w, r, &req) {
			return
		}
	}

	var initial graph.Snapshot
	if req.Graph != nil {
		initial = req.Graph.Snapshot()
	}
	st := h.svc.Editor.Open(r.Context(), req.FlowID, initial)
	h.respondJSON(w, http.StatusCreated, st)
}

// GetSession returns the live graph and history flags
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Editor.State(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, st)
}

// Apply replaces the live graph, recording the old one for undo
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var req validation.GraphPayload
	if !validation.DecodeJSON(w, r, &req) {
		return
	}
	st, err := h.svc.Editor.Apply(r.Context(), chi.URLParam(r, "sessionID"), req.Snapshot())
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, st)
}

// Undo steps the session back
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	st, changed, err := h.svc.Editor.Undo(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, historyResponse{Changed: changed, State: st})
}

// Redo steps the session forward
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	st, changed, err := h.svc.Editor.Redo(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, historyResponse{Changed: changed, State: st})
}

// Clear drops the session's history, keeping the live graph
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Editor.Clear(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, historyResponse{Changed: true, State: st})
}

// CloseSession ends a session
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Editor.Close(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Generate asks the configured model for a flow and applies it
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req validation.GenerateRequest
	if !validation.DecodeJSON(w, r, &req) {
		return
	}

	res, err := h.svc.Generation.GenerateFlow(r.Context(), chi.URLParam(r, "sessionID"), req.Prompt)
	if errors.Is(err, services.ErrNoFlowFound) || errors.Is(err, services.ErrInvalidFlow) {
		msg := "no flow found"
		if errors.Is(err, services.ErrInvalidFlow) {
			msg = err.Error()
		}
		h.respondJSON(w, http.StatusUnprocessableEntity, generateResponse{
			Error:   true,
			Message: msg,
			Code:    http.StatusUnprocessableEntity,
			Raw:     res.Raw,
		})
		return
	}
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// SaveCheckpoint stores the session's live graph under a label
func (h *Handler) SaveCheckpoint(w http.ResponseWriter, r *http.Request) {
	var req validation.CheckpointRequest
	if !validation.DecodeJSON(w, r, &req) {
		return
	}
	cp, err := h.svc.Checkpoints.Save(r.Context(), chi.URLParam(r, "sessionID"), req.Label, req.Tags)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, cp)
}

// ListCheckpoints lists the checkpoints of the session's flow
func (h *Handler) ListCheckpoints(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryLimit(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	cps, err := h.svc.Checkpoints.List(r.Context(), chi.URLParam(r, "sessionID"), limit)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"checkpoints": cps,
		"count":       len(cps),
	})
}

// RestoreCheckpoint makes a checkpoint the session's live graph
func (h *Handler) RestoreCheckpoint(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Checkpoints.Restore(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "checkpointID"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, st)
}

// DeleteCheckpoint removes a checkpoint
func (h *Handler) DeleteCheckpoint(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Checkpoints.Delete(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "checkpointID")); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitForm stores a form submission
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	req := validation.SubmissionRequest{FormID: chi.URLParam(r, "formID")}
	if !validation.DecodeJSON(w, r, &req) {
		return
	}
	rec, err := h.svc.Submissions.Submit(r.Context(), req.FormID, req.Fields)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, rec)
}

// ListSubmissions lists the submissions of a form
func (h *Handler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formID")
	if !validation.IsFormID(formID) {
		h.respondError(w, http.StatusBadRequest, "invalid form id")
		return
	}
	limit, ok := queryLimit(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return
	}
	recs, err := h.svc.Submissions.List(r.Context(), formID, limit)
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": recs,
		"count":       len(recs),
	})
}

// handleError maps service errors to status codes
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, checkpoint.ErrCheckpointNotFound),
		errors.Is(err, record.ErrRecordNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrCheckpointMismatch):
		h.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNoGenerator):
		h.respondError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, llm.ErrRateLimited):
		h.respondError(w, http.StatusTooManyRequests, "flow generator is rate limited")
	case errors.Is(err, llm.ErrUnauthorized),
		errors.Is(err, llm.ErrServer),
		errors.Is(err, llm.ErrNetwork),
		errors.Is(err, llm.ErrDecode),
		errors.Is(err, llm.ErrEmptyResponse):
		h.logger.Warn("flow generator failed", zap.Error(err))
		h.respondError(w, http.StatusBadGateway, "flow generator unavailable")
	case errors.Is(err, checkpoint.ErrInvalidCheckpointID),
		errors.Is(err, record.ErrInvalidCollection):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
