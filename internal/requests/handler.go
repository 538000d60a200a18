package requests

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/ashbyfield/ward/pkg/handlers"
	"github.com/ashbyfield/ward/pkg/pagination"
	"github.com/ashbyfield/ward/pkg/routes"
)

// Handler provides HTTP endpoints for submitting and tracking allocation
// requests. Accepted requests are dispatched to the agent service for
// asynchronous execution.
type Handler struct {
	sys        System
	dispatcher Dispatcher
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler over the request system and dispatcher.
func NewHandler(sys System, dispatcher Dispatcher, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		dispatcher: dispatcher,
		logger:     logger.With("handler", "requests"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for request endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/requests",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "POST", Pattern: "", Handler: h.Submit},
			{Method: "POST", Pattern: "/{id}/cancel", Handler: h.Cancel},
		},
	}
}

// List returns a paginated list of requests with optional filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single request by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	req, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, req)
}

// Submit accepts a new allocation request and dispatches it to its domain
// agent. The response is 202: the allocation itself completes on the
// agent's run group and resolves the request record when done.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var cmd SubmitCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	req, err := h.sys.Create(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	if err := h.dispatcher.Submit(req.Allocation()); err != nil {
		if _, resolveErr := h.sys.Resolve(r.Context(), req.ID, StatusFailed, "dispatch failed"); resolveErr != nil {
			h.logger.Error("request resolve failed after dispatch error", "id", req.ID, "error", resolveErr)
		}
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, req)
}

// Cancel aborts an in-flight allocation. Cancelling a request whose run
// already reached a terminal state is a conflict.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidInput)
		return
	}

	req, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if !req.Active() {
		handlers.RespondError(w, h.logger, MapHTTPStatus(ErrNotActive), ErrNotActive)
		return
	}

	// The running engine resolves the request itself when its context is
	// cancelled. A queued request with no active run resolves here; the
	// conditional resolve keeps the run's outcome when it reached a
	// terminal state between the active check above and this point.
	if !h.dispatcher.Cancel(id) {
		req, err = h.sys.ResolveQueued(r.Context(), id, StatusCancelled, "cancelled before dispatch")
		if err != nil {
			handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
			return
		}
	}

	handlers.RespondJSON(w, http.StatusOK, req)
}
