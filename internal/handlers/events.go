package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eventhub/apiserver/internal/services"
	"github.com/eventhub/apiserver/internal/session"
	"github.com/eventhub/apiserver/pkg/logger"
	"github.com/eventhub/apiserver/types"
)

// EventHandler provides HTTP handlers for events.
type EventHandler struct {
	agg    *services.AggregationService
	events *services.EventService
	log    logger.Logger
}

func NewEventHandler(agg *services.AggregationService, events *services.EventService, log logger.Logger) *EventHandler {
	return &EventHandler{agg: agg, events: events, log: log}
}

// EventRouter registers event routes on the given router.
func EventRouter(r chi.Router, agg *services.AggregationService, events *services.EventService, log logger.Logger) {
	handler := NewEventHandler(agg, events, log)

	r.Get("/", handler.HomeFeed)
	r.Get("/past", handler.PastEvents)
	r.With(RequireSession).Post("/", handler.CreateEvent)
	r.Route("/{eventID}", func(r chi.Router) {
		r.Get("/", handler.GetEvent)
		r.With(RequireSession).Get("/edit", handler.EditForm)
		r.With(RequireSession).Patch("/", handler.UpdateEvent)
		r.With(RequireSession).Put("/banner", handler.UploadBanner)
		r.With(RequireSession).Post("/roles", handler.AssignRole)
		r.With(RequireSession).Delete("/roles/{userID}/{role}", handler.RevokeRole)
	})
}

type AssignRoleRequest struct {
	UserID string     `json:"userId"`
	Role   types.Role `json:"role"`
}

func (h *EventHandler) HomeFeed(w http.ResponseWriter, r *http.Request) {
	views, err := h.agg.HomeFeed(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to load events")
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *EventHandler) PastEvents(w http.ResponseWriter, r *http.Request) {
	views, err := h.agg.PastEvents(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to load events")
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	detail, err := h.agg.EventDetail(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "eventID"))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to load event")
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *EventHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.agg.EditEventForm(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "eventID"))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to load event")
		return
	}
	if form == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, form)
}

func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req services.EventInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.events.Create(r.Context(), session.FromContext(r.Context()), req)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to create event")
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req types.EventUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	event, err := h.events.Update(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "eventID"), req)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to update event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	upload, err := readImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer upload.Close()

	event, err := h.events.UploadBanner(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "eventID"), upload.Reader, upload.Size, upload.ContentType)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to upload banner")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *EventHandler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignment, err := h.events.AssignRole(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "eventID"), strings.TrimSpace(req.UserID), req.Role)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to assign role")
		return
	}
	writeJSON(w, http.StatusCreated, assignment)
}

func (h *EventHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	role := types.Role(chi.URLParam(r, "role"))
	err := h.events.RevokeRole(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "eventID"), chi.URLParam(r, "userID"), role)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to revoke role")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
