package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventhub/apiserver/internal/services"
	"github.com/eventhub/apiserver/internal/session"
	"github.com/eventhub/apiserver/pkg/logger"
	"github.com/eventhub/apiserver/types"
)

// UserHandler provides HTTP handlers for profiles and calendars.
type UserHandler struct {
	agg      *services.AggregationService
	profiles *services.ProfileService
	log      logger.Logger
}

func NewUserHandler(agg *services.AggregationService, profiles *services.ProfileService, log logger.Logger) *UserHandler {
	return &UserHandler{agg: agg, profiles: profiles, log: log}
}

// UserRouter registers user routes on the given router.
func UserRouter(r chi.Router, agg *services.AggregationService, profiles *services.ProfileService, log logger.Logger) {
	handler := NewUserHandler(agg, profiles, log)

	r.Route("/me", func(r chi.Router) {
		r.Use(RequireSession)
		r.Get("/calendar", handler.MyCalendar)
		r.Patch("/", handler.UpdateProfile)
		r.Put("/photo", handler.UploadPhoto)
	})
	r.Get("/{userID}", handler.GetUser)
	r.Get("/{userID}/calendar", handler.Calendar)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to load user")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) MyCalendar(w http.ResponseWriter, r *http.Request) {
	h.writeCalendar(w, r, session.FromContext(r.Context()).CurrentUserID())
}

func (h *UserHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	views, err := h.agg.CalendarFor(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to load calendar")
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *UserHandler) writeCalendar(w http.ResponseWriter, r *http.Request, userID string) {
	views, err := h.agg.UserCalendar(r.Context(), userID)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to load calendar")
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req types.UserUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.profiles.UpdateProfile(r.Context(), session.FromContext(r.Context()), req)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	upload, err := readImage(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer upload.Close()

	user, err := h.profiles.UploadPhoto(r.Context(), session.FromContext(r.Context()), upload.Reader, upload.Size, upload.ContentType)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to upload photo")
		return
	}
	writeJSON(w, http.StatusOK, user)
}
