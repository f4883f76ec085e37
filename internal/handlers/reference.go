package handlers

import (
	"net/http"

	"github.com/eventhub/apiserver/internal/services"
	"github.com/eventhub/apiserver/pkg/logger"
)

// ReferenceHandler serves the lookup collections.
type ReferenceHandler struct {
	refs *services.ReferenceService
	log  logger.Logger
}

func NewReferenceHandler(refs *services.ReferenceService, log logger.Logger) *ReferenceHandler {
	return &ReferenceHandler{refs: refs, log: log}
}

func (h *ReferenceHandler) EventTypes(w http.ResponseWriter, r *http.Request) {
	items, err := h.refs.EventTypes(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to list event types")
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ReferenceHandler) Skills(w http.ResponseWriter, r *http.Request) {
	items, err := h.refs.Skills(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to list skills")
		return
	}
	writeJSON(w, http.StatusOK, items)
}
