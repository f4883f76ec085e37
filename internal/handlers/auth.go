package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eventhub/apiserver/internal/services"
	"github.com/eventhub/apiserver/internal/session"
	"github.com/eventhub/apiserver/pkg/logger"
)

// AuthHandler provides JWT authentication endpoints.
type AuthHandler struct {
	auth *services.AuthService
	log  logger.Logger
}

func NewAuthHandler(auth *services.AuthService, log logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: log}
}

// AuthRouter registers auth routes on the given router. Requests must
// already carry a session (see WithSession).
func AuthRouter(r chi.Router, auth *services.AuthService, log logger.Logger) {
	handler := NewAuthHandler(auth, log)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(RequireSession).Post("/logout", handler.Logout)
	r.With(RequireSession).Get("/me", handler.Me)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and returns a JWT.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.auth.Register(r.Context(), req)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to register")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Login verifies credentials and returns a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(r.Context(), w, h.log, err, "failed to authenticate")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Logout invalidates the caller's sessions and returns the provider's reply.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	resp, err := h.auth.Logout(r.Context(), session.FromContext(r.Context()), tokenFromContext(r.Context()))
	if err != nil {
		writeError(w, http.StatusBadGateway, "failed to revoke session")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Me returns the current user's formatted record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, session.FromContext(r.Context()).CurrentUserRecord())
}
