package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pagedesk/support-inbox/internal/middleware"
	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/internal/service"
	"github.com/pagedesk/support-inbox/pkg/logger"
)

// AuthHandler handles registration, login and profile endpoints.
type AuthHandler struct {
	service *service.AuthService
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		logger:  log,
	}
}

// Register handles POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "register")
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "login")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Profile handles GET /api/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}
