package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagedesk/support-inbox/internal/middleware"
	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/internal/service"
	"github.com/pagedesk/support-inbox/pkg/logger"
)

// PageHandler handles page connection endpoints.
type PageHandler struct {
	service *service.PageService
	logger  *logger.Logger
}

// NewPageHandler creates a new page handler.
func NewPageHandler(svc *service.PageService, log *logger.Logger) *PageHandler {
	return &PageHandler{
		service: svc,
		logger:  log,
	}
}

// Connect handles POST /api/facebook/connect
func (h *PageHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.ConnectPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	page, err := h.service.Connect(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, h.logger, err, "page")
		return
	}

	writeJSON(w, http.StatusOK, &model.ConnectPageResponse{
		Message: "Page connected successfully",
		Page:    page,
	})
}

// List handles GET /api/facebook/pages
func (h *PageHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	pages, err := h.service.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "pages")
		return
	}
	if pages == nil {
		pages = []*model.Page{}
	}

	writeJSON(w, http.StatusOK, pages)
}

// Disconnect handles DELETE /api/facebook/pages/{pageID}
func (h *PageHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	pageID := chi.URLParam(r, "pageID")

	if err := h.service.Disconnect(r.Context(), userID, pageID); err != nil {
		writeServiceError(w, h.logger, err, "page")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Page disconnected successfully",
	})
}
