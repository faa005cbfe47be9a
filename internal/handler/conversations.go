package handler

import (
	"net/http"

	"github.com/pagedesk/support-inbox/internal/middleware"
	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/internal/service"
	"github.com/pagedesk/support-inbox/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	service *service.ConversationService
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(svc *service.ConversationService, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.service.ListForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "conversations")
		return
	}
	if convs == nil {
		convs = []*model.Conversation{}
	}

	writeJSON(w, http.StatusOK, convs)
}
