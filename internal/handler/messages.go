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

// MessageHandler handles message endpoints.
type MessageHandler struct {
	service *service.MessageService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/conversations/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	messages, err := h.service.List(r.Context(), conversationID)
	if err != nil {
		writeServiceError(w, h.logger, err, "conversation")
		return
	}
	if messages == nil {
		messages = []*model.Message{}
	}

	writeJSON(w, http.StatusOK, messages)
}

// Send handles POST /api/conversations/{id}/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.service.Append(r.Context(), conversationID, userID, req.Message)
	if err != nil {
		writeServiceError(w, h.logger, err, "conversation")
		return
	}

	writeJSON(w, http.StatusOK, &model.SendMessageResponse{
		Message:     "Message sent successfully",
		MessageData: msg,
	})
}
