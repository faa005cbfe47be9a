package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/internal/service"
	"github.com/pagedesk/support-inbox/pkg/logger"
	"github.com/pagedesk/support-inbox/pkg/metrics"
)

// WebhookHandler handles platform webhook verification and deliveries.
type WebhookHandler struct {
	ingest      *service.IngestService
	verifyToken string
	logger      *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(ingest *service.IngestService, verifyToken string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		ingest:      ingest,
		verifyToken: verifyToken,
		logger:      log,
	}
}

// Verify handles GET /webhook — the platform subscription handshake.
// The challenge is echoed only when the mode is "subscribe" and the token
// matches the configured secret.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.logger.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}

	w.WriteHeader(http.StatusForbidden)
}

// Receive handles POST /webhook — inbound event deliveries. Page deliveries
// are always acknowledged with 200 regardless of persistence outcome: the
// platform has no retry contract this system relies on, so failures are
// logged and counted rather than surfaced.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var payload model.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		metrics.WebhookDeliveriesTotal.WithLabelValues("malformed").Inc()
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if payload.Object != "page" {
		metrics.WebhookDeliveriesTotal.WithLabelValues("ignored").Inc()
		w.WriteHeader(http.StatusNotFound)
		return
	}

	processed := h.ingest.ProcessDelivery(r.Context(), &payload)
	h.logger.Debug("webhook delivery processed",
		zap.Int("entries", len(payload.Entry)),
		zap.Int("messages", processed))
	metrics.WebhookDeliveriesTotal.WithLabelValues("ok").Inc()

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("EVENT_RECEIVED"))
}
