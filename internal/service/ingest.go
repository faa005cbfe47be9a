package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/internal/store"
	"github.com/pagedesk/support-inbox/pkg/logger"
	"github.com/pagedesk/support-inbox/pkg/metrics"
)

// IngestService normalizes webhook deliveries into persisted messages.
// Errors never propagate to the webhook transport: the delivery has
// already been acknowledged, so failures are logged and counted instead.
type IngestService struct {
	store         store.Store
	conversations *ConversationService
	events        EventPublisher
	logger        *logger.Logger
}

// NewIngestService creates a new ingest service.
func NewIngestService(st store.Store, conversations *ConversationService, events EventPublisher, log *logger.Logger) *IngestService {
	return &IngestService{
		store:         st,
		conversations: conversations,
		events:        events,
		logger:        log,
	}
}

// ProcessDelivery walks every messaging event in a page delivery and
// persists those that carry a message payload. Non-message events
// (delivery receipts, postbacks, read events) are skipped silently.
// Returns the number of events that were persisted.
func (s *IngestService) ProcessDelivery(ctx context.Context, payload *model.WebhookPayload) int {
	processed := 0
	for _, entry := range payload.Entry {
		for _, event := range entry.Messaging {
			if event.Message == nil {
				metrics.RecordWebhookEvent("skipped")
				continue
			}

			if err := s.processMessageEvent(ctx, &event); err != nil {
				if errors.Is(err, store.ErrDuplicateMessage) {
					s.logger.Debug("duplicate message delivery ignored",
						zap.String("message_id", event.Message.MID))
					metrics.RecordWebhookEvent("duplicate")
					continue
				}
				s.logger.Error("failed to ingest message event",
					zap.String("message_id", event.Message.MID),
					zap.String("sender_id", event.Sender.ID),
					zap.Error(err))
				metrics.RecordWebhookEvent("error")
				continue
			}

			metrics.RecordWebhookEvent("ok")
			processed++
		}
	}
	return processed
}

// processMessageEvent threads one inbound message: resolve the conversation
// for the (page, customer) pair, append the message, and advance the
// conversation's activity timestamp. A redelivered message id returns
// store.ErrDuplicateMessage before any state changes.
func (s *IngestService) processMessageEvent(ctx context.Context, event *model.MessagingEvent) error {
	now := time.Now()
	senderID := event.Sender.ID
	pageID := event.Recipient.ID

	conv, created, err := s.conversations.Resolve(ctx, pageID, senderID, now)
	if err != nil {
		return err
	}

	// The conversation's synthesized customer name doubles as the sender
	// display name so a just-created conversation and its first message
	// always agree.
	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		MessageID:      event.Message.MID,
		SenderID:       senderID,
		SenderName:     conv.CustomerName,
		Text:           event.Message.Text,
		IsFromCustomer: true,
		Timestamp:      now,
	}

	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return err
	}

	if !created {
		if err := s.store.TouchConversation(ctx, conv.ID, now); err != nil {
			s.logger.Warn("failed to update conversation activity",
				zap.String("conversation_id", conv.ID),
				zap.Error(err))
		}
	}

	metrics.MessagesTotal.WithLabelValues("inbound").Inc()
	publishMessageEvent(ctx, s.events, s.logger, pageID, model.DirectionInbound, msg)

	return nil
}
