package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/internal/store"
	"github.com/pagedesk/support-inbox/pkg/logger"
	"github.com/pagedesk/support-inbox/pkg/metrics"
)

// MessageService handles agent replies and message listing.
type MessageService struct {
	store  store.Store
	events EventPublisher
	logger *logger.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(st store.Store, events EventPublisher, log *logger.Logger) *MessageService {
	return &MessageService{
		store:  st,
		events: events,
		logger: log,
	}
}

// Append records an agent-authored reply against an existing conversation
// and advances its last activity timestamp. No platform send occurs; the
// platform message id is synthesized locally.
func (s *MessageService) Append(ctx context.Context, conversationID, userID, text string) (*model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: message is required", ErrValidation)
	}

	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conv.ID,
		MessageID:      agentMessageID(now),
		SenderID:       user.ID,
		SenderName:     user.Name,
		Text:           text,
		IsFromCustomer: false,
		Timestamp:      now,
	}

	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	if err := s.store.TouchConversation(ctx, conv.ID, now); err != nil {
		s.logger.Warn("failed to update conversation activity",
			zap.String("conversation_id", conv.ID),
			zap.Error(err))
	}

	metrics.MessagesTotal.WithLabelValues("outbound").Inc()
	publishMessageEvent(ctx, s.events, s.logger, conv.PageID, model.DirectionOutbound, msg)

	return msg, nil
}

// List returns the messages of a conversation, oldest first.
// Returns store.ErrNotFound if the conversation does not exist.
func (s *MessageService) List(ctx context.Context, conversationID string) ([]*model.Message, error) {
	if _, err := s.store.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

const messageIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// agentMessageID synthesizes a platform-shaped message id for outbound
// messages, e.g. "agent_1717171717000_x4k9tq2mz".
func agentMessageID(now time.Time) string {
	buf := make([]byte, 9)
	if _, err := rand.Read(buf); err != nil {
		// rand.Read failing means the process is in much deeper trouble;
		// fall back to a time-derived suffix.
		return fmt.Sprintf("agent_%d_%09d", now.UnixMilli(), now.Nanosecond())
	}
	for i, b := range buf {
		buf[i] = messageIDAlphabet[int(b)%len(messageIDAlphabet)]
	}
	return fmt.Sprintf("agent_%d_%s", now.UnixMilli(), buf)
}
