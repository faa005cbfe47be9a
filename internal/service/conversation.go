package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/internal/store"
	"github.com/pagedesk/support-inbox/pkg/logger"
	"github.com/pagedesk/support-inbox/pkg/metrics"
)

// SessionWindow is how long after its last activity a conversation still
// counts as the same support session. An inbound message inside the window
// joins the existing conversation; outside it a new one is started. Two
// distinct issues inside the window are merged; that is the intended
// tradeoff of having no explicit close/archive concept.
const SessionWindow = 24 * time.Hour

// ConversationService owns conversation threading and listing.
type ConversationService struct {
	store  store.Store
	logger *logger.Logger
}

// NewConversationService creates a new conversation service.
func NewConversationService(st store.Store, log *logger.Logger) *ConversationService {
	return &ConversationService{
		store:  st,
		logger: log,
	}
}

// CustomerDisplayName synthesizes a display name from the tail of a
// platform customer id, e.g. "Customer 1234".
func CustomerDisplayName(customerID string) string {
	tail := customerID
	if len(tail) > 4 {
		tail = tail[len(tail)-4:]
	}
	return fmt.Sprintf("Customer %s", tail)
}

// Resolve returns the conversation an inbound message at time now belongs
// to, creating one when the customer has no conversation with activity
// inside the session window. The bool is true when a conversation was
// created.
func (s *ConversationService) Resolve(ctx context.Context, pageID, customerID string, now time.Time) (*model.Conversation, bool, error) {
	candidate := &model.Conversation{
		ID:            uuid.Must(uuid.NewV7()).String(),
		PageID:        pageID,
		CustomerID:    customerID,
		CustomerName:  CustomerDisplayName(customerID),
		LastMessageAt: now,
		CreatedAt:     now,
	}

	conv, created, err := s.store.ResolveConversation(ctx, candidate, SessionWindow)
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("conversation created",
			zap.String("conversation_id", conv.ID),
			zap.String("page_id", pageID),
			zap.String("customer_id", customerID))
		metrics.ConversationsTotal.WithLabelValues(pageID).Inc()
	}

	return conv, created, nil
}

// Get retrieves a conversation by id.
func (s *ConversationService) Get(ctx context.Context, id string) (*model.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

// ListForUser returns conversations across all pages the user connected,
// most recent activity first, with last-message text and message counts.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]*model.Conversation, error) {
	pageIDs, err := s.store.ListPageIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(pageIDs) == 0 {
		return nil, nil
	}
	return s.store.ListConversations(ctx, pageIDs)
}
