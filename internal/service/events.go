package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/pkg/logger"
	"github.com/pagedesk/support-inbox/pkg/metrics"
)

// EventPublisher publishes message events to the event stream.
// *nats.StreamManager satisfies this; a nil publisher disables publishing.
type EventPublisher interface {
	PublishMessageEvent(ctx context.Context, event *model.MessageEvent) (uint64, error)
}

// publishMessageEvent mirrors a persisted message onto the event stream.
// Publish failures never fail the write path; they are logged and counted.
func publishMessageEvent(ctx context.Context, events EventPublisher, log *logger.Logger, pageID string, direction model.EventDirection, msg *model.Message) {
	if events == nil {
		return
	}

	event := &model.MessageEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: msg.ConversationID,
		PageID:         pageID,
		Direction:      direction,
		Message:        msg,
		CreatedAt:      time.Now(),
	}

	if _, err := events.PublishMessageEvent(ctx, event); err != nil {
		log.Warn("failed to publish message event",
			zap.String("conversation_id", msg.ConversationID),
			zap.Error(err))
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
}
