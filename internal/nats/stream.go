package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/pagedesk/support-inbox/internal/model"
)

const (
	// StreamName is the name of the inbox event stream.
	StreamName = "INBOX"

	// SubjectPrefix is the prefix for all inbox subjects.
	SubjectPrefix = "inbox"
)

// StreamManager handles JetStream stream operations. Every persisted message
// is mirrored onto the stream so downstream consumers (notifications,
// analytics) can react without polling the database.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the inbox stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil // Stream already exists
	}

	// Create stream
	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Message events for connected page inboxes",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for a message event.
func EventSubject(pageID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, pageID, conversationID)
}

// PublishMessageEvent publishes a message event to JetStream.
func (m *StreamManager) PublishMessageEvent(ctx context.Context, event *model.MessageEvent) (uint64, error) {
	subject := EventSubject(event.PageID, event.ConversationID)

	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}
