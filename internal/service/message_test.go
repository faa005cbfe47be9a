package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/internal/store"
	"github.com/pagedesk/support-inbox/pkg/logger"
)

func TestMessageService_Append(t *testing.T) {
	st := setupTestStore(t)
	events := &capturingPublisher{}
	svc := NewMessageService(st, events, logger.NewNop())
	convSvc := NewConversationService(st, logger.NewNop())
	ctx := context.Background()

	user := registerTestUser(t, st, "agent@example.com")
	before := time.Now().UTC().Truncate(time.Second)
	conv, _, err := convSvc.Resolve(ctx, "P1", "C1234", before.Add(-time.Hour))
	require.NoError(t, err)

	msg, err := svc.Append(ctx, conv.ID, user.ID, "How can I help?")
	require.NoError(t, err)
	assert.Equal(t, conv.ID, msg.ConversationID)
	assert.Equal(t, user.ID, msg.SenderID)
	assert.Equal(t, "Test Agent", msg.SenderName)
	assert.False(t, msg.IsFromCustomer)
	assert.Regexp(t, regexp.MustCompile(`^agent_\d+_[a-z0-9]{9}$`), msg.MessageID)

	// The conversation's activity timestamp advances with the reply.
	got, err := st.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, got.LastMessageAt.Before(before))

	published := events.published()
	require.Len(t, published, 1)
	assert.Equal(t, model.DirectionOutbound, published[0].Direction)
	assert.Equal(t, "P1", published[0].PageID)
}

func TestMessageService_Append_EmptyText(t *testing.T) {
	st := setupTestStore(t)
	svc := NewMessageService(st, nil, logger.NewNop())
	convSvc := NewConversationService(st, logger.NewNop())
	ctx := context.Background()

	user := registerTestUser(t, st, "agent@example.com")
	conv, _, err := convSvc.Resolve(ctx, "P1", "C1234", time.Now())
	require.NoError(t, err)

	_, err = svc.Append(ctx, conv.ID, user.ID, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	// Nothing was written.
	messages, err := st.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestMessageService_Append_ConversationNotFound(t *testing.T) {
	st := setupTestStore(t)
	svc := NewMessageService(st, nil, logger.NewNop())
	ctx := context.Background()

	user := registerTestUser(t, st, "agent@example.com")

	_, err := svc.Append(ctx, "nonexistent", user.ID, "hello")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMessageService_List(t *testing.T) {
	st := setupTestStore(t)
	svc := NewMessageService(st, nil, logger.NewNop())
	convSvc := NewConversationService(st, logger.NewNop())
	ctx := context.Background()

	user := registerTestUser(t, st, "agent@example.com")
	conv, _, err := convSvc.Resolve(ctx, "P1", "C1234", time.Now())
	require.NoError(t, err)

	_, err = svc.Append(ctx, conv.ID, user.ID, "first")
	require.NoError(t, err)
	_, err = svc.Append(ctx, conv.ID, user.ID, "second")
	require.NoError(t, err)

	messages, err := svc.List(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Text)
	assert.Equal(t, "second", messages[1].Text)
}

func TestMessageService_List_ConversationNotFound(t *testing.T) {
	st := setupTestStore(t)
	svc := NewMessageService(st, nil, logger.NewNop())

	_, err := svc.List(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAgentMessageID_Unique(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := agentMessageID(now)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
