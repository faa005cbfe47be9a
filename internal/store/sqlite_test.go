package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/pkg/logger"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath, logger.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func newTestUser(email string) *model.User {
	return &model.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Name:         "Test Agent",
		Email:        email,
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestStore_CreateUser(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := newTestUser("agent@example.com")
	require.NoError(t, store.CreateUser(ctx, user))

	byEmail, err := store.GetUserByEmail(ctx, "agent@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "Test Agent", byEmail.Name)

	byID, err := store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)
}

func TestStore_CreateUser_DuplicateEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, newTestUser("agent@example.com")))

	err := store.CreateUser(ctx, newTestUser("agent@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestStore_GetUser_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetUserByID(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func newTestPage(userID, pageID string) *model.Page {
	return &model.Page{
		ID:          uuid.Must(uuid.NewV7()).String(),
		UserID:      userID,
		PageID:      pageID,
		PageName:    "Test Page",
		AccessToken: "token-123",
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
}

func TestStore_ConnectPage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := newTestUser("agent@example.com")
	require.NoError(t, store.CreateUser(ctx, user))

	require.NoError(t, store.ConnectPage(ctx, newTestPage(user.ID, "P1")))
	require.NoError(t, store.ConnectPage(ctx, newTestPage(user.ID, "P2")))

	pages, err := store.ListPages(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)

	ids, err := store.ListPageIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"P1", "P2"}, ids)
}

func TestStore_ConnectPage_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := newTestUser("agent@example.com")
	require.NoError(t, store.CreateUser(ctx, user))

	require.NoError(t, store.ConnectPage(ctx, newTestPage(user.ID, "P1")))

	err := store.ConnectPage(ctx, newTestPage(user.ID, "P1"))
	assert.ErrorIs(t, err, ErrPageConnected)
}

func TestStore_ConnectPage_SamePageDifferentUsers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	alice := newTestUser("alice@example.com")
	bob := newTestUser("bob@example.com")
	require.NoError(t, store.CreateUser(ctx, alice))
	require.NoError(t, store.CreateUser(ctx, bob))

	// Page ids are only unique per user.
	require.NoError(t, store.ConnectPage(ctx, newTestPage(alice.ID, "P1")))
	require.NoError(t, store.ConnectPage(ctx, newTestPage(bob.ID, "P1")))
}

func TestStore_DeletePage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	user := newTestUser("agent@example.com")
	require.NoError(t, store.CreateUser(ctx, user))
	require.NoError(t, store.ConnectPage(ctx, newTestPage(user.ID, "P1")))

	require.NoError(t, store.DeletePage(ctx, user.ID, "P1"))

	err := store.DeletePage(ctx, user.ID, "P1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func candidateConversation(pageID, customerID string, at time.Time) *model.Conversation {
	return &model.Conversation{
		ID:            uuid.Must(uuid.NewV7()).String(),
		PageID:        pageID,
		CustomerID:    customerID,
		CustomerName:  "Customer " + customerID[len(customerID)-4:],
		LastMessageAt: at,
		CreatedAt:     at,
	}
}

func TestStore_ResolveConversation_CreatesNew(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	candidate := candidateConversation("P1", "C1234", now)

	conv, created, err := store.ResolveConversation(ctx, candidate, 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, candidate.ID, conv.ID)

	got, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Customer 1234", got.CustomerName)
}

func TestStore_ResolveConversation_ReusesWithinWindow(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	first, created, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1234", now), 24*time.Hour)
	require.NoError(t, err)
	require.True(t, created)

	// Five minutes later the same pair resolves to the same conversation.
	later := now.Add(5 * time.Minute)
	second, created, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1234", later), 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestStore_ResolveConversation_NewAfterWindow(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	first, created, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1234", now), 24*time.Hour)
	require.NoError(t, err)
	require.True(t, created)

	// 25 hours later the window has lapsed and a new conversation starts.
	later := now.Add(25 * time.Hour)
	second, created, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1234", later), 24*time.Hour)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestStore_ResolveConversation_DistinctPairs(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)

	a, created, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1234", now), 24*time.Hour)
	require.NoError(t, err)
	require.True(t, created)

	// Same customer, different page.
	b, created, err := store.ResolveConversation(ctx, candidateConversation("P2", "C1234", now), 24*time.Hour)
	require.NoError(t, err)
	require.True(t, created)
	assert.NotEqual(t, a.ID, b.ID)

	// Same page, different customer.
	c, created, err := store.ResolveConversation(ctx, candidateConversation("P1", "C9999", now), 24*time.Hour)
	require.NoError(t, err)
	require.True(t, created)
	assert.NotEqual(t, a.ID, c.ID)
}

func TestStore_ResolveConversation_Concurrent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	const writers = 8

	ids := make(chan string, writers)
	errs := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, _, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1234", now), 24*time.Hour)
			if err != nil {
				errs <- err
				return
			}
			ids <- conv.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	// Contending writers must wait for the lock, not fail, and they must
	// all land on the same conversation.
	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[string]bool)
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1)
}

func newTestMessage(conversationID, mid string, fromCustomer bool, at time.Time) *model.Message {
	return &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		MessageID:      mid,
		SenderID:       "C1234",
		SenderName:     "Customer 1234",
		Text:           "Hi",
		IsFromCustomer: fromCustomer,
		Timestamp:      at,
	}
}

func TestStore_InsertMessage_Duplicate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	conv, _, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1234", now), 24*time.Hour)
	require.NoError(t, err)

	require.NoError(t, store.InsertMessage(ctx, newTestMessage(conv.ID, "m1", true, now)))

	// Redelivery of the same platform message id is a detectable no-op.
	err = store.InsertMessage(ctx, newTestMessage(conv.ID, "m1", true, now))
	assert.ErrorIs(t, err, ErrDuplicateMessage)

	messages, err := store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestStore_ListMessages_Ordering(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	conv, _, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1234", now), 24*time.Hour)
	require.NoError(t, err)

	// Two messages in the same second plus one later; listing must come
	// back in insertion order.
	require.NoError(t, store.InsertMessage(ctx, newTestMessage(conv.ID, "m1", true, now)))
	require.NoError(t, store.InsertMessage(ctx, newTestMessage(conv.ID, "m2", true, now)))
	require.NoError(t, store.InsertMessage(ctx, newTestMessage(conv.ID, "m3", false, now.Add(time.Minute))))

	messages, err := store.ListMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "m1", messages[0].MessageID)
	assert.Equal(t, "m2", messages[1].MessageID)
	assert.Equal(t, "m3", messages[2].MessageID)

	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].Timestamp.Before(messages[i-1].Timestamp))
	}
}

func TestStore_TouchConversation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	conv, _, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1234", now), 24*time.Hour)
	require.NoError(t, err)

	later := now.Add(10 * time.Minute)
	require.NoError(t, store.TouchConversation(ctx, conv.ID, later))

	got, err := store.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, later, got.LastMessageAt)

	err = store.TouchConversation(ctx, "nonexistent", later)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListConversations_Aggregates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	conv, _, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1234", now), 24*time.Hour)
	require.NoError(t, err)

	m1 := newTestMessage(conv.ID, "m1", true, now)
	m1.Text = "Hi"
	require.NoError(t, store.InsertMessage(ctx, m1))
	m2 := newTestMessage(conv.ID, "m2", false, now.Add(time.Minute))
	m2.Text = "Hello, how can I help?"
	require.NoError(t, store.InsertMessage(ctx, m2))

	convs, err := store.ListConversations(ctx, []string{"P1"})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 2, convs[0].MessageCount)
	assert.Equal(t, "Hello, how can I help?", convs[0].LastMessage)
}

func TestStore_ListConversations_ScopedToPages(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	_, _, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1234", now), 24*time.Hour)
	require.NoError(t, err)
	_, _, err = store.ResolveConversation(ctx, candidateConversation("P2", "C5678", now), 24*time.Hour)
	require.NoError(t, err)

	convs, err := store.ListConversations(ctx, []string{"P1"})
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "P1", convs[0].PageID)

	convs, err = store.ListConversations(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, convs)
}

func TestStore_ListConversations_RecentFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	older, _, err := store.ResolveConversation(ctx, candidateConversation("P1", "C1111", now.Add(-time.Hour)), 24*time.Hour)
	require.NoError(t, err)
	newer, _, err := store.ResolveConversation(ctx, candidateConversation("P1", "C2222", now), 24*time.Hour)
	require.NoError(t, err)

	convs, err := store.ListConversations(ctx, []string{"P1"})
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, newer.ID, convs[0].ID)
	assert.Equal(t, older.ID, convs[1].ID)
}
