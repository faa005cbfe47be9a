package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/internal/store"
	"github.com/pagedesk/support-inbox/pkg/logger"
)

// setupTestStore creates a temporary SQLite store for service tests.
func setupTestStore(t *testing.T) store.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	st, err := store.NewSQLiteStore(dbPath, logger.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		st.Close()
	})

	return st
}

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []*model.MessageEvent
}

func (p *capturingPublisher) PublishMessageEvent(ctx context.Context, event *model.MessageEvent) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return uint64(len(p.events)), nil
}

func (p *capturingPublisher) published() []*model.MessageEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*model.MessageEvent(nil), p.events...)
}

// registerTestUser creates a user through the auth service and returns it.
func registerTestUser(t *testing.T, st store.Store, email string) *model.User {
	t.Helper()
	authSvc := NewAuthService(st, "test-secret", 0, logger.NewNop())
	resp, err := authSvc.Register(context.Background(), &model.RegisterRequest{
		Name:     "Test Agent",
		Email:    email,
		Password: "hunter22",
	})
	require.NoError(t, err)
	return resp.User
}
