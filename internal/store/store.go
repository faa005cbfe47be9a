// Package store provides persistence for users, pages, conversations and messages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/pagedesk/support-inbox/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when registering an email that is already taken.
var ErrDuplicateEmail = errors.New("user already exists")

// ErrPageConnected is returned when connecting a page the user already connected.
var ErrPageConnected = errors.New("page already connected")

// ErrDuplicateMessage is returned when inserting a message whose platform
// message id has already been persisted. Callers treat this as a no-op.
var ErrDuplicateMessage = errors.New("message already exists")

// Store is the persistence interface used by the service layer.
type Store interface {
	// Users
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	// Pages
	ConnectPage(ctx context.Context, page *model.Page) error
	ListPages(ctx context.Context, userID string) ([]*model.Page, error)
	ListPageIDs(ctx context.Context, userID string) ([]string, error)
	DeletePage(ctx context.Context, userID, pageID string) error

	// Conversations. ResolveConversation returns the most recent conversation
	// for the candidate's (page, customer) pair whose last activity falls
	// within the window ending at candidate.LastMessageAt; if none exists the
	// candidate itself is inserted and returned. Lookup and insert happen in
	// one transaction so concurrent first-contact events cannot both insert.
	ResolveConversation(ctx context.Context, candidate *model.Conversation, window time.Duration) (*model.Conversation, bool, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	ListConversations(ctx context.Context, pageIDs []string) ([]*model.Conversation, error)
	TouchConversation(ctx context.Context, id string, at time.Time) error

	// Messages
	InsertMessage(ctx context.Context, msg *model.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*model.Message, error)

	Ping(ctx context.Context) error
	Close() error
}
