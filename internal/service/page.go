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
)

// PageService handles page connections.
type PageService struct {
	store  store.Store
	logger *logger.Logger
}

// NewPageService creates a new page service.
func NewPageService(st store.Store, log *logger.Logger) *PageService {
	return &PageService{
		store:  st,
		logger: log,
	}
}

// Connect links a platform page to a user account.
// Returns store.ErrPageConnected if the user already connected this page.
func (s *PageService) Connect(ctx context.Context, userID string, req *model.ConnectPageRequest) (*model.Page, error) {
	if req.PageID == "" || req.PageName == "" || req.AccessToken == "" {
		return nil, fmt.Errorf("%w: page ID, name, and access token are required", ErrValidation)
	}

	page := &model.Page{
		ID:          uuid.Must(uuid.NewV7()).String(),
		UserID:      userID,
		PageID:      req.PageID,
		PageName:    req.PageName,
		AccessToken: req.AccessToken,
		CreatedAt:   time.Now(),
	}

	if err := s.store.ConnectPage(ctx, page); err != nil {
		return nil, err
	}

	s.logger.Info("page connected",
		zap.String("page_id", page.PageID),
		zap.String("user_id", userID))
	return page, nil
}

// List returns the pages connected by a user.
func (s *PageService) List(ctx context.Context, userID string) ([]*model.Page, error) {
	return s.store.ListPages(ctx, userID)
}

// Disconnect removes a user's page connection by platform page id.
func (s *PageService) Disconnect(ctx context.Context, userID, pageID string) error {
	if err := s.store.DeletePage(ctx, userID, pageID); err != nil {
		return err
	}

	s.logger.Info("page disconnected",
		zap.String("page_id", pageID),
		zap.String("user_id", userID))
	return nil
}
