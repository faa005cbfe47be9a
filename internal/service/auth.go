package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pagedesk/support-inbox/internal/middleware"
	"github.com/pagedesk/support-inbox/internal/model"
	"github.com/pagedesk/support-inbox/internal/store"
	"github.com/pagedesk/support-inbox/pkg/logger"
)

const bcryptCost = 10

// AuthService handles registration, login and profile lookup.
type AuthService struct {
	store         store.Store
	jwtSecret     string
	jwtExpiration time.Duration
	logger        *logger.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(st store.Store, jwtSecret string, jwtExpiration time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		store:         st,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
		logger:        log,
	}
}

// Register creates a new user account and returns a signed token.
// Returns store.ErrDuplicateEmail if the email is already taken.
func (s *AuthService) Register(ctx context.Context, req *model.RegisterRequest) (*model.AuthResponse, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: all fields are required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &model.User{
		ID:           uuid.Must(uuid.NewV7()).String(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.signToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))

	return &model.AuthResponse{
		Message: "User created successfully",
		Token:   token,
		User:    user,
	}, nil
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.signToken(user)
	if err != nil {
		return nil, err
	}

	return &model.AuthResponse{
		Message: "Login successful",
		Token:   token,
		User:    user,
	}, nil
}

// Profile retrieves the authenticated user's profile.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

func (s *AuthService) signToken(user *model.User) (string, error) {
	now := time.Now()
	claims := &middleware.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtExpiration)),
		},
		Email: user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
