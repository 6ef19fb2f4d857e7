// Package service implements the application's use cases on top of the
// storage facade, the account database and the auth primitives.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/recshelf/recshelf-server/internal/auth"
	"github.com/recshelf/recshelf-server/internal/domain"
	domainerrors "github.com/recshelf/recshelf-server/internal/errors"
	"github.com/recshelf/recshelf-server/internal/id"
	"github.com/recshelf/recshelf-server/internal/session"
	"github.com/recshelf/recshelf-server/internal/store"
	"github.com/recshelf/recshelf-server/internal/validation"
)

// EventPublisher receives session changes.
type EventPublisher interface {
	Publish(ev session.Event) error
}

// AuthService handles registration, login and token verification.
// Session bookkeeping is delegated to SessionService.
type AuthService struct {
	*TokenVerifier

	db             store.Database
	sessionService *SessionService
	transfer       *TransferService
	events         EventPublisher
	validator      *validation.Validator
	logger         *slog.Logger
}

// NewAuthService creates an authentication service. events may be nil.
func NewAuthService(
	db store.Database,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	transfer *TransferService,
	events EventPublisher,
	validator *validation.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		TokenVerifier:  NewTokenVerifier(db, tokenService),
		db:             db,
		sessionService: sessionService,
		transfer:       transfer,
		events:         events,
		validator:      validator,
		logger:         logger,
	}
}

// RegisterRequest contains the data for a new account.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"required,max=100"`

	// VisitorID names the visitor store to transfer from. Set by the handler.
	VisitorID string          `json:"-"`
	Client    auth.ClientInfo `json:"-"`
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`

	Client auth.ClientInfo `json:"-"`
}

// RefreshRequest contains the refresh token to rotate.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`

	Client auth.ClientInfo `json:"-"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// RegisterResponse is an AuthResponse plus the outcome of moving the
// visitor's recommendations into the new account.
type RegisterResponse struct {
	AuthResponse
	Transfer *TransferReport `json:"transfer,omitempty"`
}

func (s *AuthService) publish(ev session.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ev); err != nil {
		s.logger.Warn("session event not published", "kind", ev.Kind, "error", err)
	}
}

// Register creates an account, signs it in and, when the request came from
// a visitor, transfers that visitor's recommendations into it.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate(id.PrefixUser)
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		ID:           userID,
		Email:        strings.TrimSpace(req.Email),
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: passwordHash,
		LastLoginAt:  time.Now(),
	}
	user.InitTimestamps()

	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.Client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.publish(session.Event{Kind: session.EventRegistered, UserID: user.ID, VisitorID: req.VisitorID})
	s.logger.Info("user registered", "user_id", user.ID)

	resp := &RegisterResponse{
		AuthResponse: AuthResponse{User: user, SessionResponse: *sessionResp},
	}
	if req.VisitorID != "" && s.transfer != nil {
		report := s.transfer.Transfer(ctx, req.VisitorID, user.ID)
		resp.Transfer = &report
	}
	return resp, nil
}

// Login authenticates a user and creates a new session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.db.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Don't leak whether email exists
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	user.LastLoginAt = time.Now()
	if err := s.db.SetLastLogin(ctx, user.ID, user.LastLoginAt); err != nil {
		s.logger.Warn("failed to update last login time", "user_id", user.ID, "error", err)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.Client)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.publish(session.Event{Kind: session.EventSignedIn, UserID: user.ID})
	s.logger.Info("user logged in", "user_id", user.ID)

	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// RefreshTokens rotates a refresh token.
func (s *AuthService) RefreshTokens(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	sessionResp, user, err := s.sessionService.RefreshSession(ctx, req.RefreshToken, req.Client)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, SessionResponse: *sessionResp}, nil
}

// Logout ends the session behind an access token.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	_, claims, err := s.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		return domainerrors.Unauthorized("not signed in").WithCause(err)
	}
	if err := s.sessionService.DeleteSession(ctx, claims.SessionID); err != nil {
		return err
	}
	s.publish(session.Event{Kind: session.EventSignedOut, UserID: claims.UserID})
	return nil
}
