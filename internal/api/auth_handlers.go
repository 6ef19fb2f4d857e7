package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/recshelf/recshelf-server/internal/domain"
	domainerrors "github.com/recshelf/recshelf-server/internal/errors"
	"github.com/recshelf/recshelf-server/internal/service"
	"github.com/recshelf/recshelf-server/internal/session"
	"github.com/recshelf/recshelf-server/internal/storage"
	"github.com/recshelf/recshelf-server/internal/visitor"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "register",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/register",
		Summary:     "Register new user",
		Description: "Creates an account and signs it in. Recommendations the calling visitor added are moved into the new account.",
		Tags:        []string{"Authentication"},
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "User login",
		Description: "Authenticates a user and returns access and refresh tokens",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/refresh",
		Summary:     "Refresh tokens",
		Description: "Exchanges a refresh token for new tokens",
		Tags:        []string{"Authentication"},
	}, s.handleRefresh)

	huma.Register(s.api, huma.Operation{
		OperationID: "logout",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/logout",
		Summary:     "Logout",
		Description: "Ends the session behind the bearer token",
		Tags:        []string{"Authentication"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLogout)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/session",
		Summary:     "Current session",
		Description: "Reports whether the caller is signed in or browsing as a visitor",
		Tags:        []string{"Authentication"},
	}, s.handleGetSession)
}

// === DTOs ===

// RegisterRequest is the request body for user registration.
type RegisterRequest struct {
	Email       string `json:"email" doc:"User email address"`
	Password    string `json:"password" doc:"User password (min 8 characters)"`
	DisplayName string `json:"display_name" doc:"Name shown in the app"`
}

// RegisterInput wraps the register request for Huma.
type RegisterInput struct {
	Body RegisterRequest
}

// RegisterOutput wraps the register response for Huma.
type RegisterOutput struct {
	Body *service.RegisterResponse
}

// LoginRequest is the request body for user login.
type LoginRequest struct {
	Email    string `json:"email" doc:"User email"`
	Password string `json:"password" doc:"User password"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" doc:"Refresh token"`
}

// RefreshInput wraps the refresh request for Huma.
type RefreshInput struct {
	Body RefreshRequest
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body *service.AuthResponse
}

// MessageResponse contains a simple message.
type MessageResponse struct {
	Message string `json:"message" doc:"Success message"`
}

// MessageOutput wraps the message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// SessionInfo describes who the caller is acting as.
type SessionInfo struct {
	Mode      storage.Mode `json:"mode" enum:"account,visitor" doc:"account when signed in, visitor otherwise"`
	User      *domain.User `json:"user,omitempty" doc:"Signed-in user"`
	VisitorID string       `json:"visitor_id,omitempty" doc:"Visitor ID used for unauthenticated storage"`
}

// SessionOutput wraps the session info for Huma.
type SessionOutput struct {
	Body SessionInfo
}

// === Handlers ===

// allowAuthCall applies the per-IP limit on auth endpoints.
func (s *Server) allowAuthCall(ctx context.Context, op string) error {
	ip := clientFromContext(ctx).IPAddress
	if s.authRateLimiter.Allow(ip) {
		return nil
	}
	s.logger.Warn("rate limit exceeded", "ip", ip, "operation", op)
	return domainerrors.RateLimited("too many requests, please try again later")
}

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*RegisterOutput, error) {
	if err := s.allowAuthCall(ctx, "register"); err != nil {
		return nil, err
	}

	req := service.RegisterRequest{
		Email:       input.Body.Email,
		Password:    input.Body.Password,
		DisplayName: input.Body.DisplayName,
		Client:      clientFromContext(ctx),
	}
	if visitorID, ok := visitor.IDFromContext(ctx); ok {
		req.VisitorID = visitorID
	}

	resp, err := s.services.Auth.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return &RegisterOutput{Body: resp}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	if err := s.allowAuthCall(ctx, "login"); err != nil {
		return nil, err
	}

	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Email:    input.Body.Email,
		Password: input.Body.Password,
		Client:   clientFromContext(ctx),
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: resp}, nil
}

func (s *Server) handleRefresh(ctx context.Context, input *RefreshInput) (*AuthOutput, error) {
	if err := s.allowAuthCall(ctx, "refresh"); err != nil {
		return nil, err
	}

	resp, err := s.services.Auth.RefreshTokens(ctx, service.RefreshRequest{
		RefreshToken: input.Body.RefreshToken,
		Client:       clientFromContext(ctx),
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: resp}, nil
}

func (s *Server) handleLogout(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	token, ok := session.TokenFromContext(ctx)
	if !ok {
		return nil, domainerrors.Unauthorized("not signed in")
	}
	if err := s.services.Auth.Logout(ctx, token); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Logged out successfully"}}, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ *struct{}) (*SessionOutput, error) {
	if token, ok := session.TokenFromContext(ctx); ok {
		if user, _, err := s.services.Auth.VerifyAccessToken(ctx, token); err == nil {
			return &SessionOutput{Body: SessionInfo{Mode: storage.ModeAccount, User: user}}, nil
		}
	}

	info := SessionInfo{Mode: storage.ModeVisitor}
	info.VisitorID, _ = visitor.IDFromContext(ctx)
	return &SessionOutput{Body: info}, nil
}
