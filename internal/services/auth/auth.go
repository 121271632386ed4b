// Package auth registers users and issues their access tokens.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/terminal-bench/civicsim/internal/apperr"
	"github.com/terminal-bench/civicsim/internal/middleware"
	"github.com/terminal-bench/civicsim/internal/models"
)

// MaxDisplayName bounds display names.
const MaxDisplayName = 100

// UserStore persists users.
type UserStore interface {
	Create(ctx context.Context, user *models.User, password string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	ValidatePassword(user *models.User, password string) bool
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
	Update(ctx context.Context, user *models.User) error
}

// Service handles registration, login and profile updates.
type Service struct {
	users  UserStore
	secret string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an auth service that signs tokens with secret.
func NewService(users UserStore, secret string, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{users: users, secret: secret, ttl: ttl, logger: logger, now: time.Now}
}

// Registration is a sign-up request.
type Registration struct {
	Email       string      `json:"email" binding:"required,email"`
	Password    string      `json:"password" binding:"required,min=8,max=72"`
	DisplayName string      `json:"display_name" binding:"max=100"`
	Role        models.Role `json:"role"`
}

// Token is the result of a successful login.
type Token struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

// Register creates an active user. The role defaults to citizen and only an
// admin caller may create another admin; callerRole is empty for anonymous
// callers.
func (s *Service) Register(ctx context.Context, reg Registration, callerRole models.Role) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(reg.Email))
	if email == "" || reg.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", apperr.ErrInvalidInput)
	}

	role := reg.Role
	if role == "" {
		role = models.RoleCitizen
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperr.ErrInvalidInput, role)
	}
	if role == models.RoleAdmin && callerRole != models.RoleAdmin {
		return nil, fmt.Errorf("%w: only administrators may grant the admin role", apperr.ErrForbidden)
	}

	name := strings.TrimSpace(reg.DisplayName)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	if len(name) > MaxDisplayName {
		return nil, fmt.Errorf("%w: display name is too long", apperr.ErrInvalidInput)
	}

	now := s.now().UTC()
	user := &models.User{
		ID:          uuid.New(),
		Email:       email,
		DisplayName: name,
		Role:        role,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.Create(ctx, user, reg.Password); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login checks the credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Token, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if user == nil || !s.users.ValidatePassword(user, password) {
		return nil, apperr.ErrUnauthorized
	}
	if !user.IsActive {
		return nil, apperr.ErrInactive
	}

	signed, expires, err := middleware.IssueToken(s.secret, user, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record login", "user_id", user.ID, "error", err)
	} else {
		at := s.now().UTC()
		user.LastLoginAt = &at
	}
	return &Token{AccessToken: signed, TokenType: "bearer", ExpiresAt: expires, User: user}, nil
}

// Me returns the signed-in user.
func (s *Service) Me(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperr.ErrNotFound
	}
	if !user.IsActive {
		return nil, apperr.ErrInactive
	}
	return user, nil
}

// UpdateDisplayName changes the signed-in user's display name.
func (s *Service) UpdateDisplayName(ctx context.Context, id uuid.UUID, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxDisplayName {
		return nil, fmt.Errorf("%w: display name must be 1-%d characters", apperr.ErrInvalidInput, MaxDisplayName)
	}
	user, err := s.Me(ctx, id)
	if err != nil {
		return nil, err
	}
	user.DisplayName = name
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
