package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/mockinterview/internal/store"
	"github.com/kiranshivaraju/mockinterview/pkg/models"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenRevoked       = errors.New("token revoked")
)

// UserStore is the subset of store.Store the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
}

// Session is the outcome of a successful login.
type Session struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

type Service struct {
	users  UserStore
	tokens *TokenService
	hasher *PasswordHasher
	logger *slog.Logger
}

func NewService(users UserStore, tokens *TokenService, hasher *PasswordHasher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, tokens: tokens, hasher: hasher, logger: logger}
}

func (s *Service) Tokens() *TokenService { return s.tokens }

// Register creates a user. Name and email format are checked by the caller;
// the password policy is enforced here.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	s.logger.Info("user.registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials, issues both tokens and persists the refresh token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefresh(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	user.RefreshToken = &refresh

	s.logger.Info("user.logged_in", "user_id", user.ID)
	return &Session{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh exchanges a refresh token for a new access token. The token must
// match the one stored at login.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrTokenRevoked
	}
	if err != nil {
		return nil, err
	}
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, ErrTokenRevoked
	}

	access, err := s.tokens.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, AccessToken: access}, nil
}

// Authenticate resolves an access token to a user id.
func (s *Service) Authenticate(accessToken string) (uuid.UUID, error) {
	claims, err := s.tokens.Parse(accessToken, TokenTypeAccess)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// Logout clears the stored refresh token. Unknown users are ignored.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return nil
	}
	err := s.users.SetRefreshToken(ctx, userID, nil)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
