package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aetherlens/backend/internal/db"
	"github.com/aetherlens/backend/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	tokenTypeBearer   = "bearer"
	minUsernameLength = 3
	minPasswordLength = 8
)

type UserStore interface {
	UserReader
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	CreateUser(ctx context.Context, username, email, passwordHash, role string) (*model.User, error)
}

type AuthService struct {
	users    UserStore
	tokens   *TokenManager
	identity *IdentityResolver
	timeout  time.Duration
	log      *zap.Logger
	verify   func(password, hash string) bool
}

func NewAuthService(users UserStore, tokens *TokenManager, identity *IdentityResolver, timeout time.Duration, log *zap.Logger) *AuthService {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		identity: identity,
		timeout:  timeout,
		log:      log,
		verify:   VerifyPassword,
	}
}

// EnsureAdmin creates the bootstrap admin caller when it does not exist yet.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	if strings.TrimSpace(username) == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: ADMIN_USERNAME/ADMIN_PASSWORD are required", ErrMisconfigured)
	}

	_, err := s.users.GetUserByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !db.IsNoRows(err) {
		return err
	}

	if err := validateCredentials(username, password); err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	user, err := s.users.CreateUser(ctx, username, email, hash, model.RoleAdmin)
	if err != nil {
		if isUniqueViolation(err) {
			return nil
		}
		return err
	}
	s.log.Info("Admin user created", zap.String("user_id", user.UserID), zap.String("username", user.Username))
	return nil
}

// Login checks credentials and issues an access/refresh pair. Unknown users and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, username, password string) (*model.TokenResponse, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return nil, ErrInvalidInput
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	user, err := s.users.GetUserByUsername(lookupCtx, username)
	if err != nil {
		if db.IsNoRows(err) {
			s.verify(password, dummyPasswordHash())
			s.log.Warn("Login failed - user not found", zap.String("username", username))
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	if !s.verify(password, user.PasswordHash) {
		s.log.Warn("Login failed - invalid password", zap.String("username", username))
		return nil, ErrUnauthenticated
	}

	resp, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	s.log.Info("User logged in", zap.String("user_id", user.UserID), zap.String("username", user.Username))
	return resp, nil
}

// Refresh exchanges a refresh token for a new pair. The subject must still exist.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.tokens.VerifyKind(refreshToken, TokenRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.identity.lookup(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	return s.issueTokens(user)
}

func (s *AuthService) issueTokens(user *model.User) (*model.TokenResponse, error) {
	accessToken, err := s.tokens.Issue(Claims{
		Username:         user.Username,
		Role:             user.Role,
		RegisteredClaims: registered(user.UserID),
	}, TokenAccess, 0)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.Issue(Claims{
		RegisteredClaims: registered(user.UserID),
	}, TokenRefresh, 0)
	if err != nil {
		return nil, err
	}

	return &model.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}

func validateCredentials(username, password string) error {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)

	if len(username) < minUsernameLength || len(username) > 64 {
		return ErrInvalidInput
	}
	if len(password) < minPasswordLength || len(password) > 128 {
		return ErrInvalidInput
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
