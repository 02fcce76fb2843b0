package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aetherlens/backend/internal/db"
	"github.com/aetherlens/backend/internal/model"
)

const defaultStoreTimeout = 2 * time.Second

type UserReader interface {
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
}

// IdentityResolver turns a presented access token into the caller record it names.
type IdentityResolver struct {
	tokens  *TokenManager
	users   UserReader
	timeout time.Duration
}

func NewIdentityResolver(tokens *TokenManager, users UserReader, timeout time.Duration) *IdentityResolver {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &IdentityResolver{tokens: tokens, users: users, timeout: timeout}
}

// Resolve verifies an access token and loads its subject. A token naming a caller that
// no longer exists is reported as ErrUnauthenticated, the same as a missing subject.
// Store failures, including the lookup timeout, are returned unwrapped by the taxonomy.
func (r *IdentityResolver) Resolve(ctx context.Context, tokenStr string) (*model.User, error) {
	claims, err := r.tokens.VerifyKind(tokenStr, TokenAccess)
	if err != nil {
		return nil, err
	}
	return r.lookup(ctx, claims.Subject)
}

func (r *IdentityResolver) lookup(ctx context.Context, subject string) (*model.User, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, ErrUnauthenticated
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	user, err := r.users.GetUserByID(ctx, subject)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("load caller %s: %w", subject, err)
	}
	return user, nil
}

// RequireRole passes the caller through only on an exact role match.
func RequireRole(user *model.User, role string) (*model.User, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if user.Role != role {
		return nil, ErrForbidden
	}
	return user, nil
}
