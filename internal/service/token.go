package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	minSecretLength   = 32
	defaultAccessTTL  = 60 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Claims is the signed payload of an identity token. Subject, IssuedAt and ExpiresAt
// live in the embedded registered claims.
type Claims struct {
	Username string    `json:"username,omitempty"`
	Role     string    `json:"role,omitempty"`
	Kind     TokenKind `json:"type"`
	jwt.RegisteredClaims
}

func registered(subject string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: subject}
}

type TokenConfig struct {
	Secret     string
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
}

// TokenManager issues and verifies HMAC-signed JWTs. It never touches storage.
type TokenManager struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if len(cfg.Secret) < minSecretLength {
		return nil, fmt.Errorf("%w: SECRET_KEY must be at least %d bytes", ErrMisconfigured, minSecretLength)
	}

	alg := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported JWT_ALGORITHM %q", ErrMisconfigured, cfg.Algorithm)
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = defaultRefreshTTL
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenManager{
		secret:     []byte(cfg.Secret),
		method:     method,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

func (m *TokenManager) AccessTTL() time.Duration {
	return m.accessTTL
}

// Issue signs claims as a token of the given kind. A zero ttl selects the default for
// the kind; a negative ttl yields an already expired token.
func (m *TokenManager) Issue(claims Claims, kind TokenKind, ttl time.Duration) (string, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: token subject is required", ErrInvalidInput)
	}

	switch kind {
	case TokenAccess:
		if ttl == 0 {
			ttl = m.accessTTL
		}
	case TokenRefresh:
		if ttl == 0 {
			ttl = m.refreshTTL
		}
	default:
		return "", fmt.Errorf("%w: unknown token kind %q", ErrInvalidInput, kind)
	}

	now := m.now()
	claims.Kind = kind
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
}

// Verify checks signature, algorithm, expiry and required claims.
func (m *TokenManager) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.Kind != TokenAccess && claims.Kind != TokenRefresh {
		return nil, fmt.Errorf("%w: unknown token kind", ErrTokenInvalid)
	}

	return claims, nil
}

// VerifyKind is Verify plus a check that the token is of the expected kind.
func (m *TokenManager) VerifyKind(tokenStr string, kind TokenKind) (*Claims, error) {
	claims, err := m.Verify(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token", ErrTokenInvalid, kind)
	}
	return claims, nil
}
