package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the lifetime of an access token when none is configured.
const DefaultTokenTTL = time.Hour

// CustomClaims carries the identity inside a signed access token.
type CustomClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	UserID   int64  `json:"userId"`
}

// TokenService issues and verifies HS256 access tokens with a shared secret.
// Tokens are self-contained: verification needs no storage and tokens cannot
// be revoked before they expire.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. A non-positive ttl selects
// DefaultTokenTTL.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL returns the configured token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed access token for the identity and returns it with
// the expiry encoded in its exp claim.
func (s *TokenService) Issue(id Identity) (string, time.Time, error) {
	now := s.now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
		Username: id.Username,
		UserID:   id.UserID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks the signature and expiry of a token and returns the identity
// it carries.
//
// Every failure wraps ErrTokenInvalid together with one of
// ErrTokenSignatureInvalid, ErrTokenExpired or ErrTokenMalformed.
func (s *TokenService) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, classifyJWTError(err))
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("%w: %w", ErrTokenInvalid, ErrTokenMalformed)
	}

	if claims.Username == "" || claims.UserID <= 0 {
		return Identity{}, fmt.Errorf("%w: %w: missing identity claims", ErrTokenInvalid, ErrTokenMalformed)
	}

	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// classifyJWTError maps a jwt parse error onto one of the three failure kinds.
func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %w", ErrTokenSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}
}
