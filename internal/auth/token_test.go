package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	want := Identity{UserID: 42, Username: "alice"}

	token, _, err := svc.Issue(want)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token %q is not a compact JWT", token)
	}

	got, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != want {
		t.Errorf("Verify() = %+v, want %+v", got, want)
	}
}

func TestTokenService_ClaimsShape(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService(testSecret, 0)
	svc.now = func() time.Time { return now }

	token, expiresAt, err := svc.Issue(Identity{UserID: 1, Username: "alice"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims := &CustomClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("ParseUnverified() error = %v", err)
	}
	if claims.Username != "alice" || claims.UserID != 1 {
		t.Errorf("identity claims = %q/%d", claims.Username, claims.UserID)
	}
	if !claims.IssuedAt.Equal(now) {
		t.Errorf("iat = %v, want %v", claims.IssuedAt, now)
	}
	if !claims.ExpiresAt.Equal(now.Add(DefaultTokenTTL)) {
		t.Errorf("exp = %v, want %v", claims.ExpiresAt, now.Add(DefaultTokenTTL))
	}
	if !claims.ExpiresAt.Equal(expiresAt) {
		t.Errorf("Issue() expiry = %v, token exp = %v", expiresAt, claims.ExpiresAt)
	}
	if claims.ID == "" {
		t.Error("jti should be set")
	}
}

func TestTokenService_ExpiryMatchesClaim(t *testing.T) {
	// Sub-second clock: exp is encoded in whole seconds.
	now := time.Date(2026, 10, 17, 12, 0, 0, 987654321, time.UTC)
	svc := NewTokenService(testSecret, time.Hour)
	svc.now = func() time.Time { return now }

	token, expiresAt, err := svc.Issue(Identity{UserID: 1, Username: "alice"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims := &CustomClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("ParseUnverified() error = %v", err)
	}
	if !expiresAt.Equal(claims.ExpiresAt.Time) {
		t.Errorf("Issue() expiry = %v, token exp = %v", expiresAt, claims.ExpiresAt.Time)
	}
}

func TestTokenService_Failures(t *testing.T) {
	now := time.Now()
	svc := NewTokenService(testSecret, time.Hour)
	svc.now = func() time.Time { return now }

	valid, _, err := svc.Issue(Identity{UserID: 7, Username: "bob"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	otherSecret, _, err := NewTokenService("a-completely-different-secret-of-32+", time.Hour).
		Issue(Identity{UserID: 7, Username: "bob"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	expiredSvc := NewTokenService(testSecret, time.Minute)
	expiredSvc.now = func() time.Time { return now.Add(-2 * time.Minute) }
	expired, _, err := expiredSvc.Issue(Identity{UserID: 7, Username: "bob"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		Username:         "bob",
		UserID:           7,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
		Username:         "bob",
		UserID:           7,
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing HS512 token: %v", err)
	}

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomClaims{
		Username: "bob",
		UserID:   7,
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	noIdentity, err := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}

	parts := strings.Split(valid, ".")
	forged := base64.RawURLEncoding.EncodeToString([]byte(
		fmt.Sprintf(`{"username":"bob","userId":1,"exp":%d}`, now.Add(time.Hour).Unix())))
	tampered := parts[0] + "." + forged + "." + parts[2]

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"wrong secret", otherSecret, ErrTokenSignatureInvalid},
		{"tampered payload", tampered, ErrTokenSignatureInvalid},
		{"expired", expired, ErrTokenExpired},
		{"alg none", noneAlg, ErrTokenSignatureInvalid},
		{"other HMAC algorithm", hs512, ErrTokenSignatureInvalid},
		{"missing exp", noExpiry, ErrTokenMalformed},
		{"missing identity", noIdentity, ErrTokenMalformed},
		{"garbage", "not-a-token", ErrTokenMalformed},
		{"empty", "", ErrTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token)
			if !errors.Is(err, ErrTokenInvalid) {
				t.Fatalf("Verify() error = %v, want ErrTokenInvalid", err)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Verify() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFromContext(t.Context()); ok {
		t.Fatal("empty context should carry no identity")
	}

	want := Identity{UserID: 3, Username: "carol"}
	got, ok := IdentityFromContext(WithIdentity(t.Context(), want))
	if !ok || got != want {
		t.Errorf("IdentityFromContext() = %+v, %v; want %+v, true", got, ok, want)
	}
}
