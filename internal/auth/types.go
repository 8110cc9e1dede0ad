package auth

import (
	"errors"
	"time"
	"unicode/utf8"
)

// maxUsernameLength is the maximum allowed username length in characters.
const maxUsernameLength = 64

// IsValidUsername reports whether username is valid UTF-8 of at most
// maxUsernameLength characters. Any characters are allowed.
func IsValidUsername(username string) bool {
	return utf8.ValidString(username) && utf8.RuneCountInString(username) <= maxUsernameLength
}

// Identity is the authenticated principal resolved from a token.
type Identity struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// User represents a registered account.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"created_at"`
}

// Identity returns the principal for this account.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Username: u.Username}
}

// Sentinel errors for auth operations.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")

	// ErrNoToken means the request carried no bearer token at all.
	ErrNoToken = errors.New("no bearer token")

	// ErrTokenInvalid wraps every verification failure. Exactly one of the
	// more specific sentinels below is wrapped alongside it.
	ErrTokenInvalid          = errors.New("invalid token")
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
	ErrTokenExpired          = errors.New("token has expired")
	ErrTokenMalformed        = errors.New("token is malformed")
)
