package auth

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/spaces-core/internal/apperr"
	"github.com/nerrad567/spaces-core/internal/events"
)

// User-facing messages returned with domain errors.
const (
	MsgMissingCredentials = "Username and password are required"
	MsgInvalidUsername    = "Username must be at most 64 characters"
	MsgPasswordTooLong    = "Password is too long"
	MsgUsernameExists     = "Username already exists"
	MsgUsernameNotFound   = "Username not found"
	MsgIncorrectPassword  = "Incorrect password"
)

// Login failure reasons recorded on user.login_failed events.
const (
	ReasonUnknownUser = "unknown_user"
	ReasonBadPassword = "bad_password"
)

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token     string
	Identity  Identity
	ExpiresAt time.Time
}

// Service bootstraps identities: account creation and credential exchange
// for an access token.
type Service struct {
	users  UserRepository
	hasher *Hasher
	tokens *TokenService
	sink   events.Sink
}

// NewService creates an auth service. A nil sink discards events.
func NewService(users UserRepository, hasher *Hasher, tokens *TokenService, sink events.Sink) *Service {
	if hasher == nil {
		hasher = &Hasher{}
	}
	return &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		sink:   events.OrNop(sink),
	}
}

// Signup registers a new account.
func (s *Service) Signup(ctx context.Context, username, password string) (*User, error) {
	if username == "" || password == "" {
		return nil, apperr.New(apperr.Validation, MsgMissingCredentials)
	}
	if !IsValidUsername(username) {
		return nil, apperr.New(apperr.Validation, MsgInvalidUsername)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, apperr.New(apperr.Conflict, MsgUsernameExists)
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, apperr.Internalf(err, "looking up user %q", username)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, ErrPasswordTooLong) {
			return nil, apperr.Wrap(apperr.Validation, MsgPasswordTooLong, err)
		}
		return nil, apperr.Internalf(err, "hashing password")
	}

	user := &User{Username: username, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		// A concurrent signup can win the race between lookup and insert.
		if errors.Is(err, ErrUsernameExists) {
			return nil, apperr.Wrap(apperr.Conflict, MsgUsernameExists, err)
		}
		return nil, apperr.Internalf(err, "creating user %q", username)
	}

	s.sink.Publish(ctx, events.Event{
		Type:     events.UserSignedUp,
		UserID:   user.ID,
		Username: user.Username,
	})
	return user, nil
}

// Login checks credentials and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, apperr.New(apperr.Validation, MsgMissingCredentials)
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.loginFailed(ctx, 0, username, ReasonUnknownUser)
			return nil, apperr.Wrap(apperr.NotFound, MsgUsernameNotFound, err)
		}
		return nil, apperr.Internalf(err, "looking up user %q", username)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(ctx, user.ID, username, ReasonBadPassword)
		return nil, apperr.New(apperr.Unauthorized, MsgIncorrectPassword)
	}

	id := user.Identity()
	token, expiresAt, err := s.tokens.Issue(id)
	if err != nil {
		return nil, apperr.Internalf(err, "issuing token for user %d", user.ID)
	}

	s.sink.Publish(ctx, events.Event{
		Type:     events.UserLoggedIn,
		UserID:   id.UserID,
		Username: id.Username,
	})
	return &LoginResult{
		Token:     token,
		Identity:  id,
		ExpiresAt: expiresAt,
	}, nil
}

// CountUsers returns the number of registered accounts.
func (s *Service) CountUsers(ctx context.Context) (int, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return 0, apperr.Internalf(err, "counting users")
	}
	return n, nil
}

func (s *Service) loginFailed(ctx context.Context, userID int64, username, reason string) {
	s.sink.Publish(ctx, events.Event{
		Type:     events.UserLoginFailed,
		UserID:   userID,
		Username: username,
		Reason:   reason,
	})
}
