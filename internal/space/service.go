package space

import (
	"context"
	"errors"

	"github.com/nerrad567/spaces-core/internal/apperr"
	"github.com/nerrad567/spaces-core/internal/auth"
	"github.com/nerrad567/spaces-core/internal/events"
)

// User-facing messages returned with domain errors.
const (
	MsgMissingName       = "Missing spaceName parameter"
	MsgMissingPassword   = "Missing spacePassword parameter"
	MsgSpaceExists       = "Space already exists"
	MsgSpaceNotFound     = "Space not found"
	MsgIncorrectPassword = "Incorrect password"
	MsgAlreadyJoined     = "Already joined this room"
	MsgNotMember         = "Not a member of this room"
	MsgPasswordTooLong   = "Password is too long"
)

// PasswordHasher hashes and verifies space passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, encoded string) bool
}

// Service applies the membership rules for spaces.
type Service struct {
	repo   Repository
	hasher PasswordHasher
	sink   events.Sink
}

// NewService creates a space service. A nil sink discards events.
func NewService(repo Repository, hasher PasswordHasher, sink events.Sink) *Service {
	return &Service{repo: repo, hasher: hasher, sink: events.OrNop(sink)}
}

// Create makes a new space owned by id, protected by password.
func (s *Service) Create(ctx context.Context, id auth.Identity, name, password, description string) (*Space, error) {
	if name == "" {
		return nil, apperr.New(apperr.Validation, MsgMissingName)
	}
	if password == "" {
		return nil, apperr.New(apperr.Validation, MsgMissingPassword)
	}

	if _, err := s.repo.GetByName(ctx, name); err == nil {
		return nil, apperr.New(apperr.Conflict, MsgSpaceExists)
	} else if !errors.Is(err, ErrSpaceNotFound) {
		return nil, apperr.Internalf(err, "looking up space %q", name)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperr.Wrap(apperr.Validation, MsgPasswordTooLong, err)
		}
		return nil, apperr.Internalf(err, "hashing space password")
	}

	sp := &Space{
		Name:         name,
		OwnerID:      id.UserID,
		PasswordHash: hash,
		Description:  description,
	}
	if err := s.repo.Create(ctx, sp); err != nil {
		// The unique index catches a create that raced past the lookup.
		if errors.Is(err, ErrSpaceExists) {
			return nil, apperr.Wrap(apperr.Conflict, MsgSpaceExists, err)
		}
		return nil, apperr.Internalf(err, "creating space %q", name)
	}

	s.publish(ctx, events.SpaceCreated, id, sp)
	return sp, nil
}

// Join adds id to the named space after checking password.
func (s *Service) Join(ctx context.Context, id auth.Identity, name, password string) (*Space, error) {
	sp, err := s.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(password, sp.PasswordHash) {
		return nil, apperr.New(apperr.Unauthorized, MsgIncorrectPassword)
	}

	member, err := s.repo.IsMember(ctx, id.UserID, sp.ID)
	if err != nil {
		return nil, apperr.Internalf(err, "checking membership of space %d", sp.ID)
	}
	if member {
		return nil, apperr.New(apperr.Conflict, MsgAlreadyJoined)
	}

	// A concurrent join of the same pair is ignored by the insert and
	// treated as success.
	added, err := s.repo.AddMember(ctx, id.UserID, sp.ID)
	if err != nil {
		return nil, apperr.Internalf(err, "joining space %d", sp.ID)
	}
	if added {
		s.publish(ctx, events.MemberJoined, id, sp)
	}
	return sp, nil
}

// Leave removes id from the named space.
func (s *Service) Leave(ctx context.Context, id auth.Identity, name string) (*Space, error) {
	sp, err := s.lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	removed, err := s.repo.RemoveMember(ctx, id.UserID, sp.ID)
	if err != nil {
		return nil, apperr.Internalf(err, "leaving space %d", sp.ID)
	}
	if !removed {
		return nil, apperr.New(apperr.NotFound, MsgNotMember)
	}

	s.publish(ctx, events.MemberLeft, id, sp)
	return sp, nil
}

// ListForUser returns the spaces id has joined. No memberships is not an
// error.
func (s *Service) ListForUser(ctx context.Context, id auth.Identity) ([]Space, error) {
	spaces, err := s.repo.ListForUser(ctx, id.UserID)
	if err != nil {
		return nil, apperr.Internalf(err, "listing spaces for user %d", id.UserID)
	}
	return spaces, nil
}

// Search returns spaces whose name contains query. Zero matches is reported
// as NotFound rather than an empty list.
func (s *Service) Search(ctx context.Context, query string) ([]Space, error) {
	spaces, err := s.repo.SearchByName(ctx, query)
	if err != nil {
		return nil, apperr.Internalf(err, "searching spaces for %q", query)
	}
	if len(spaces) == 0 {
		return nil, apperr.New(apperr.NotFound, MsgSpaceNotFound)
	}
	return spaces, nil
}

// CheckName reports whether name is free to use. It returns Conflict when
// any existing space name contains name.
func (s *Service) CheckName(ctx context.Context, name string) error {
	if name == "" {
		return apperr.New(apperr.Validation, MsgMissingName)
	}
	taken, err := s.repo.ExistsLike(ctx, name)
	if err != nil {
		return apperr.Internalf(err, "checking space name %q", name)
	}
	if taken {
		return apperr.New(apperr.Conflict, MsgSpaceExists)
	}
	return nil
}

// Count returns the number of spaces.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, apperr.Internalf(err, "counting spaces")
	}
	return n, nil
}

func (s *Service) lookup(ctx context.Context, name string) (*Space, error) {
	if name == "" {
		return nil, apperr.New(apperr.Validation, MsgMissingName)
	}
	sp, err := s.repo.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrSpaceNotFound) {
			return nil, apperr.Wrap(apperr.NotFound, MsgSpaceNotFound, err)
		}
		return nil, apperr.Internalf(err, "looking up space %q", name)
	}
	return sp, nil
}

func (s *Service) publish(ctx context.Context, t events.Type, id auth.Identity, sp *Space) {
	s.sink.Publish(ctx, events.Event{
		Type:      t,
		UserID:    id.UserID,
		Username:  id.Username,
		SpaceID:   sp.ID,
		SpaceName: sp.Name,
	})
}
