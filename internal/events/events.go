// Package events carries domain events from the auth and space services to
// side channels: the MQTT bus, InfluxDB telemetry, WebSocket clients, the
// audit trail and Prometheus counters.
//
// Publication is best-effort. A Sink never returns an error to the caller and
// never fails the request that produced the event.
package events

import (
	"context"
	"strings"
	"time"
)

// Type identifies a domain event.
type Type string

// Event types.
const (
	UserSignedUp    Type = "user.signed_up"
	UserLoggedIn    Type = "user.logged_in"
	UserLoginFailed Type = "user.login_failed"
	SpaceCreated    Type = "space.created"
	MemberJoined    Type = "space.member_joined"
	MemberLeft      Type = "space.member_left"
)

// IsSpaceEvent reports whether t concerns a space rather than an account.
func (t Type) IsSpaceEvent() bool {
	return strings.HasPrefix(string(t), "space.")
}

// Event is a single domain occurrence.
type Event struct {
	Type      Type      `json:"type"`
	UserID    int64     `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"`
	SpaceID   int64     `json:"space_id,omitempty"`
	SpaceName string    `json:"space_name,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives events.
type Sink interface {
	Publish(ctx context.Context, ev Event)
}

// Logger is the subset of logging.Logger used by sinks.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Nop discards every event.
type Nop struct{}

// Publish implements Sink.
func (Nop) Publish(context.Context, Event) {}

// Fanout delivers each event to every sink in order. Nil entries are skipped.
type Fanout []Sink

// Publish implements Sink.
func (f Fanout) Publish(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	for _, s := range f {
		if s != nil {
			s.Publish(ctx, ev)
		}
	}
}

// OrNop returns s, or Nop when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return Nop{}
	}
	return s
}
