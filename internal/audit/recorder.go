package audit

import (
	"context"
	"strconv"

	"github.com/nerrad567/spaces-core/internal/events"
)

// Logger is the subset of logging.Logger used by Recorder.
type Logger interface {
	Error(msg string, args ...any)
}

// Recorder is an events.Sink that persists every domain event as an audit
// entry. Writes are synchronous; wrap it in events.Async to keep them off the
// request path.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates an audit sink writing to repo.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Publish implements events.Sink.
func (r *Recorder) Publish(ctx context.Context, ev events.Event) {
	entry := FromEvent(ev)
	if err := r.repo.Create(ctx, entry); err != nil && r.logger != nil {
		r.logger.Error("audit log write failed",
			"action", entry.Action,
			"entity_type", entry.EntityType,
			"error", err,
		)
	}
}

// FromEvent converts a domain event into an audit entry.
func FromEvent(ev events.Event) *AuditLog {
	log := &AuditLog{
		Action:    string(ev.Type),
		UserID:    ev.UserID,
		Source:    "api",
		CreatedAt: ev.Timestamp,
		Details:   map[string]any{},
	}

	if ev.Type.IsSpaceEvent() {
		log.EntityType = "space"
		log.EntityID = strconv.FormatInt(ev.SpaceID, 10)
		log.Details["space_name"] = ev.SpaceName
	} else {
		log.EntityType = "user"
		if ev.UserID > 0 {
			log.EntityID = strconv.FormatInt(ev.UserID, 10)
		}
	}
	if ev.Username != "" {
		log.Details["username"] = ev.Username
	}
	if ev.Reason != "" {
		log.Details["reason"] = ev.Reason
	}
	if len(log.Details) == 0 {
		log.Details = nil
	}
	return log
}
