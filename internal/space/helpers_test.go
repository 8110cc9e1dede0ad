package space

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nerrad567/spaces-core/internal/auth"
	"github.com/nerrad567/spaces-core/internal/events"
	"github.com/nerrad567/spaces-core/internal/infrastructure/database"
	_ "github.com/nerrad567/spaces-core/migrations" // registers the schema
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "space-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	require.NoError(t, db.Migrate(t.Context()))
	return db.DB
}

// seedUser inserts a bare user row and returns its identity.
func seedUser(t *testing.T, db *sql.DB, username string) auth.Identity {
	t.Helper()

	res, err := db.ExecContext(t.Context(),
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, 'x', ?)",
		username, time.Now().UTC().Format(time.RFC3339))
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return auth.Identity{UserID: id, Username: username}
}

func fastHasher() *auth.Hasher {
	return &auth.Hasher{Algorithm: auth.AlgorithmBcrypt, Cost: 4}
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingSink) Publish(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
