package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nerrad567/spaces-core/internal/events"
	"github.com/nerrad567/spaces-core/internal/infrastructure/database"
	_ "github.com/nerrad567/spaces-core/migrations" // registers the schema
)

// testSecret is long enough to pass config validation.
const testSecret = "test-secret-that-is-at-least-32-characters"

// testDB opens a temporary SQLite database with the full schema applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup

	if err := db.Migrate(t.Context()); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

// fastHasher keeps bcrypt at its minimum cost so tests stay quick.
func fastHasher() *Hasher {
	return &Hasher{Algorithm: AlgorithmBcrypt, Cost: 4}
}

// seedTestUser inserts a user with the given password and returns it.
func seedTestUser(t *testing.T, db *sql.DB, username, password string) *User {
	t.Helper()

	hash, err := fastHasher().Hash(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	user := &User{Username: username, PasswordHash: hash}
	if err := NewUserRepository(db).Create(t.Context(), user); err != nil {
		t.Fatalf("creating test user %s: %v", username, err)
	}
	return user
}

// recordingSink captures published events.
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
