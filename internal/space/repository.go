package space

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/spaces-core/internal/infrastructure/database"
)

// Repository defines the persistence operations for spaces and memberships.
type Repository interface {
	Create(ctx context.Context, s *Space) error
	GetByName(ctx context.Context, name string) (*Space, error)
	SearchByName(ctx context.Context, query string) ([]Space, error)
	ExistsLike(ctx context.Context, query string) (bool, error)
	ListForUser(ctx context.Context, userID int64) ([]Space, error)
	Count(ctx context.Context) (int, error)

	AddMember(ctx context.Context, userID, spaceID int64) (bool, error)
	IsMember(ctx context.Context, userID, spaceID int64) (bool, error)
	RemoveMember(ctx context.Context, userID, spaceID int64) (bool, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed space repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const spaceColumns = "s.id, s.name, s.owner_id, s.password_hash, s.description, s.created_at"

// Create inserts a space and sets its generated ID. A taken name yields
// ErrSpaceExists.
func (r *SQLiteRepository) Create(ctx context.Context, s *Space) error {
	now := time.Now().UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO spaces (name, owner_id, password_hash, description, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.Name, s.OwnerID, s.PasswordHash, s.Description, now.Format(time.RFC3339),
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrSpaceExists
		}
		return fmt.Errorf("inserting space %q: %w", s.Name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading space id: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	return nil
}

// GetByName returns the space with exactly this name.
func (r *SQLiteRepository) GetByName(ctx context.Context, name string) (*Space, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+spaceColumns+" FROM spaces s WHERE s.name = ?", name)

	s, err := scanSpace(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSpaceNotFound
		}
		return nil, fmt.Errorf("getting space %q: %w", name, err)
	}
	return s, nil
}

// SearchByName returns spaces whose name contains query, ordered by name.
// Matching is case-insensitive for ASCII. An empty query matches every space.
func (r *SQLiteRepository) SearchByName(ctx context.Context, query string) ([]Space, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+spaceColumns+` FROM spaces s
		 WHERE s.name LIKE ? ESCAPE '\' ORDER BY s.name`,
		containsPattern(query))
	if err != nil {
		return nil, fmt.Errorf("searching spaces: %w", err)
	}
	return collectSpaces(rows)
}

// ExistsLike reports whether any space name contains query.
func (r *SQLiteRepository) ExistsLike(ctx context.Context, query string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM spaces WHERE name LIKE ? ESCAPE '\')`,
		containsPattern(query),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking space name: %w", err)
	}
	return exists, nil
}

// ListForUser returns the spaces userID has joined, oldest membership first.
// A user with no memberships gets an empty, non-nil slice.
func (r *SQLiteRepository) ListForUser(ctx context.Context, userID int64) ([]Space, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+spaceColumns+` FROM spaces s
		 JOIN user_spaces us ON us.space_id = s.id
		 WHERE us.user_id = ?
		 ORDER BY us.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing spaces for user %d: %w", userID, err)
	}
	return collectSpaces(rows)
}

// Count returns the total number of spaces.
func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM spaces").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting spaces: %w", err)
	}
	return n, nil
}

// AddMember records that userID joined spaceID. It reports false, with no
// error, when the membership already existed.
func (r *SQLiteRepository) AddMember(ctx context.Context, userID, spaceID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_spaces (user_id, space_id, joined_at) VALUES (?, ?, ?)",
		userID, spaceID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("adding user %d to space %d: %w", userID, spaceID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}

// IsMember reports whether userID has joined spaceID.
func (r *SQLiteRepository) IsMember(ctx context.Context, userID, spaceID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM user_spaces WHERE user_id = ? AND space_id = ?)",
		userID, spaceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return exists, nil
}

// RemoveMember deletes the membership. It reports false when there was none.
func (r *SQLiteRepository) RemoveMember(ctx context.Context, userID, spaceID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM user_spaces WHERE user_id = ? AND space_id = ?", userID, spaceID)
	if err != nil {
		return false, fmt.Errorf("removing user %d from space %d: %w", userID, spaceID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSpace(row scanner) (*Space, error) {
	var s Space
	var createdAt string
	if err := row.Scan(&s.ID, &s.Name, &s.OwnerID, &s.PasswordHash, &s.Description, &createdAt); err != nil {
		return nil, err
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	return &s, nil
}

func collectSpaces(rows *sql.Rows) ([]Space, error) {
	defer rows.Close()

	spaces := []Space{}
	for rows.Next() {
		s, err := scanSpace(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning space: %w", err)
		}
		spaces = append(spaces, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating spaces: %w", err)
	}
	return spaces, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching names that contain q
// literally.
func containsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
