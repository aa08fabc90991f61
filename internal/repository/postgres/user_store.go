package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserStore implements domain.UserStore over a single logical collection of
// JSONB user documents. The etag lives in its own column so that Replace can
// enforce the compare-and-swap server-side; the document never carries a
// stale etag because reads always overwrite it from the column.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new UserStore
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Create stores a new user document and returns its assigned id.
func (s *UserStore) Create(ctx context.Context, user *domain.User) (string, error) {
	user.ID = uuid.NewString()
	user.ETag = uuid.NewString()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	doc, err := marshalDocument(user)
	if err != nil {
		return "", err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO travel_users (id, etag, document) VALUES ($1, $2, $3)`,
		user.ID, user.ETag, doc)
	if err != nil {
		return "", fmt.Errorf("creating user document: %w", err)
	}
	return user.ID, nil
}

// Get retrieves the user document with the given id.
func (s *UserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, etag, document FROM travel_users WHERE id = $1`, id)

	user, err := scanDocument(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetWhere returns every document matching the predicate. The predicate is
// arbitrary Go code and cannot be pushed into SQL, so the collection is
// scanned; it holds one small document per registered user.
func (s *UserStore) GetWhere(ctx context.Context, match func(*domain.User) bool) ([]*domain.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, etag, document FROM travel_users`)
	if err != nil {
		return nil, fmt.Errorf("querying user documents: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		if match(user) {
			users = append(users, user)
		}
	}
	return users, rows.Err()
}

// Replace writes the document conditionally on the supplied etag. A nil
// result with a nil error means the stored etag no longer matched and the
// write was rejected; the stored document is untouched.
func (s *UserStore) Replace(ctx context.Context, user *domain.User, etag string) (*domain.User, error) {
	newETag := uuid.NewString()

	updated := *user
	updated.ETag = newETag

	doc, err := marshalDocument(&updated)
	if err != nil {
		return nil, err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE travel_users SET etag = $1, document = $2, updated_at = now() WHERE id = $3 AND etag = $4`,
		newETag, doc, user.ID, etag)
	if err != nil {
		return nil, fmt.Errorf("replacing user document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, nil
	}
	return &updated, nil
}

// Delete removes the document with the given id, reporting whether it existed.
func (s *UserStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM travel_users WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting user document: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Count returns the number of documents in the collection.
func (s *UserStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM travel_users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting user documents: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.User, error) {
	var (
		id, etag string
		doc      []byte
	)
	if err := row.Scan(&id, &etag, &doc); err != nil {
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(doc, &user); err != nil {
		return nil, fmt.Errorf("unmarshaling user document %s: %w", id, err)
	}

	// The columns are authoritative for identity and revision.
	user.ID = id
	user.ETag = etag
	return &user, nil
}

func marshalDocument(user *domain.User) ([]byte, error) {
	doc, err := json.Marshal(user)
	if err != nil {
		return nil, fmt.Errorf("marshaling user document: %w", err)
	}
	return doc, nil
}
