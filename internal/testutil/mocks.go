package testutil

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/labstack/echo/v4"
)

// MockUserStore is an in-memory implementation of domain.UserStore with the
// same conditional-write behavior as the real store: Replace succeeds only
// against the current etag and assigns a fresh one per revision.
type MockUserStore struct {
	mu    sync.Mutex
	order []string
	users map[string]*domain.User

	// Optional error overrides
	GetWhereErr error
	CountErr    error
	ReplaceErr  error
}

// NewMockUserStore creates a new MockUserStore
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[string]*domain.User)}
}

// AddUser seeds a user, assigning an id and etag when absent (helper for tests).
func (m *MockUserStore) AddUser(user *domain.User) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.ETag == "" {
		user.ETag = uuid.NewString()
	}
	m.order = append(m.order, user.ID)
	m.users[user.ID] = copyUser(user)
	return user
}

// Create stores a new user document
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user.ID = uuid.NewString()
	user.ETag = uuid.NewString()
	m.order = append(m.order, user.ID)
	m.users[user.ID] = copyUser(user)
	return user.ID, nil
}

// Get retrieves a user document by id
func (m *MockUserStore) Get(ctx context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return copyUser(user), nil
}

// GetWhere returns the documents matching the predicate in insertion order
func (m *MockUserStore) GetWhere(ctx context.Context, match func(*domain.User) bool) ([]*domain.User, error) {
	if m.GetWhereErr != nil {
		return nil, m.GetWhereErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.User
	for _, id := range m.order {
		if user, ok := m.users[id]; ok && match(user) {
			out = append(out, copyUser(user))
		}
	}
	return out, nil
}

// Replace writes conditionally on the etag, returning nil on conflict
func (m *MockUserStore) Replace(ctx context.Context, user *domain.User, etag string) (*domain.User, error) {
	if m.ReplaceErr != nil {
		return nil, m.ReplaceErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[user.ID]
	if !ok || stored.ETag != etag {
		return nil, nil
	}

	updated := copyUser(user)
	updated.ETag = uuid.NewString()
	m.users[user.ID] = updated
	return copyUser(updated), nil
}

// Delete removes a user document
func (m *MockUserStore) Delete(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return false, nil
	}
	delete(m.users, id)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == id })
	return true, nil
}

// Count returns the number of stored documents
func (m *MockUserStore) Count(ctx context.Context) (int64, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.users)), nil
}

// Stored returns the stored revision of a user (helper for assertions).
func (m *MockUserStore) Stored(id string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	if user, ok := m.users[id]; ok {
		return copyUser(user)
	}
	return nil
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	c.FavoriteLines = slices.Clone(u.FavoriteLines)
	c.Logins = slices.Clone(u.Logins)
	c.RoleClaims = slices.Clone(u.RoleClaims)
	return &c
}

// MockLineService is a mock implementation of domain.LineService
type MockLineService struct {
	Lines []domain.LineInfo
	Err   error
	Calls int
}

// GetLines returns the configured lines or error
func (m *MockLineService) GetLines(ctx context.Context) ([]domain.LineInfo, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Lines, nil
}

// MockUserCountCache is a mock implementation of domain.UserCountCache
type MockUserCountCache struct {
	Count    int64
	Has      bool
	SetCalls []int64
}

// GetUserCount returns the configured cached value
func (m *MockUserCountCache) GetUserCount(ctx context.Context) (int64, bool) {
	return m.Count, m.Has
}

// SetUserCount records the cached value
func (m *MockUserCountCache) SetUserCount(ctx context.Context, count int64) {
	m.Count = count
	m.Has = true
	m.SetCalls = append(m.SetCalls, count)
}

// MockSessionManager is a mock implementation of auth.SessionManager
type MockSessionManager struct {
	UserID       string
	SignedIn     bool
	SignInCalls  int
	SignOutCalls int
}

// SignIn records the sign-in
func (m *MockSessionManager) SignIn(c echo.Context, user *domain.User) error {
	m.UserID = user.ID
	m.SignedIn = true
	m.SignInCalls++
	return nil
}

// SignOut records the sign-out
func (m *MockSessionManager) SignOut(c echo.Context) {
	m.SignedIn = false
	m.SignOutCalls++
}

// CurrentUserID returns the configured session user
func (m *MockSessionManager) CurrentUserID(c echo.Context) (string, bool) {
	return m.UserID, m.SignedIn
}
