package domain

import (
	"context"
	"time"
)

// User is the document stored for each account. A user is created at the
// first successful external sign-in and holds everything the site knows
// about them: linked provider logins, accumulated role claims, the Alexa
// access token (empty when the skill is not linked) and the favorite lines.
type User struct {
	ID            string          `json:"id"`
	ETag          string          `json:"_etag,omitempty"`
	Email         string          `json:"email"`
	CreatedAt     time.Time       `json:"createdAt"`
	AlexaToken    string          `json:"alexaToken,omitempty"`
	FavoriteLines []string        `json:"favoriteLines"`
	Logins        []ExternalLogin `json:"logins"`
	RoleClaims    []RoleClaim     `json:"roleClaims"`
}

// ExternalLogin is a linked third-party sign-in method. LoginProvider and
// ProviderKey together are unique within a user.
type ExternalLogin struct {
	LoginProvider       string `json:"loginProvider"`
	ProviderKey         string `json:"providerKey"`
	ProviderDisplayName string `json:"providerDisplayName,omitempty"`
}

// RoleClaim is a claim captured from an external identity. Claims are
// append-only: the sync path adds missing tuples and never removes any.
type RoleClaim struct {
	ClaimType string `json:"claimType"`
	Issuer    string `json:"issuer"`
	Value     string `json:"value"`
	ValueType string `json:"valueType"`
}

// HasLogin reports whether the user already holds the given provider login.
func (u *User) HasLogin(provider, key string) bool {
	for _, l := range u.Logins {
		if l.LoginProvider == provider && l.ProviderKey == key {
			return true
		}
	}
	return false
}

// HasClaim reports whether the user holds a claim matching all four fields.
func (u *User) HasClaim(claim RoleClaim) bool {
	for _, c := range u.RoleClaims {
		if c == claim {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the user carries the admin role claim.
func (u *User) IsAdmin() bool {
	for _, c := range u.RoleClaims {
		if c.ClaimType == "role" && c.Value == "admin" {
			return true
		}
	}
	return false
}

// UserStore is the document-store boundary for user records. Get returns
// ErrUserNotFound when no document exists. Replace performs a conditional
// write against the supplied etag and returns a nil user (with a nil error)
// when the stored etag no longer matches; it never silently overwrites.
type UserStore interface {
	Create(ctx context.Context, user *User) (string, error)
	Get(ctx context.Context, id string) (*User, error)
	GetWhere(ctx context.Context, match func(*User) bool) ([]*User, error)
	Replace(ctx context.Context, user *User, etag string) (*User, error)
	Delete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// UserCountCache caches the total user count. The cache owns the TTL; a
// miss is reported via the boolean, never as an error.
type UserCountCache interface {
	GetUserCount(ctx context.Context) (int64, bool)
	SetUserCount(ctx context.Context, count int64)
}
