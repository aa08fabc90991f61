package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gtechsltn/alexa-london-travel-site/internal/auth"
	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type contextKey string

// CurrentUserKey is the context key for the signed-in user's document
const CurrentUserKey contextKey = "current_user"

// SessionAuthMiddleware resolves the session cookie to a user document and
// makes it available to handlers.
type SessionAuthMiddleware struct {
	sessions auth.SessionManager
	store    domain.UserStore
}

// NewSessionAuthMiddleware creates a new SessionAuthMiddleware
func NewSessionAuthMiddleware(sessions auth.SessionManager, store domain.UserStore) *SessionAuthMiddleware {
	return &SessionAuthMiddleware{sessions: sessions, store: store}
}

// Authenticate returns an Echo middleware that requires a signed-in user.
// A missing or invalid session, or a session for a since-deleted account,
// yields 401.
func (m *SessionAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := m.sessions.CurrentUserID(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
			}

			user, err := m.store.Get(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, domain.ErrUserNotFound) {
					m.sessions.SignOut(c)
					return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
				}
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to load user for session")
				return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load account")
			}

			ctx := context.WithValue(c.Request().Context(), CurrentUserKey, user)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// CurrentUser returns the signed-in user's document from the context.
func CurrentUser(c echo.Context) *domain.User {
	if user, ok := c.Request().Context().Value(CurrentUserKey).(*domain.User); ok {
		return user
	}
	return nil
}
