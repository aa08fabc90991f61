package auth

import (
	"net/http"
	"time"

	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/labstack/echo/v4"
)

// SessionManager is the session capability the handlers depend on. The
// implementation owns cookie and token lifecycle; no handler touches
// session state directly.
type SessionManager interface {
	SignIn(c echo.Context, user *domain.User) error
	SignOut(c echo.Context)
	CurrentUserID(c echo.Context) (string, bool)
}

// CookieSessionManager implements SessionManager with a signed token in an
// HttpOnly cookie.
type CookieSessionManager struct {
	tokens     *TokenService
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewCookieSessionManager creates a new CookieSessionManager
func NewCookieSessionManager(tokens *TokenService, cookieName string, ttl time.Duration, secure bool) *CookieSessionManager {
	return &CookieSessionManager{
		tokens:     tokens,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// SignIn issues a session cookie for the user.
func (m *CookieSessionManager) SignIn(c echo.Context, user *domain.User) error {
	token, err := m.tokens.Generate(user.ID, m.ttl)
	if err != nil {
		return err
	}

	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// SignOut clears the session cookie.
func (m *CookieSessionManager) SignOut(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CurrentUserID returns the user id from a valid session cookie, if any.
func (m *CookieSessionManager) CurrentUserID(c echo.Context) (string, bool) {
	cookie, err := c.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	userID, err := m.tokens.Validate(cookie.Value)
	if err != nil {
		return "", false
	}
	return userID, true
}
