package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gtechsltn/alexa-london-travel-site/internal/auth"
	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/gtechsltn/alexa-london-travel-site/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const stateCookieName = "travel_oauth_state"

// AuthHandler drives sign-in and account-linking through the external
// providers. The OAuth handshake itself belongs to golang.org/x/oauth2;
// this handler only wires state, callbacks and the session.
type AuthHandler struct {
	providers *auth.Registry
	accounts  *service.AccountService
	prefs     *service.PreferencesService
	sessions  auth.SessionManager
	store     domain.UserStore
	secure    bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(providers *auth.Registry, accounts *service.AccountService, prefs *service.PreferencesService, sessions auth.SessionManager, store domain.UserStore, secure bool) *AuthHandler {
	return &AuthHandler{
		providers: providers,
		accounts:  accounts,
		prefs:     prefs,
		sessions:  sessions,
		store:     store,
		secure:    secure,
	}
}

// ProvidersResponse lists the sign-in providers offered to the user.
type ProvidersResponse struct {
	Providers []ProviderResponse `json:"providers"`
}

// ProviderResponse describes one enabled provider.
type ProviderResponse struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// ListProviders handles GET /account/sign-in
func (h *AuthHandler) ListProviders(c echo.Context) error {
	enabled := h.providers.Enabled()
	out := make([]ProviderResponse, 0, len(enabled))
	for _, p := range enabled {
		out = append(out, ProviderResponse{Name: p.Name, DisplayName: p.DisplayName})
	}
	return c.JSON(http.StatusOK, ProvidersResponse{Providers: out})
}

// SignIn handles GET /account/sign-in/:provider. With ?link=true and an
// active session the callback links the provider to the current account
// instead of signing in.
func (h *AuthHandler) SignIn(c echo.Context) error {
	provider, ok := h.providers.Get(c.Param("provider"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown sign-in provider")
	}

	state := uuid.NewString()
	if c.QueryParam("link") == "true" {
		if _, signedIn := h.sessions.CurrentUserID(c); !signedIn {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}
		state += "|link"
	}

	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/account",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return c.Redirect(http.StatusFound, provider.AuthURL(state))
}

// Callback handles GET /account/callback/:provider
func (h *AuthHandler) Callback(c echo.Context) error {
	provider, ok := h.providers.Get(c.Param("provider"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "Unknown sign-in provider")
	}

	state := c.QueryParam("state")
	cookie, err := c.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != state {
		log.Warn().Str("provider", provider.Name).Msg("Sign-in state mismatch")
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid sign-in state")
	}
	h.clearStateCookie(c)

	// The user denied the authorization request.
	if c.QueryParam("error") != "" || c.QueryParam("code") == "" {
		return c.Redirect(http.StatusFound, "/")
	}

	identity, err := provider.Exchange(c.Request().Context(), c.QueryParam("code"))
	if err != nil {
		log.Error().Err(err).Str("provider", provider.Name).Msg("Sign-in exchange failed")
		return echo.NewHTTPError(http.StatusBadGateway, "Sign-in failed")
	}

	login := domain.ExternalLogin{
		LoginProvider:       identity.Provider,
		ProviderKey:         identity.ProviderKey,
		ProviderDisplayName: provider.DisplayName,
	}

	if strings.HasSuffix(state, "|link") {
		return h.linkAccount(c, login, identity)
	}

	user, err := h.accounts.CreateOrGetByLogin(c.Request().Context(), login, identity.Email)
	if err != nil {
		log.Error().Err(err).Str("provider", provider.Name).Msg("Failed to resolve user at sign-in")
		return echo.NewHTTPError(http.StatusInternalServerError, "Sign-in failed")
	}

	if err := h.prefs.SyncRoleClaims(c.Request().Context(), user, claimsFromIdentity(identity)); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update user claims at sign-in")
	}

	if err := h.sessions.SignIn(c, user); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to start session")
		return echo.NewHTTPError(http.StatusInternalServerError, "Sign-in failed")
	}

	log.Info().Str("user_id", user.ID).Str("provider", provider.Name).Msg("User signed in")
	return c.Redirect(http.StatusFound, "/")
}

// SignOut handles POST /account/sign-out
func (h *AuthHandler) SignOut(c echo.Context) error {
	h.sessions.SignOut(c)
	return c.NoContent(http.StatusNoContent)
}

// linkAccount attaches the provider login to the signed-in user. A claims
// sync failure is reported in the log but does not undo the committed link.
func (h *AuthHandler) linkAccount(c echo.Context, login domain.ExternalLogin, identity *auth.Identity) error {
	userID, ok := h.sessions.CurrentUserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
	}

	user, err := h.store.Get(c.Request().Context(), userID)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to load user to link account")
		return echo.NewHTTPError(http.StatusInternalServerError, "Account linking failed")
	}

	if err := h.prefs.LinkLogin(c.Request().Context(), user, login); err != nil {
		if errors.Is(err, domain.ErrLoginAlreadyExists) {
			return c.Redirect(http.StatusFound, "/manage")
		}
		log.Error().Err(err).Str("user_id", user.ID).Str("provider", login.LoginProvider).Msg("Failed to add external login")
		return echo.NewHTTPError(http.StatusInternalServerError, "Account linking failed")
	}

	if err := h.prefs.SyncRoleClaims(c.Request().Context(), user, claimsFromIdentity(identity)); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Str("provider", login.LoginProvider).Msg("Failed to update user claims after linking")
	}

	return c.Redirect(http.StatusFound, "/manage")
}

func (h *AuthHandler) clearStateCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/account",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// claimsFromIdentity maps the profile shared by the provider to role claims.
func claimsFromIdentity(identity *auth.Identity) []domain.RoleClaim {
	var claims []domain.RoleClaim
	if identity.Email != "" {
		claims = append(claims, domain.RoleClaim{
			ClaimType: "email",
			Issuer:    identity.Provider,
			Value:     identity.Email,
			ValueType: "string",
		})
	}
	if identity.DisplayName != "" {
		claims = append(claims, domain.RoleClaim{
			ClaimType: "name",
			Issuer:    identity.Provider,
			Value:     identity.DisplayName,
			ValueType: "string",
		})
	}
	return claims
}
