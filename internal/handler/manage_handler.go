package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/gtechsltn/alexa-london-travel-site/internal/auth"
	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/gtechsltn/alexa-london-travel-site/internal/middleware"
	"github.com/gtechsltn/alexa-london-travel-site/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ManageHandler serves the signed-in account-management actions. Every
// etag-guarded action takes the etag the caller read with the page, so a
// concurrent change surfaces as a conflict instead of a lost update.
type ManageHandler struct {
	prefs     *service.PreferencesService
	providers *auth.Registry
	sessions  auth.SessionManager
}

// NewManageHandler creates a new ManageHandler
func NewManageHandler(prefs *service.PreferencesService, providers *auth.Registry, sessions auth.SessionManager) *ManageHandler {
	return &ManageHandler{prefs: prefs, providers: providers, sessions: sessions}
}

// LoginResponse describes one linked sign-in method.
type LoginResponse struct {
	LoginProvider       string `json:"loginProvider"`
	ProviderKey         string `json:"providerKey"`
	ProviderDisplayName string `json:"providerDisplayName"`
}

// ManageResponse is the account overview used by the manage page.
type ManageResponse struct {
	ETag            string          `json:"etag"`
	IsLinkedToAlexa bool            `json:"isLinkedToAlexa"`
	FavoriteLines   []string        `json:"favoriteLines"`
	CurrentLogins   []LoginResponse `json:"currentLogins"`
	OtherProviders  []string        `json:"otherProviders"`
}

// UpdateLinePreferencesRequest is the body of update-line-preferences.
type UpdateLinePreferencesRequest struct {
	ETag          string   `json:"etag"`
	FavoriteLines []string `json:"favoriteLines"`
}

// UpdateLinePreferencesResponse reports the update outcome. Updated is null
// when the submitted lines matched the stored ones and no update was
// attempted.
type UpdateLinePreferencesResponse struct {
	Updated *bool  `json:"updated"`
	ETag    string `json:"etag,omitempty"`
}

// RemoveAlexaLinkRequest is the body of remove-alexa-link.
type RemoveAlexaLinkRequest struct {
	ETag string `json:"etag"`
}

// RemoveAccountLinkRequest is the body of remove-account-link.
type RemoveAccountLinkRequest struct {
	LoginProvider string `json:"loginProvider"`
	ProviderKey   string `json:"providerKey"`
}

// GetAccount handles GET /manage
func (h *ManageHandler) GetAccount(c echo.Context) error {
	user := middleware.CurrentUser(c)

	logins := make([]LoginResponse, 0, len(user.Logins))
	for _, l := range user.Logins {
		display := l.ProviderDisplayName
		if strings.TrimSpace(display) == "" {
			display = l.LoginProvider
		}
		logins = append(logins, LoginResponse{
			LoginProvider:       l.LoginProvider,
			ProviderKey:         l.ProviderKey,
			ProviderDisplayName: display,
		})
	}
	sort.Slice(logins, func(i, j int) bool {
		a, b := logins[i], logins[j]
		if a.ProviderDisplayName != b.ProviderDisplayName {
			return a.ProviderDisplayName < b.ProviderDisplayName
		}
		if a.LoginProvider != b.LoginProvider {
			return a.LoginProvider < b.LoginProvider
		}
		return a.ProviderKey < b.ProviderKey
	})

	var others []string
	for _, p := range h.providers.Enabled() {
		linked := false
		for _, l := range user.Logins {
			if l.LoginProvider == p.Name {
				linked = true
				break
			}
		}
		if !linked {
			others = append(others, p.Name)
		}
	}

	lines := user.FavoriteLines
	if lines == nil {
		lines = []string{}
	}

	return c.JSON(http.StatusOK, ManageResponse{
		ETag:            user.ETag,
		IsLinkedToAlexa: user.AlexaToken != "",
		FavoriteLines:   lines,
		CurrentLogins:   logins,
		OtherProviders:  others,
	})
}

// UpdateLinePreferences handles POST /manage/update-line-preferences
func (h *ManageHandler) UpdateLinePreferences(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req UpdateLinePreferencesRequest
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	outcome, err := h.prefs.UpdateFavoriteLines(c.Request().Context(), user, req.FavoriteLines, req.ETag)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrETagRequired), errors.Is(err, domain.ErrInvalidLines):
			return c.NoContent(http.StatusBadRequest)
		default:
			log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to update line preferences")
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update line preferences")
		}
	}

	switch outcome {
	case service.UpdateConflict:
		updated := false
		return c.JSON(http.StatusConflict, UpdateLinePreferencesResponse{Updated: &updated})
	case service.UpdateNotAttempted:
		return c.JSON(http.StatusOK, UpdateLinePreferencesResponse{Updated: nil})
	default:
		updated := true
		return c.JSON(http.StatusOK, UpdateLinePreferencesResponse{Updated: &updated, ETag: user.ETag})
	}
}

// RemoveAlexaLink handles POST /manage/remove-alexa-link
func (h *ManageHandler) RemoveAlexaLink(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req RemoveAlexaLinkRequest
	if err := c.Bind(&req); err != nil {
		return c.NoContent(http.StatusBadRequest)
	}

	outcome, err := h.prefs.RemoveAlexaLink(c.Request().Context(), user, req.ETag)
	if err != nil {
		if errors.Is(err, domain.ErrETagRequired) {
			return c.NoContent(http.StatusBadRequest)
		}
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to remove Alexa link")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to remove Alexa link")
	}
	if outcome == service.UpdateConflict {
		return c.NoContent(http.StatusConflict)
	}
	return c.NoContent(http.StatusNoContent)
}

// RemoveAccountLink handles POST /manage/remove-account-link
func (h *ManageHandler) RemoveAccountLink(c echo.Context) error {
	user := middleware.CurrentUser(c)

	var req RemoveAccountLinkRequest
	if err := c.Bind(&req); err != nil ||
		strings.TrimSpace(req.LoginProvider) == "" ||
		strings.TrimSpace(req.ProviderKey) == "" {
		return c.NoContent(http.StatusBadRequest)
	}

	err := h.prefs.RemoveLogin(c.Request().Context(), user, req.LoginProvider, req.ProviderKey)
	if err != nil {
		if errors.Is(err, domain.ErrLoginNotFound) {
			return c.NoContent(http.StatusNotFound)
		}
		log.Error().Err(err).Str("user_id", user.ID).Str("provider", req.LoginProvider).Msg("Failed to remove external login")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to remove external login")
	}

	// Refresh the session so it reflects the changed login set.
	if err := h.sessions.SignIn(c, user); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to refresh session")
	}

	return c.NoContent(http.StatusNoContent)
}

// DeleteAccount handles POST /manage/delete-account
func (h *ManageHandler) DeleteAccount(c echo.Context) error {
	user := middleware.CurrentUser(c)

	if err := h.prefs.DeleteAccount(c.Request().Context(), user); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to delete account")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete account")
	}

	h.sessions.SignOut(c)
	return c.NoContent(http.StatusNoContent)
}
