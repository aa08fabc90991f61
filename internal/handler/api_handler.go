package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/gtechsltn/alexa-london-travel-site/internal/middleware"
	"github.com/gtechsltn/alexa-london-travel-site/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Authorization failure details fixed by the API contract.
const (
	detailMalformedHeader   = "The provided authorization value is not valid."
	detailUnsupportedScheme = "Only the bearer authorization scheme is supported."
)

// ApiHandler serves the skill-facing preferences API and the admin count
// endpoint.
type ApiHandler struct {
	accounts *service.AccountService
}

// NewApiHandler creates a new ApiHandler
func NewApiHandler(accounts *service.AccountService) *ApiHandler {
	return &ApiHandler{accounts: accounts}
}

// PreferencesResponse is the body returned for an authorized token.
type PreferencesResponse struct {
	FavoriteLines []string `json:"favoriteLines"`
	UserID        string   `json:"userId"`
}

// CountResponse is the body of the admin count endpoint.
type CountResponse struct {
	Count int64 `json:"count"`
}

// GetPreferences handles GET /api/preferences. The caller authenticates
// with "Authorization: Bearer <token>", where the token is the Alexa access
// token stored on the user record. The response body never distinguishes a
// bad token format from an unrecognized token beyond the documented detail
// strings.
func (h *ApiHandler) GetPreferences(c echo.Context) error {
	header := c.Request().Header.Get(echo.HeaderAuthorization)

	if strings.TrimSpace(header) == "" {
		log.Info().Str("request_id", requestID(c)).Msg("API access denied: no authorization provided")
		return unauthorizedResponse(c, "No access token specified.")
	}

	token, errDetail := parseAuthorization(header)

	var user *domain.User
	if token != "" {
		found, err := h.accounts.FindByAccessToken(c.Request().Context(), token)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			log.Error().Err(err).Str("request_id", requestID(c)).Msg("Access token lookup failed")
			return internalErrorResponse(c)
		}
		user = found
	}

	// Re-check the stored token ordinally in case the store matched it
	// case-insensitively.
	if user == nil || user.AlexaToken != token {
		log.Info().Str("request_id", requestID(c)).Msg("API access denied: unknown access token")
		if errDetail != "" {
			return unauthorizedResponse(c, "Unauthorized.", errDetail)
		}
		return unauthorizedResponse(c, "Unauthorized.")
	}

	log.Info().Str("request_id", requestID(c)).Str("user_id", user.ID).Msg("API access authorized")

	lines := user.FavoriteLines
	if lines == nil {
		lines = []string{}
	}

	return c.JSON(http.StatusOK, PreferencesResponse{
		FavoriteLines: lines,
		UserID:        user.ID,
	})
}

// GetUserCount handles GET /api/_count (admin only). The count is always
// fresh; the cached value is for public display elsewhere.
func (h *ApiHandler) GetUserCount(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil || !user.IsAdmin() {
		return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
	}

	count, err := h.accounts.Count(c.Request().Context(), false)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID(c)).Msg("Failed to count users")
		return internalErrorResponse(c)
	}

	return c.JSON(http.StatusOK, CountResponse{Count: count})
}

// parseAuthorization splits an Authorization header into its bearer token.
// It returns the verbatim parameter (possibly empty) when the header parses
// as a bearer credential, or an empty token and the failure detail when it
// does not.
func parseAuthorization(header string) (token string, errDetail string) {
	scheme, param, _ := strings.Cut(strings.TrimSpace(header), " ")

	if !isHTTPToken(scheme) {
		return "", detailMalformedHeader
	}
	if !strings.EqualFold(scheme, "bearer") {
		return "", detailUnsupportedScheme
	}
	return strings.TrimSpace(param), ""
}

// isHTTPToken reports whether s is a valid RFC 7230 token (the grammar an
// authorization scheme must satisfy).
func isHTTPToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("!#$%&'*+-.^_`|~", r):
		default:
			return false
		}
	}
	return true
}
