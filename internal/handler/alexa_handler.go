package handler

import (
	"net/http"
	"net/url"

	"github.com/gtechsltn/alexa-london-travel-site/internal/middleware"
	"github.com/gtechsltn/alexa-london-travel-site/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// AlexaHandler serves the skill account-linking endpoint.
type AlexaHandler struct {
	alexa *service.AlexaService
}

// NewAlexaHandler creates a new AlexaHandler
func NewAlexaHandler(alexa *service.AlexaService) *AlexaHandler {
	return &AlexaHandler{alexa: alexa}
}

// Authorize handles GET /alexa/authorize. The signed-in user approves the
// skill link; a fresh access token is issued (replacing any previous one)
// and returned to the skill with an implicit-grant redirect.
func (h *AlexaHandler) Authorize(c echo.Context) error {
	user := middleware.CurrentUser(c)

	clientID := c.QueryParam("client_id")
	redirectURI := c.QueryParam("redirect_uri")
	state := c.QueryParam("state")

	if !h.alexa.IsAuthorizedClient(clientID, redirectURI) {
		log.Warn().Str("client_id", clientID).Str("user_id", user.ID).Msg("Rejected Alexa authorization request")
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid client id or redirect URI")
	}

	token, err := h.alexa.Authorize(c.Request().Context(), user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue Alexa access token")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to link account")
	}

	fragment := url.Values{
		"state":        []string{state},
		"access_token": []string{token},
		"token_type":   []string{"Bearer"},
	}
	return c.Redirect(http.StatusFound, redirectURI+"#"+fragment.Encode())
}
