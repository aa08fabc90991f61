package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gtechsltn/alexa-london-travel-site/internal/config"
	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/gtechsltn/alexa-london-travel-site/internal/middleware"
	"github.com/gtechsltn/alexa-london-travel-site/internal/service"
	"github.com/gtechsltn/alexa-london-travel-site/internal/testutil"
	"github.com/labstack/echo/v4"
)

func newAuthorizeContext(t *testing.T, store *testutil.MockUserStore, user *domain.User, query url.Values) (echo.Context, *httptest.ResponseRecorder, *AlexaHandler) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/alexa/authorize?"+query.Encode(), nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.CurrentUserKey, user))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	alexa := service.NewAlexaService(store, config.AlexaConfig{
		ClientID:     "skill-client",
		RedirectURLs: []string{"https://example.com/link"},
	})
	return c, rec, NewAlexaHandler(alexa)
}

func TestAuthorize_IssuesTokenAndRedirects(t *testing.T) {
	store := testutil.NewMockUserStore()
	user := store.AddUser(&domain.User{})

	query := url.Values{
		"client_id":    []string{"skill-client"},
		"redirect_uri": []string{"https://example.com/link"},
		"state":        []string{"state-xyz"},
	}
	c, rec, h := newAuthorizeContext(t, store, user, query)

	if err := h.Authorize(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("Expected status 302, got %d", rec.Code)
	}

	location := rec.Header().Get(echo.HeaderLocation)
	base, fragmentRaw, found := strings.Cut(location, "#")
	if !found || base != "https://example.com/link" {
		t.Fatalf("Unexpected redirect location: %s", location)
	}

	fragment, err := url.ParseQuery(fragmentRaw)
	if err != nil {
		t.Fatalf("Failed to parse fragment: %v", err)
	}
	if fragment.Get("state") != "state-xyz" {
		t.Errorf("Expected the state to round-trip, got %q", fragment.Get("state"))
	}
	if fragment.Get("token_type") != "Bearer" {
		t.Errorf("Expected token_type Bearer, got %q", fragment.Get("token_type"))
	}

	token := fragment.Get("access_token")
	if token == "" {
		t.Fatal("Expected an access token in the fragment")
	}
	if store.Stored(user.ID).AlexaToken != token {
		t.Error("Expected the issued token to be persisted")
	}
}

func TestAuthorize_RejectsUnknownClient(t *testing.T) {
	store := testutil.NewMockUserStore()
	user := store.AddUser(&domain.User{})

	tests := map[string]url.Values{
		"wrong client": {
			"client_id":    []string{"other-client"},
			"redirect_uri": []string{"https://example.com/link"},
		},
		"unregistered redirect": {
			"client_id":    []string{"skill-client"},
			"redirect_uri": []string{"https://evil.example.com/"},
		},
	}

	for name, query := range tests {
		t.Run(name, func(t *testing.T) {
			c, _, h := newAuthorizeContext(t, store, user, query)

			err := h.Authorize(c)
			httpErr, ok := err.(*echo.HTTPError)
			if !ok || httpErr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400 error, got %v", err)
			}
		})
	}

	if stored := store.Stored(user.ID); stored.AlexaToken != "" {
		t.Error("Expected no token to be issued for rejected requests")
	}
}
