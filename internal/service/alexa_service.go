package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"slices"

	"github.com/gtechsltn/alexa-london-travel-site/internal/config"
	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/rs/zerolog/log"
)

// tokenRandomBytes is the number of random bytes in an access token
// (48 bytes = 384 bits, 64 characters once encoded).
const tokenRandomBytes = 48

// AlexaService issues the access tokens the Alexa skill presents to the
// preferences API. A user holds at most one live token: issuing a new one
// overwrites the previous value.
type AlexaService struct {
	store domain.UserStore
	cfg   config.AlexaConfig
}

// NewAlexaService creates a new AlexaService
func NewAlexaService(store domain.UserStore, cfg config.AlexaConfig) *AlexaService {
	return &AlexaService{store: store, cfg: cfg}
}

// IsAuthorizedClient reports whether the account-linking request comes from
// the configured skill client with a registered redirect URI.
func (s *AlexaService) IsAuthorizedClient(clientID, redirectURI string) bool {
	return clientID == s.cfg.ClientID &&
		s.cfg.ClientID != "" &&
		slices.Contains(s.cfg.RedirectURLs, redirectURI)
}

// Authorize generates a fresh access token for the user and persists it
// against the record's own last-read etag.
func (s *AlexaService) Authorize(ctx context.Context, user *domain.User) (string, error) {
	token, err := generateAccessToken()
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate access token")
		return "", fmt.Errorf("generating access token: %w", err)
	}

	updated := *user
	updated.AlexaToken = token

	replaced, err := s.store.Replace(ctx, &updated, user.ETag)
	if err != nil {
		return "", err
	}
	if replaced == nil {
		return "", domain.ErrWriteConflict
	}
	*user = *replaced

	log.Info().Str("user_id", user.ID).Msg("Issued Alexa access token")
	return token, nil
}

// generateAccessToken generates a cryptographically secure random token
func generateAccessToken() (string, error) {
	bytes := make([]byte, tokenRandomBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
