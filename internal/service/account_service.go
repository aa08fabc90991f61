package service

import (
	"context"
	"time"

	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/rs/zerolog/log"
)

// AccountService wraps the user document store with count caching and
// access-token lookup.
type AccountService struct {
	store domain.UserStore
	cache domain.UserCountCache
}

// NewAccountService creates a new AccountService
func NewAccountService(store domain.UserStore, cache domain.UserCountCache) *AccountService {
	return &AccountService{store: store, cache: cache}
}

// Count returns the total number of user records. When useCache is true a
// recently cached value is served if one exists; otherwise a fresh count is
// taken from the store and the cache repopulated. Store errors propagate.
func (s *AccountService) Count(ctx context.Context, useCache bool) (int64, error) {
	if useCache && s.cache != nil {
		if count, ok := s.cache.GetUserCount(ctx); ok {
			return count, nil
		}
	}

	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		s.cache.SetUserCount(ctx, count)
	}
	return count, nil
}

// FindByAccessToken returns the user whose Alexa token equals the given
// token. Returns domain.ErrUserNotFound when no record matches. Tokens are
// meant to be unique; if several records match, the first is returned and
// the anomaly logged.
func (s *AccountService) FindByAccessToken(ctx context.Context, token string) (*domain.User, error) {
	users, err := s.store.GetWhere(ctx, func(u *domain.User) bool {
		return u.AlexaToken == token
	})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, domain.ErrUserNotFound
	}
	if len(users) > 1 {
		log.Warn().Int("matches", len(users)).Msg("Multiple users share an Alexa access token")
	}
	return users[0], nil
}

// CreateOrGetByLogin returns the user holding the given external login,
// creating a new account at first sign-in.
func (s *AccountService) CreateOrGetByLogin(ctx context.Context, login domain.ExternalLogin, email string) (*domain.User, error) {
	users, err := s.store.GetWhere(ctx, func(u *domain.User) bool {
		return u.HasLogin(login.LoginProvider, login.ProviderKey)
	})
	if err != nil {
		return nil, err
	}
	if len(users) > 0 {
		return users[0], nil
	}

	user := &domain.User{
		Email:         email,
		CreatedAt:     time.Now().UTC(),
		FavoriteLines: []string{},
		Logins:        []domain.ExternalLogin{login},
		RoleClaims:    []domain.RoleClaim{},
	}

	id, err := s.store.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	log.Info().Str("user_id", id).Str("provider", login.LoginProvider).Msg("Created user at first sign-in")
	return user, nil
}
