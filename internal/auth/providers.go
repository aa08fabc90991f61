package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gtechsltn/alexa-london-travel-site/internal/config"
	"golang.org/x/oauth2"
)

// Identity is what a completed sign-in yields: the provider's stable key
// for the user plus whatever profile data the provider shared.
type Identity struct {
	Provider    string
	ProviderKey string
	Email       string
	DisplayName string
}

// Provider wraps an OAuth 2.0 authorization-code flow for one external
// sign-in provider.
type Provider struct {
	Name        string
	DisplayName string

	config      *oauth2.Config
	userInfoURL string
	idField     string
	emailField  string
	nameField   string
	useIDToken  bool
}

// providerSpec is the static description of a provider; credentials and the
// callback URL are filled in from configuration at startup.
type providerSpec struct {
	displayName string
	endpoint    oauth2.Endpoint
	scopes      []string
	userInfoURL string
	idField     string
	emailField  string
	nameField   string
	useIDToken  bool
}

var providerSpecs = map[string]providerSpec{
	"amazon": {
		displayName: "Amazon",
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.amazon.com/ap/oa",
			TokenURL: "https://api.amazon.com/auth/o2/token",
		},
		scopes:      []string{"profile"},
		userInfoURL: "https://api.amazon.com/user/profile",
		idField:     "user_id",
		emailField:  "email",
		nameField:   "name",
	},
	"apple": {
		displayName: "Apple",
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://appleid.apple.com/auth/authorize",
			TokenURL: "https://appleid.apple.com/auth/token",
		},
		scopes:     []string{"email"},
		useIDToken: true,
	},
	"facebook": {
		displayName: "Facebook",
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://www.facebook.com/v18.0/dialog/oauth",
			TokenURL: "https://graph.facebook.com/v18.0/oauth/access_token",
		},
		scopes:      []string{"email"},
		userInfoURL: "https://graph.facebook.com/me?fields=id,name,email",
		idField:     "id",
		emailField:  "email",
		nameField:   "name",
	},
	"github": {
		displayName: "GitHub",
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://github.com/login/oauth/authorize",
			TokenURL: "https://github.com/login/oauth/access_token",
		},
		scopes:      []string{"read:user", "user:email"},
		userInfoURL: "https://api.github.com/user",
		idField:     "id",
		emailField:  "email",
		nameField:   "name",
	},
	"google": {
		displayName: "Google",
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		scopes:      []string{"openid", "email", "profile"},
		userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
		idField:     "id",
		emailField:  "email",
		nameField:   "name",
	},
	"microsoft": {
		displayName: "Microsoft",
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://login.microsoftonline.com/common/oauth2/v2.0/authorize",
			TokenURL: "https://login.microsoftonline.com/common/oauth2/v2.0/token",
		},
		scopes:      []string{"User.Read"},
		userInfoURL: "https://graph.microsoft.com/v1.0/me",
		idField:     "id",
		emailField:  "userPrincipalName",
		nameField:   "displayName",
	},
	"twitter": {
		displayName: "Twitter",
		endpoint: oauth2.Endpoint{
			AuthURL:  "https://twitter.com/i/oauth2/authorize",
			TokenURL: "https://api.twitter.com/2/oauth2/token",
		},
		scopes:      []string{"users.read", "tweet.read"},
		userInfoURL: "https://api.twitter.com/2/users/me",
		idField:     "data.id",
		emailField:  "",
		nameField:   "data.name",
	},
}

// Registry holds the providers enabled by configuration.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry builds the provider registry from configuration. Providers
// without credentials are left out entirely, so nothing downstream needs an
// enabled check.
func NewRegistry(cfgs map[string]config.ProviderConfig, baseURL string) *Registry {
	providers := make(map[string]*Provider)
	for name, spec := range providerSpecs {
		cfg, ok := cfgs[name]
		if !ok || !cfg.Enabled {
			continue
		}
		providers[name] = &Provider{
			Name:        name,
			DisplayName: spec.displayName,
			config: &oauth2.Config{
				ClientID:     cfg.ClientID,
				ClientSecret: cfg.ClientSecret,
				RedirectURL:  baseURL + "/account/callback/" + name,
				Scopes:       spec.scopes,
				Endpoint:     spec.endpoint,
			},
			userInfoURL: spec.userInfoURL,
			idField:     spec.idField,
			emailField:  spec.emailField,
			nameField:   spec.nameField,
			useIDToken:  spec.useIDToken,
		}
	}
	return &Registry{providers: providers}
}

// Get returns the named provider if it is enabled.
func (r *Registry) Get(name string) (*Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Enabled returns the enabled providers sorted by name.
func (r *Registry) Enabled() []*Provider {
	out := make([]*Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AuthURL returns the provider authorization URL for the given CSRF state.
func (p *Provider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the user's identity.
func (p *Provider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging code with %s: %w", p.Name, err)
	}

	if p.useIDToken {
		return p.identityFromIDToken(token)
	}
	return p.identityFromUserInfo(ctx, token)
}

// identityFromUserInfo fetches the provider's user-info endpoint with the
// access token and maps the configured fields.
func (p *Provider) identityFromUserInfo(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	client := p.config.Client(ctx, token)

	resp, err := client.Get(p.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("auth: fetching %s profile: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: %s profile endpoint returned status %d", p.Name, resp.StatusCode)
	}

	var profile map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("auth: decoding %s profile: %w", p.Name, err)
	}

	key := fieldString(profile, p.idField)
	if key == "" {
		return nil, fmt.Errorf("auth: %s profile has no user id", p.Name)
	}

	return &Identity{
		Provider:    p.Name,
		ProviderKey: key,
		Email:       fieldString(profile, p.emailField),
		DisplayName: fieldString(profile, p.nameField),
	}, nil
}

// identityFromIDToken extracts the identity from the id_token of the token
// response (Apple has no user-info endpoint). The token was obtained
// directly from the provider's token endpoint, so its claims are read
// without a second signature check.
func (p *Provider) identityFromIDToken(token *oauth2.Token) (*Identity, error) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, fmt.Errorf("auth: %s token response has no id_token", p.Name)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("auth: parsing %s id_token: %w", p.Name, err)
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("auth: %s id_token has no subject", p.Name)
	}
	email, _ := claims["email"].(string)

	return &Identity{
		Provider:    p.Name,
		ProviderKey: sub,
		Email:       email,
	}, nil
}

// fieldString resolves a possibly nested ("data.id") field to a string.
// Numeric ids (GitHub) are rendered in decimal.
func fieldString(profile map[string]any, field string) string {
	if field == "" {
		return ""
	}
	cur := any(profile)
	start := 0
	for i := 0; i <= len(field); i++ {
		if i == len(field) || field[i] == '.' {
			m, ok := cur.(map[string]any)
			if !ok {
				return ""
			}
			cur = m[field[start:i]]
			start = i + 1
		}
	}
	switch v := cur.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}
