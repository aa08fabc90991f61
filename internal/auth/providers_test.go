package auth

import (
	"net/url"
	"strings"
	"testing"

	"github.com/gtechsltn/alexa-london-travel-site/internal/config"
)

func testRegistry(t *testing.T, names ...string) *Registry {
	t.Helper()

	cfgs := make(map[string]config.ProviderConfig)
	for _, name := range names {
		cfgs[name] = config.ProviderConfig{
			ClientID:     name + "-id",
			ClientSecret: name + "-secret",
			Enabled:      true,
		}
	}
	return NewRegistry(cfgs, "https://travel.example.com")
}

func TestNewRegistry_OnlyConfiguredProviders(t *testing.T) {
	registry := testRegistry(t, "google", "github")

	if _, ok := registry.Get("google"); !ok {
		t.Error("Expected google to be enabled")
	}
	if _, ok := registry.Get("amazon"); ok {
		t.Error("Expected amazon to be disabled without credentials")
	}
	if _, ok := registry.Get("unknown"); ok {
		t.Error("Expected unknown providers to be absent")
	}
}

func TestNewRegistry_DisabledConfigIgnored(t *testing.T) {
	registry := NewRegistry(map[string]config.ProviderConfig{
		"google": {ClientID: "id", Enabled: false},
	}, "https://travel.example.com")

	if _, ok := registry.Get("google"); ok {
		t.Error("Expected a disabled provider to be left out")
	}
}

func TestEnabled_SortedByName(t *testing.T) {
	registry := testRegistry(t, "twitter", "amazon", "google")

	enabled := registry.Enabled()
	if len(enabled) != 3 {
		t.Fatalf("Expected 3 providers, got %d", len(enabled))
	}
	for i, name := range []string{"amazon", "google", "twitter"} {
		if enabled[i].Name != name {
			t.Errorf("Expected %s at position %d, got %s", name, i, enabled[i].Name)
		}
	}
}

func TestAuthURL(t *testing.T) {
	registry := testRegistry(t, "google")
	provider, _ := registry.Get("google")

	raw := provider.AuthURL("state-abc")
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Failed to parse auth URL: %v", err)
	}

	if !strings.HasPrefix(raw, "https://accounts.google.com/o/oauth2/auth") {
		t.Errorf("Unexpected authorization endpoint: %s", raw)
	}

	query := parsed.Query()
	if query.Get("state") != "state-abc" {
		t.Errorf("Expected the state to round-trip, got %q", query.Get("state"))
	}
	if query.Get("client_id") != "google-id" {
		t.Errorf("Expected the configured client id, got %q", query.Get("client_id"))
	}
	if query.Get("redirect_uri") != "https://travel.example.com/account/callback/google" {
		t.Errorf("Unexpected redirect URI: %q", query.Get("redirect_uri"))
	}
}

func TestFieldString(t *testing.T) {
	profile := map[string]any{
		"id":    float64(12345),
		"email": "user@example.com",
		"data": map[string]any{
			"id":   "42",
			"name": "Example User",
		},
		"flag": true,
	}

	tests := []struct {
		field string
		want  string
	}{
		{"email", "user@example.com"},
		{"id", "12345"},
		{"data.id", "42"},
		{"data.name", "Example User"},
		{"data.missing", ""},
		{"missing", ""},
		{"flag", ""},
		{"email.nested", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := fieldString(profile, tt.field); got != tt.want {
			t.Errorf("fieldString(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}
