package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port        string
	BaseURL     string
	CORSOrigins []string
	Env         string

	// Sessions
	SessionSecret string
	SessionCookie string
	SessionTTL    time.Duration

	// Sign-in providers, keyed by provider name (amazon, apple, facebook,
	// github, google, microsoft, twitter)
	Providers map[string]ProviderConfig

	// TfL line data
	Tfl TflConfig

	// Alexa account linking
	Alexa AlexaConfig

	// Redis cache
	Redis RedisConfig
}

// ProviderConfig holds the settings for one external sign-in provider.
// A provider is enabled only when both credentials are present.
type ProviderConfig struct {
	Enabled      bool
	ClientID     string
	ClientSecret string
	// TeamID/KeyID style extras some providers need (e.g. Apple)
	Extra map[string]string
}

// TflConfig holds the TfL API client settings
type TflConfig struct {
	BaseURL string
	AppID   string
	AppKey  string
	Timeout time.Duration
}

// AlexaConfig holds the Alexa skill account-linking settings
type AlexaConfig struct {
	ClientID     string
	RedirectURLs []string
}

// RedisConfig holds the user-count cache settings. TTL is owned by the
// cache, not by callers.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	UserCountTTL time.Duration
}

// providerNames enumerates every provider the site can offer. Whether each
// is offered at runtime depends on its credentials being configured.
var providerNames = []string{"amazon", "apple", "facebook", "github", "google", "microsoft", "twitter"}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		Port:          getEnv("PORT", "8080"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		CORSOrigins:   strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:           getEnv("ENV", "development"),
		SessionSecret: getEnv("SESSION_SECRET", ""),
		SessionCookie: getEnv("SESSION_COOKIE", "travel_session"),
		SessionTTL:    getDuration("SESSION_TTL", 30*24*time.Hour),
		Providers:     loadProviders(),
		Tfl: TflConfig{
			BaseURL: getEnv("TFL_BASE_URL", "https://api.tfl.gov.uk"),
			AppID:   getEnv("TFL_APP_ID", ""),
			AppKey:  getEnv("TFL_APP_KEY", ""),
			Timeout: getDuration("TFL_TIMEOUT", 10*time.Second),
		},
		Alexa: AlexaConfig{
			ClientID:     getEnv("ALEXA_CLIENT_ID", ""),
			RedirectURLs: splitNonEmpty(getEnv("ALEXA_REDIRECT_URLS", "")),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           0,
			UserCountTTL: getDuration("USER_COUNT_TTL", 10*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	return nil
}

// loadProviders reads the credentials for every known provider. Variables
// follow the pattern PROVIDER_<NAME>_CLIENT_ID / PROVIDER_<NAME>_CLIENT_SECRET.
func loadProviders() map[string]ProviderConfig {
	providers := make(map[string]ProviderConfig, len(providerNames))
	for _, name := range providerNames {
		prefix := "PROVIDER_" + strings.ToUpper(name) + "_"
		p := ProviderConfig{
			ClientID:     getEnv(prefix+"CLIENT_ID", ""),
			ClientSecret: getEnv(prefix+"CLIENT_SECRET", ""),
		}
		p.Enabled = p.ClientID != "" && p.ClientSecret != ""
		if name == "apple" {
			p.Extra = map[string]string{
				"teamId": getEnv(prefix+"TEAM_ID", ""),
				"keyId":  getEnv(prefix+"KEY_ID", ""),
			}
		}
		providers[name] = p
	}
	return providers
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
