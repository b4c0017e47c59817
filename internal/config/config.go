package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blacktop/postkit/internal/publish"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	OAuth    map[publish.Platform]OAuthConfig
	Publish  PublishConfig
	APIs     APIConfig
	Store    StoreConfig
	LogLevel string
}

// ServerConfig holds HTTP proxy settings
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// OAuthConfig holds one platform's OAuth client registration
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
}

// PublishConfig holds orchestrator settings
type PublishConfig struct {
	MaxAttempts int
	HTTPTimeout time.Duration
}

// APIConfig holds the API roots of each platform
type APIConfig struct {
	GraphBaseURL    string
	LinkedInBaseURL string
	BlueskyPDSURL   string
}

// StoreConfig selects the credential store
type StoreConfig struct {
	Driver string // memory, env, sqlite
	DSN    string
}

// oauthPlatforms are the platforms with an OAuth flow.
var oauthPlatforms = []publish.Platform{publish.LinkedIn, publish.Facebook, publish.Instagram}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":4000")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("publish.max_attempts", publish.DefaultMaxAttempts)
	v.SetDefault("publish.http_timeout", 30*time.Second)
	v.SetDefault("graph.base_url", "https://graph.facebook.com/v19.0")
	v.SetDefault("linkedin.base_url", "https://api.linkedin.com/v2")
	v.SetDefault("bluesky.pds_url", "https://bsky.social")
	v.SetDefault("store.driver", "env")
	v.SetDefault("store.dsn", "postkit.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("oauth.linkedin.redirect_uri", "http://localhost:5173/api/oauth/linkedin/callback")
}

// Load loads configuration from an optional YAML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with POSTKIT_ prefix (e.g., POSTKIT_SERVER_ADDR)
// 2. postkit.yaml (or the file passed in path)
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("postkit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/postkit")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("POSTKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// the browser front end ships LinkedIn credentials under VITE_ names
	_ = v.BindEnv("oauth.linkedin.client_id", "POSTKIT_OAUTH_LINKEDIN_CLIENT_ID", "VITE_LINKEDIN_CLIENT_ID")
	_ = v.BindEnv("oauth.linkedin.client_secret", "POSTKIT_OAUTH_LINKEDIN_CLIENT_SECRET", "VITE_LINKEDIN_CLIENT_SECRET")
	_ = v.BindEnv("server.addr", "POSTKIT_SERVER_ADDR", "PORT")

	cfg := &Config{
		Server: ServerConfig{
			Addr:        normalizeAddr(v.GetString("server.addr")),
			CORSOrigins: v.GetStringSlice("server.cors_origins"),
		},
		OAuth: map[publish.Platform]OAuthConfig{},
		Publish: PublishConfig{
			MaxAttempts: v.GetInt("publish.max_attempts"),
			HTTPTimeout: v.GetDuration("publish.http_timeout"),
		},
		APIs: APIConfig{
			GraphBaseURL:    v.GetString("graph.base_url"),
			LinkedInBaseURL: v.GetString("linkedin.base_url"),
			BlueskyPDSURL:   v.GetString("bluesky.pds_url"),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(v.GetString("store.driver")),
			DSN:    v.GetString("store.dsn"),
		},
		LogLevel: v.GetString("log.level"),
	}

	for _, p := range oauthPlatforms {
		prefix := "oauth." + string(p) + "."
		cfg.OAuth[p] = OAuthConfig{
			ClientID:     v.GetString(prefix + "client_id"),
			ClientSecret: v.GetString(prefix + "client_secret"),
			RedirectURI:  v.GetString(prefix + "redirect_uri"),
			Scopes:       v.GetStringSlice(prefix + "scopes"),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have a closed set of values
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "env", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q (want memory, env or sqlite)", c.Store.Driver)
	}
	if c.Publish.MaxAttempts < 1 {
		return fmt.Errorf("publish.max_attempts must be at least 1, got %d", c.Publish.MaxAttempts)
	}
	if c.Store.Driver == "sqlite" && c.Store.DSN == "" {
		return errors.New("store.dsn is required for the sqlite store")
	}
	return nil
}

// normalizeAddr accepts a bare port such as "4000".
func normalizeAddr(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}
