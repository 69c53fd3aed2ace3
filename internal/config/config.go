package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents the application configuration structure
type Config struct {
	Environment string `default:"prod"`

	PortalAPIListenAddress string `default:":8081" split_words:"true"`
	PortalAPIBaseAddress   string `default:"http://localhost:8081" split_words:"true"`
	PortalAPIAllowedOrigin string `split_words:"true"`
	OpsAPIListenAddress    string `default:":8082" split_words:"true"`

	OIDCProviderURL  string `split_words:"true"`
	OIDCClientID     string `split_words:"true"`
	OIDCClientSecret string `split_words:"true"`

	SupabaseURL     string `split_words:"true"`
	SupabaseAnonKey string `split_words:"true"`

	UpstreamBaseURL string        `default:"https://milhasrod.vercel.app" split_words:"true"`
	UpstreamTimeout time.Duration `default:"0" split_words:"true"`
	FrontendURL     string        `default:"http://localhost:5173" split_words:"true"`

	StorageDriver string `default:"inmem" split_words:"true"`
	PostgresDSN   string `split_words:"true"`
	BoltPath      string `default:"attempts.db" split_words:"true"`

	SessionLifetime time.Duration `default:"24h" split_words:"true"`
	BalanceCacheTTL time.Duration `default:"5m" split_words:"true"`
}

// IsEnvProduction returns whether the application runs in production mode
func (config *Config) IsEnvProduction() bool {
	return strings.ToLower(config.Environment) == "prod"
}

// IsPortalAPISecure returns whether the portal API is served over HTTPS.
// This decides whether cookies get the Secure attribute.
func (config *Config) IsPortalAPISecure() bool {
	return strings.HasPrefix(config.PortalAPIBaseAddress, "https://")
}

// AllowedOrigin returns the origin allowed to call the portal API with credentials.
// Falls back to the frontend URL if no origin is configured explicitly.
func (config *Config) AllowedOrigin() string {
	if config.PortalAPIAllowedOrigin != "" {
		return config.PortalAPIAllowedOrigin
	}
	return strings.TrimSuffix(config.FrontendURL, "/")
}

// IsOIDCEnabled returns whether the OIDC login flow is configured
func (config *Config) IsOIDCEnabled() bool {
	return config.OIDCProviderURL != "" && config.OIDCClientID != ""
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("milhas", config); err != nil {
		return nil, err
	}
	return config, nil
}
