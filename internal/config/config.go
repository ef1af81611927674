package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config represents the application configuration structure
type Config struct {
	// Environment defines the deployment environment ('production' enables secure cookies
	// and raises the log level)
	Environment string `split_words:"true" default:"development"`

	// ListenAddress defines the address the gateway API binds to
	ListenAddress string `split_words:"true" default:":8080"`

	// AllowedOrigin defines the origin of the portal front end for CORS purposes
	AllowedOrigin string `split_words:"true" default:"http://localhost:3000"`

	// BackendBaseURL defines the server-side base URL of the municipal backend REST API
	BackendBaseURL string `split_words:"true" required:"true"`

	// StorageDriver selects the session & audit storage implementation ('memory', 'postgres' or 'redis')
	StorageDriver string `split_words:"true" default:"memory"`

	// PostgresDSN defines the DSN to use for the 'postgres' storage driver
	PostgresDSN string `split_words:"true"`

	// RedisAddress, RedisPassword and RedisDB configure the 'redis' storage driver
	RedisAddress  string `split_words:"true" default:"localhost:6379"`
	RedisPassword string `split_words:"true"`
	RedisDB       int    `split_words:"true" default:"0"`

	// AccessTokenTTL defines the fixed window after which a stored access token is
	// considered stale and gets refreshed against the backend
	AccessTokenTTL time.Duration `split_words:"true" default:"1h"`

	// SessionTTL defines the lifetime of sessions established without 'remember me'
	SessionTTL time.Duration `split_words:"true" default:"24h"`

	// RememberSessionTTL defines the lifetime of sessions established with 'remember me'
	RememberSessionTTL time.Duration `split_words:"true" default:"720h"`

	// LoginErrorTTL defines how long a relayed login error message stays retrievable
	LoginErrorTTL time.Duration `split_words:"true" default:"1m"`
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("pg", config); err != nil {
		return nil, err
	}
	return config, nil
}

// IsEnvProduction returns whether the application runs in a production environment
func (config *Config) IsEnvProduction() bool {
	return strings.EqualFold(config.Environment, "production")
}
