package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

const defaultVaultwardenURL = "http://vaultwarden:80"
const defaultCacheTimeout = 300 * time.Second
const defaultPort = "5000"

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

type Config struct {
	vaultwardenURL string
	adminToken     string
	cacheTimeout   time.Duration
	port           string
	sentryDSN      string
	env            environment
}

func (c *Config) VaultwardenURL() string {
	return c.vaultwardenURL
}

func (c *Config) AdminToken() string {
	return c.adminToken
}

func (c *Config) CacheTimeout() time.Duration {
	return c.cacheTimeout
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, vaultwardenURL: %s, cacheTimeout: %s, port: %s, ...}",
		string(c.env), c.vaultwardenURL, c.cacheTimeout, c.port,
	)
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("VAULTWARDEN_PROXY_ENVIRONMENT")
	if !ok {
		return missingKey("VAULTWARDEN_PROXY_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: VAULTWARDEN_PROXY_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}

	vaultwardenURL := os.Getenv("VAULTWARDEN_URL")
	if vaultwardenURL == "" {
		vaultwardenURL = defaultVaultwardenURL
	}
	parsed, err := url.Parse(vaultwardenURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Config{}, fmt.Errorf("%w: VAULTWARDEN_URL (%s)", ErrInvalidValue, vaultwardenURL)
	}

	cacheTimeout := defaultCacheTimeout
	if rawTimeout := os.Getenv("CACHE_TIMEOUT"); rawTimeout != "" {
		seconds, err := strconv.Atoi(rawTimeout)
		if err != nil || seconds <= 0 {
			return Config{}, fmt.Errorf("%w: CACHE_TIMEOUT (%s)", ErrInvalidValue, rawTimeout)
		}
		cacheTimeout = time.Duration(seconds) * time.Second
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	sentryDSN := os.Getenv("SENTRY_DSN")

	if env == production || env == staging {
		if adminToken == "" {
			return missingKey("ADMIN_TOKEN")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
	}

	return Config{
		vaultwardenURL: vaultwardenURL,
		adminToken:     adminToken,
		cacheTimeout:   cacheTimeout,
		port:           port,
		sentryDSN:      sentryDSN,
		env:            env,
	}, nil
}
