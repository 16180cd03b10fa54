// Package config loads the proxy's configuration from environment
// variables and .env files.
//
// It tries several file locations (./.env, ~/.claude/proxy.env,
// ~/.claude-code-proxy) in priority order via godotenv.Overload, since
// there is exactly one upstream to configure rather than a provider to
// detect.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all proxy configuration.
type Config struct {
	// ProxyAPIKey, if set, is the bearer/x-api-key value callers must
	// present; empty disables auth entirely (local-only use).
	ProxyAPIKey string

	// CloudCodeAPIKey authenticates the proxy to the upstream.
	CloudCodeAPIKey string
	CloudCodeBaseURL string

	// Model routing overrides (falls back to the router's static table
	// when unset).
	OpusModel   string
	SonnetModel string
	HaikuModel  string
	DefaultModel string

	// Server settings.
	Host string
	Port string

	// Widens Gemini-family routes to their [1m]-suffixed upstream ID.
	Gemini1MContext bool

	// NgrokAuthToken is held for a future public-tunnel mode; the proxy
	// itself never spawns a tunnel.
	NgrokAuthToken string

	// Debug prints each /v1/messages request body as it arrives.
	Debug bool

	// SimpleLog prints one summary line per completed request.
	SimpleLog bool

	// Fallback, when true, degrades a translation error into a plain
	// end_turn response instead of failing the request outright.
	Fallback bool
}

// Load reads configuration from the environment, after trying to
// populate it from the first .env-style file it finds.
func Load() (*Config, error) {
	locations := []string{
		".env",
		filepath.Join(os.Getenv("HOME"), ".claude", "proxy.env"),
		filepath.Join(os.Getenv("HOME"), ".claude-code-proxy"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			if err := godotenv.Overload(loc); err == nil {
				fmt.Printf("loaded configuration from %s\n", loc)
				break
			}
		}
	}

	cfg := &Config{
		ProxyAPIKey:      os.Getenv("PROXY_API_KEY"),
		CloudCodeAPIKey:  os.Getenv("CLOUD_CODE_API_KEY"),
		CloudCodeBaseURL: getEnvOrDefault("CLOUD_CODE_BASE_URL", ""),

		OpusModel:    os.Getenv("ANTHROPIC_DEFAULT_OPUS_MODEL"),
		SonnetModel:  os.Getenv("ANTHROPIC_DEFAULT_SONNET_MODEL"),
		HaikuModel:   os.Getenv("ANTHROPIC_DEFAULT_HAIKU_MODEL"),
		DefaultModel: getEnvOrDefault("DEFAULT_MODEL", "gemini-3-pro-preview"),

		Host: getEnvOrDefault("HOST", "0.0.0.0"),
		Port: getEnvOrDefault("PORT", "8082"),

		Gemini1MContext: getEnvAsBoolOrDefault("GEMINI_1M_CONTEXT", false),
		NgrokAuthToken:  os.Getenv("NGROK_AUTH_TOKEN"),

		Debug:    getEnvAsBoolOrDefault("DEBUG", false),
		Fallback: getEnvAsBoolOrDefault("FALLBACK", false),
	}

	if cfg.CloudCodeAPIKey == "" {
		return nil, fmt.Errorf("CLOUD_CODE_API_KEY is required")
	}

	return cfg, nil
}

// LoadWithDebug loads configuration and applies the CLI's debug flag.
func LoadWithDebug(debug, simpleLog bool) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	cfg.Debug = debug
	cfg.SimpleLog = simpleLog
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// IsLocalhost reports whether the configured base URL points at this
// machine.
func (c *Config) IsLocalhost() bool {
	base := strings.ToLower(c.CloudCodeBaseURL)
	return strings.Contains(base, "localhost") || strings.Contains(base, "127.0.0.1")
}
