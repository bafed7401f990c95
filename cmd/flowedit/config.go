package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/internal/auth"
)

// Config holds all flowedit CLI configuration.
// Priority: flags > env vars > settings.json > defaults.
type Config struct {
	APIURL    string `json:"api_url"`
	Token     string `json:"token,omitempty"`
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
	Catalog   string `json:"catalog,omitempty"`
	Dev       bool   `json:"dev,omitempty"`
}

func defaultConfig() Config {
	return Config{
		APIURL:    api.DefaultBaseURL,
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

func flowEditDir(getenv func(string) string) string {
	if v := getenv("FLOWEDIT_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".flowedit"
	}
	return filepath.Join(home, ".flowedit")
}

func settingsPath(getenv func(string) string) string {
	return filepath.Join(flowEditDir(getenv), "settings.json")
}

func loadConfig(getenv func(string) string) Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath(getenv)); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := getenv("FLOWEDIT_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := getenv("FLOWEDIT_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := getenv("FLOWEDIT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("FLOWEDIT_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := getenv("FLOWEDIT_CATALOG"); v != "" {
		cfg.Catalog = v
	}
	if v := getenv("FLOWEDIT_DEV"); v != "" {
		cfg.Dev = v == "true" || v == "1"
	}

	return cfg
}

// bindFlags registers the global flags (layer 4) with the loaded values as
// defaults.
func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.APIURL, "api-url", c.APIURL, "workflow API base URL")
	fs.StringVar(&c.Token, "token", c.Token, "bearer token")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
	fs.StringVar(&c.Catalog, "catalog", c.Catalog, "YAML palette catalog")
	fs.BoolVar(&c.Dev, "dev", c.Dev, "use the development token when no token is set")
}

// effectiveToken is the token handed to the credentials context.
func (c Config) effectiveToken() string {
	if c.Token == "" && c.Dev {
		return auth.DevToken
	}
	return c.Token
}

// saveToken stores token in settings.json, keeping the other settings.
func saveToken(getenv func(string) string, token string) (string, error) {
	dir := flowEditDir(getenv)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", dir, err)
	}

	path := settingsPath(getenv)
	settings := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &settings)
	}
	settings["token"] = token

	data, _ := json.MarshalIndent(settings, "", "  ")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("cannot write %s: %w", path, err)
	}
	return path, nil
}
