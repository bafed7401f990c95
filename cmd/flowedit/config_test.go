package main

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowedit/internal/api"
	"github.com/rendis/flowedit/internal/auth"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := loadConfig(envMap(map[string]string{"FLOWEDIT_HOME": t.TempDir()}))

	assert.Equal(t, api.DefaultBaseURL, cfg.APIURL)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Empty(t, cfg.Token)
	assert.False(t, cfg.Dev)
}

func TestLoadConfig_Layers(t *testing.T) {
	home := t.TempDir()
	settings := `{"api_url": "http://settings/api", "token": "from-settings", "log_level": "debug"}`
	require.NoError(t, os.WriteFile(filepath.Join(home, "settings.json"), []byte(settings), 0o600))

	cfg := loadConfig(envMap(map[string]string{
		"FLOWEDIT_HOME":       home,
		"FLOWEDIT_TOKEN":      "from-env",
		"FLOWEDIT_LOG_FORMAT": "json",
		"FLOWEDIT_DEV":        "1",
	}))
	assert.Equal(t, "http://settings/api", cfg.APIURL, "settings override defaults")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "from-env", cfg.Token, "env overrides settings")
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.Dev)

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.bindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--token", "from-flag", "--api-url", "http://flag/api"}))
	assert.Equal(t, "from-flag", cfg.Token, "flags override env")
	assert.Equal(t, "http://flag/api", cfg.APIURL)
	assert.Equal(t, "debug", cfg.LogLevel, "unset flags keep lower layers")
}

func TestLoadConfig_MalformedSettingsIgnored(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "settings.json"), []byte("{nope"), 0o600))

	cfg := loadConfig(envMap(map[string]string{"FLOWEDIT_HOME": home}))
	assert.Equal(t, api.DefaultBaseURL, cfg.APIURL)
}

func TestEffectiveToken(t *testing.T) {
	assert.Equal(t, "", Config{}.effectiveToken())
	assert.Equal(t, auth.DevToken, Config{Dev: true}.effectiveToken())
	assert.Equal(t, "real", Config{Dev: true, Token: "real"}.effectiveToken())
}

func TestSaveToken_KeepsOtherSettings(t *testing.T) {
	home := filepath.Join(t.TempDir(), "nested")
	getenv := envMap(map[string]string{"FLOWEDIT_HOME": home})

	path, err := saveToken(getenv, "first")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "settings.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	m["api_url"] = "http://kept/api"
	data, _ = json.Marshal(m)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = saveToken(getenv, "second")
	require.NoError(t, err)
	cfg := loadConfig(getenv)
	assert.Equal(t, "second", cfg.Token)
	assert.Equal(t, "http://kept/api", cfg.APIURL)
}
