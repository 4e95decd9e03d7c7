package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"API_ID", "API_HASH", "SESSION_PATH", "AUTH_FILE",
		"CHATDUMP_TELEGRAM_PHONE", "CHATDUMP_DISCORD_PROXY", "CHATDUMP_OUTPUT_DIR",
		"CHATDUMP_LOG_LEVEL", "CHATDUMP_LOG_FILE", "CHATDUMP_METRICS_FILE",
		"CHATDUMP_UI", "CHATDUMP_NOTIFICATIONS",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Output.Directory != "." {
		t.Errorf("Expected default output directory to be ., got %s", config.Output.Directory)
	}
	if config.Discord.BaseURL != "https://discord.com/api/v10" {
		t.Errorf("Unexpected default discord base url %s", config.Discord.BaseURL)
	}
	if filepath.Base(config.Telegram.SessionPath) != "telegram.session" {
		t.Errorf("Unexpected default session path %s", config.Telegram.SessionPath)
	}
	assert.NoError(t, config.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_ID", "12345")
	t.Setenv("API_HASH", "0123456789abcdef")
	t.Setenv("SESSION_PATH", "/tmp/test.session")
	t.Setenv("AUTH_FILE", "/tmp/discord.txt")
	t.Setenv("CHATDUMP_OUTPUT_DIR", "/tmp/dumps")
	t.Setenv("CHATDUMP_LOG_LEVEL", "debug")
	t.Setenv("CHATDUMP_NOTIFICATIONS", "TRUE")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, 12345, config.Telegram.APIID)
	assert.Equal(t, "0123456789abcdef", config.Telegram.APIHash)
	assert.Equal(t, "/tmp/test.session", config.Telegram.SessionPath)
	assert.Equal(t, "/tmp/discord.txt", config.Discord.AuthFile)
	assert.Equal(t, "/tmp/dumps", config.Output.Directory)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.True(t, config.UI.Notifications)
}

func TestLoadFromEnvInvalidAPIID(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_ID", "not-a-number")

	config := DefaultConfig()
	err := config.LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_ID")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantError bool
	}{
		{
			name:      "defaults",
			mutate:    func(c *Config) {},
			wantError: false,
		},
		{
			name:      "missing output directory",
			mutate:    func(c *Config) { c.Output.Directory = "" },
			wantError: true,
		},
		{
			name:      "invalid log level",
			mutate:    func(c *Config) { c.Logging.Level = "loud" },
			wantError: true,
		},
		{
			name:      "invalid ui mode",
			mutate:    func(c *Config) { c.UI.Mode = "fancy" },
			wantError: true,
		},
		{
			name:      "socks5 proxy",
			mutate:    func(c *Config) { c.Discord.Proxy = "socks5://127.0.0.1:9050" },
			wantError: false,
		},
		{
			name:      "http proxy rejected",
			mutate:    func(c *Config) { c.Discord.Proxy = "http://127.0.0.1:8080" },
			wantError: true,
		},
		{
			name:      "negative timeout",
			mutate:    func(c *Config) { c.Discord.Timeout = -time.Second },
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestValidateTelegram(t *testing.T) {
	config := DefaultConfig()
	err := config.ValidateTelegram()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_id")
	assert.Contains(t, err.Error(), "api_hash")

	config.Telegram.APIID = 1
	config.Telegram.APIHash = "hash"
	assert.NoError(t, config.ValidateTelegram())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chatdump.yaml")
	content := `
telegram:
  api_id: 42
  api_hash: "abc"
discord:
  auth_file: "auth.txt"
  timeout: 15s
output:
  directory: "/data/dumps"
logging:
  level: "warn"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config := DefaultConfig()
	require.NoError(t, config.LoadFromFile(path))

	assert.Equal(t, 42, config.Telegram.APIID)
	assert.Equal(t, "abc", config.Telegram.APIHash)
	assert.Equal(t, "auth.txt", config.Discord.AuthFile)
	assert.Equal(t, 15*time.Second, config.Discord.Timeout)
	assert.Equal(t, "/data/dumps", config.Output.Directory)
	assert.Equal(t, "warn", config.Logging.Level)
	// untouched defaults survive
	assert.Equal(t, "https://discord.com/api/v10", config.Discord.BaseURL)
}

func TestLoadFromFileMissing(t *testing.T) {
	config := DefaultConfig()
	err := config.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "chatdump.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  directory: from-file\nlogging:\n  level: warn\n"), 0644))

	t.Setenv("CHATDUMP_LOG_LEVEL", "error")

	config, err := Load(path, map[string]interface{}{
		"output": "from-flag",
	})
	require.NoError(t, err)

	assert.Equal(t, "from-flag", config.Output.Directory)
	assert.Equal(t, "error", config.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)

	_, err = Load("", map[string]interface{}{"log-level": "chatty"})
	assert.Error(t, err)
}

func TestSaveAndMasked(t *testing.T) {
	config := DefaultConfig()
	config.Telegram.APIHash = "0123456789abcdef"

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, config.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, config.Telegram.APIHash, loaded.Telegram.APIHash)

	masked := config.Masked()
	assert.Equal(t, "01************ef", masked.Telegram.APIHash)
	assert.Equal(t, "0123456789abcdef", config.Telegram.APIHash)
}
