package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppName is used for config, data and keyring locations
const AppName = "chatdump"

// Config holds all configuration options for chatdump
type Config struct {
	// Telegram client settings
	Telegram TelegramConfig `yaml:"telegram" json:"telegram"`

	// Discord client settings
	Discord DiscordConfig `yaml:"discord" json:"discord"`

	// Where artifacts are written
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Prometheus textfile export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Terminal presentation
	UI UIConfig `yaml:"ui" json:"ui"`
}

// TelegramConfig holds MTProto application credentials and session location
type TelegramConfig struct {
	APIID       int    `yaml:"api_id" json:"api_id"`
	APIHash     string `yaml:"api_hash" json:"api_hash"`
	SessionPath string `yaml:"session_path" json:"session_path"`
	Phone       string `yaml:"phone" json:"phone"`
}

// DiscordConfig holds REST client settings
type DiscordConfig struct {
	// AuthFile is a browser "copy as PowerShell" request snippet
	AuthFile string        `yaml:"auth_file" json:"auth_file"`
	BaseURL  string        `yaml:"base_url" json:"base_url"`
	Proxy    string        `yaml:"proxy" json:"proxy"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	// Textfile is written after each batch when set
	Textfile string `yaml:"textfile" json:"textfile"`
}

// UIConfig holds progress display preferences
type UIConfig struct {
	// Mode is one of plain, tui or none
	Mode          string `yaml:"mode" json:"mode"`
	Notifications bool   `yaml:"notifications" json:"notifications"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			SessionPath: filepath.Join(xdg.DataHome, AppName, "telegram.session"),
		},
		Discord: DiscordConfig{
			BaseURL: "https://discord.com/api/v10",
		},
		Output: OutputConfig{
			Directory: ".",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			Mode: "plain",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if apiID := os.Getenv("API_ID"); apiID != "" {
		val, err := strconv.Atoi(apiID)
		if err != nil {
			errs = append(errs, fmt.Errorf("API_ID must be an integer: %q", apiID))
		} else {
			c.Telegram.APIID = val
		}
	}
	if apiHash := os.Getenv("API_HASH"); apiHash != "" {
		c.Telegram.APIHash = apiHash
	}
	if sessionPath := os.Getenv("SESSION_PATH"); sessionPath != "" {
		c.Telegram.SessionPath = sessionPath
	}
	if phone := os.Getenv("CHATDUMP_TELEGRAM_PHONE"); phone != "" {
		c.Telegram.Phone = phone
	}

	if authFile := os.Getenv("AUTH_FILE"); authFile != "" {
		c.Discord.AuthFile = authFile
	}
	if proxy := os.Getenv("CHATDUMP_DISCORD_PROXY"); proxy != "" {
		c.Discord.Proxy = proxy
	}

	if outputDir := os.Getenv("CHATDUMP_OUTPUT_DIR"); outputDir != "" {
		c.Output.Directory = outputDir
	}
	if logLevel := os.Getenv("CHATDUMP_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv("CHATDUMP_LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}
	if metricsFile := os.Getenv("CHATDUMP_METRICS_FILE"); metricsFile != "" {
		c.Metrics.Textfile = metricsFile
	}
	if mode := os.Getenv("CHATDUMP_UI"); mode != "" {
		c.UI.Mode = mode
	}
	if notify := os.Getenv("CHATDUMP_NOTIFICATIONS"); notify != "" {
		c.UI.Notifications = strings.ToLower(notify) == "true"
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches the working directory and XDG config dirs
func FindConfigFile() string {
	for _, loc := range []string{"chatdump.yaml", "chatdump.yml", ".chatdump.yaml"} {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	if path, err := xdg.SearchConfigFile(filepath.Join(AppName, "config.yaml")); err == nil {
		return path
	}

	return ""
}

// DefaultConfigPath is where `config init` writes when no path is given
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Validate checks settings shared by every command
func (c *Config) Validate() error {
	var errs []error

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	validModes := map[string]bool{"plain": true, "tui": true, "none": true}
	if !validModes[strings.ToLower(c.UI.Mode)] {
		errs = append(errs, fmt.Errorf("invalid ui mode %q", c.UI.Mode))
	}

	if c.Discord.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.Discord.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid discord base url: %w", err))
		}
	}
	if c.Discord.Proxy != "" {
		u, err := url.Parse(c.Discord.Proxy)
		if err != nil || (u.Scheme != "socks5" && u.Scheme != "socks5h") {
			errs = append(errs, fmt.Errorf("discord proxy must be a socks5:// url, got %q", c.Discord.Proxy))
		}
	}
	if c.Discord.Timeout < 0 {
		errs = append(errs, errors.New("discord timeout cannot be negative"))
	}

	return errors.Join(errs...)
}

// ValidateTelegram checks the settings the Telegram commands need
func (c *Config) ValidateTelegram() error {
	var errs []error
	if c.Telegram.APIID <= 0 {
		errs = append(errs, errors.New("telegram api_id is required (API_ID)"))
	}
	if c.Telegram.APIHash == "" {
		errs = append(errs, errors.New("telegram api_hash is required (API_HASH)"))
	}
	if c.Telegram.SessionPath == "" {
		errs = append(errs, errors.New("telegram session_path is required (SESSION_PATH)"))
	}
	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.Directory = outputDir
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
	if mode, ok := flags["ui"].(string); ok && mode != "" {
		c.UI.Mode = mode
	}
	if metricsFile, ok := flags["metrics-file"].(string); ok && metricsFile != "" {
		c.Metrics.Textfile = metricsFile
	}
	if session, ok := flags["session"].(string); ok && session != "" {
		c.Telegram.SessionPath = session
	}
	if authFile, ok := flags["auth-file"].(string); ok && authFile != "" {
		c.Discord.AuthFile = authFile
	}
	if notify, ok := flags["notify"].(bool); ok && notify {
		c.UI.Notifications = true
	}
}

// Masked returns a copy with secrets replaced, for display
func (c *Config) Masked() *Config {
	masked := *c
	if masked.Telegram.APIHash != "" {
		masked.Telegram.APIHash = maskSecret(masked.Telegram.APIHash)
	}
	if masked.Telegram.Phone != "" {
		masked.Telegram.Phone = maskSecret(masked.Telegram.Phone)
	}
	return &masked
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(xdg.ConfigHome, AppName, ".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
