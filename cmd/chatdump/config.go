package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"chatdump/pkg/config"
	"chatdump/pkg/credentials"
	"chatdump/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage chatdump configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is written to $XDG_CONFIG_HOME/chatdump/config.yaml unless a
different path is given with --config.`,
	Run: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging every source.

Secrets such as the Telegram api_hash are masked.`,
	Run: runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the effective configuration.

This command checks:
  - YAML syntax
  - Value types and allowed values
  - Telegram and Discord credentials
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd, showCmd, validateCmd)
}

const exampleConfig = `# chatdump configuration file
#
# Environment variables override these values:
#   API_ID, API_HASH, SESSION_PATH, AUTH_FILE,
#   CHATDUMP_OUTPUT_DIR, CHATDUMP_LOG_LEVEL, CHATDUMP_UI ...

telegram:
  # From https://my.telegram.org (or use 'chatdump auth telegram')
  api_id: 0
  api_hash: ""

  # Session file, created on first login
  # (default: $XDG_DATA_HOME/chatdump/telegram.session)
  # session_path: ""

  # Phone number in international format (asked for when empty)
  phone: ""

discord:
  # PowerShell request snippet copied from the browser
  # (or use 'chatdump auth discord --file <snippet>')
  auth_file: ""

  base_url: "https://discord.com/api/v10"

  # Optional SOCKS5 proxy, e.g. socks5://127.0.0.1:9050
  proxy: ""

  # Per-request timeout, e.g. 30s (0 means none)
  timeout: 30s

output:
  # Where JSON artifacts are written
  directory: "."

logging:
  # debug, info, warn, error
  level: "info"

  # Optional JSON log file
  file: ""

metrics:
  # Prometheus textfile written after every batch (optional)
  textfile: ""

ui:
  # plain, tui or none
  mode: "plain"

  # Desktop notification when a batch ends
  notifications: false
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		ui.PrintError("Failed to create configuration directory", err.Error())
		os.Exit(1)
	}
	if err := os.WriteFile(configPath, []byte(exampleConfig), 0600); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Add your Telegram api_id/api_hash or Discord auth_file")
	fmt.Println("2. Run 'chatdump config validate' to check the configuration")
	fmt.Println("3. Start with 'chatdump data telegram resolve-users -u usernames.txt'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	data, err := yaml.Marshal(cfg.Masked())
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables")
	fmt.Println("3. .env files")
	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source != "" {
		fmt.Printf("4. Configuration file: %s\n", source)
	} else {
		fmt.Println("4. Configuration file: (none found)")
	}
	fmt.Println("5. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	source := configFile
	if source == "" {
		source = config.FindConfigFile()
	}
	if source != "" {
		ui.PrintInfo("Validating configuration", source)
	} else {
		ui.PrintInfo("Validating configuration", "(defaults and environment only)")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}

	warnings, problems := checkConfig(cfg)

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Output directory: %s\n", cfg.Output.Directory)
	fmt.Printf("  Telegram session: %s\n", cfg.Telegram.SessionPath)
	fmt.Printf("  Discord API: %s\n", cfg.Discord.BaseURL)
	fmt.Printf("  UI mode: %s\n", cfg.UI.Mode)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}

// checkConfig reports missing credentials as warnings and unusable paths
// as errors
func checkConfig(cfg *config.Config) (warnings, problems []string) {
	telegramReady := *cfg
	if manager, err := credentialManager(); err == nil {
		fillTelegram(&telegramReady, manager)
	}
	if err := telegramReady.ValidateTelegram(); err != nil {
		warnings = append(warnings, "Telegram: "+err.Error())
	}

	if cfg.Discord.AuthFile != "" {
		if _, err := os.Stat(cfg.Discord.AuthFile); err != nil {
			problems = append(problems, fmt.Sprintf("Discord auth_file is not readable: %v", err))
		}
	} else if manager, err := credentialManager(); err != nil || !hasDiscordHeaders(manager) {
		warnings = append(warnings, "Discord: no auth_file and no stored headers")
	}

	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create output directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}
	if cfg.Metrics.Textfile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Metrics.Textfile), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create metrics directory: %v", err))
		}
	}
	return warnings, problems
}

func hasDiscordHeaders(manager *credentials.Manager) bool {
	_, err := storedDiscordHeaders(manager)
	return err == nil
}
