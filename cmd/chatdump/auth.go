package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"chatdump/pkg/config"
	"chatdump/pkg/credentials"
	"chatdump/pkg/discord"
	"chatdump/pkg/logger"
	"chatdump/pkg/telegram"
	"chatdump/pkg/ui"
)

var (
	apiID      int
	apiHash    string
	headerFile string
	verify     bool
)

// credentialManager is swapped out in tests
var credentialManager = credentials.NewManager

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Telegram and Discord credentials",
	Long: `Manage stored platform credentials securely.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (API_ID, API_HASH, AUTH_FILE)

Values in the config file or environment take precedence over stored ones.
Never share your credentials or session files!`,
}

var authTelegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Store the Telegram api_id and api_hash",
	Example: `  # Interactive
  chatdump auth telegram

  # Non-interactive
  chatdump auth telegram --api-id 123456 --api-hash 0123456789abcdef`,
	Args: cobra.NoArgs,
	Run:  runAuthTelegram,
}

var authDiscordCmd = &cobra.Command{
	Use:   "discord",
	Short: "Store Discord session headers from a PowerShell snippet",
	Example: `  chatdump auth discord --file discord_request.txt --verify`,
	Args:    cobra.NoArgs,
	Run:     runAuthDiscord,
}

var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored credentials",
	Long:  `List stored credentials with secrets masked.`,
	Args:  cobra.NoArgs,
	Run:   runAuthList,
}

var authRemoveCmd = &cobra.Command{
	Use:       "remove <platform>",
	Short:     "Remove stored credentials for a platform",
	Example:   `  chatdump auth remove discord`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{credentials.Telegram, credentials.Discord},
	Run:       runAuthRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authTelegramCmd, authDiscordCmd, authListCmd, authRemoveCmd)

	authTelegramCmd.Flags().IntVar(&apiID, "api-id", 0, "application api_id from my.telegram.org")
	authTelegramCmd.Flags().StringVar(&apiHash, "api-hash", "", "application api_hash from my.telegram.org")

	authDiscordCmd.Flags().StringVarP(&headerFile, "file", "f", "", "PowerShell request snippet copied from the browser")
	authDiscordCmd.Flags().BoolVar(&verify, "verify", false, "check the headers against users/@me before saving")
}

func runAuthTelegram(cmd *cobra.Command, args []string) {
	manager, err := credentialManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	if apiID == 0 || apiHash == "" {
		credentials.ShowTelegramGuide(os.Stdout)
		fmt.Println()

		prompter := telegram.NewTerminalPrompter()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		if apiID == 0 {
			answer, err := prompter.Ask(ctx, "App api_id: ")
			if err != nil {
				ui.PrintError("Failed to read api_id", err.Error())
				os.Exit(1)
			}
			apiID, err = strconv.Atoi(answer)
			if err != nil {
				ui.PrintError("api_id must be a number", answer)
				os.Exit(1)
			}
		}
		if apiHash == "" {
			apiHash, err = prompter.AskSecret(ctx, "App api_hash: ")
			if err != nil {
				ui.PrintError("Failed to read api_hash", err.Error())
				os.Exit(1)
			}
		}
	}

	cred := &credentials.Credential{
		Platform: credentials.Telegram,
		APIID:    apiID,
		APIHash:  apiHash,
	}
	if err := manager.Store(cred); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Telegram credentials saved")
	fmt.Println("\nNext: resolve usernames with")
	fmt.Println("  $ chatdump data telegram resolve-users -u usernames.txt")
	fmt.Println("\nThe first run asks for your phone number and login code.")
}

func runAuthDiscord(cmd *cobra.Command, args []string) {
	if headerFile == "" {
		credentials.ShowDiscordGuide(os.Stdout)
		os.Exit(1)
	}

	headers, err := discord.LoadHeaderFile(headerFile)
	if err != nil {
		ui.PrintError("Failed to read header snippet", err.Error())
		os.Exit(1)
	}

	if verify {
		user, err := verifyDiscordHeaders(cmd, headers)
		if err != nil {
			ui.PrintError("Headers were rejected", err.Error())
			os.Exit(1)
		}
		ui.PrintInfo("Logged in as", user.Username)
	}

	manager, err := credentialManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}
	if err := manager.Store(&credentials.Credential{Platform: credentials.Discord, Headers: headers}); err != nil {
		ui.PrintError("Failed to store credentials", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Discord headers saved (%d headers)", len(headers)))
	fmt.Println("\nNext: list the channels you can export with")
	fmt.Println("  $ chatdump data discord list-channels --save channels.txt")
	fmt.Println("\n⚠️  The authorization header gives full access to your account. Never share it!")
}

func verifyDiscordHeaders(cmd *cobra.Command, headers map[string]string) (*discord.User, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	client, err := discord.NewClient(discord.Options{
		BaseURL: cfg.Discord.BaseURL,
		Timeout: cfg.Discord.Timeout,
		Proxy:   cfg.Discord.Proxy,
		Headers: headers,
		Logger:  logger.GetLogger(),
	})
	if err != nil {
		return nil, err
	}
	return client.GetCurrentUser(cmd.Context())
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := credentialManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}

	creds, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list credentials", err.Error())
		os.Exit(1)
	}

	if len(creds) == 0 {
		ui.PrintInfo("No stored credentials", "Use 'chatdump auth telegram' or 'chatdump auth discord' to add one")
		return
	}

	ui.PrintHighlight("Stored Credentials")
	fmt.Println()

	for i, cred := range creds {
		sanitized := credentials.Sanitize(cred)
		fmt.Printf("%d. Platform: %s\n", i+1, sanitized.Platform)
		switch sanitized.Platform {
		case credentials.Telegram:
			fmt.Printf("   API ID: %d\n", sanitized.APIID)
			fmt.Printf("   API Hash: %s\n", sanitized.APIHash)
		case credentials.Discord:
			names := make([]string, 0, len(sanitized.Headers))
			for name := range sanitized.Headers {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("   %s: %s\n", name, sanitized.Headers[name])
			}
		}
		if !sanitized.LastModified.IsZero() {
			fmt.Printf("   Last Modified: %s\n", sanitized.LastModified.Format("2006-01-02 15:04:05"))
		}
		fmt.Println()
	}
}

func runAuthRemove(cmd *cobra.Command, args []string) {
	platform := args[0]
	if platform != credentials.Telegram && platform != credentials.Discord {
		ui.PrintError("Unknown platform", platform)
		os.Exit(1)
	}

	manager, err := credentialManager()
	if err != nil {
		ui.PrintError("Failed to initialize credential manager", err.Error())
		os.Exit(1)
	}
	if err := manager.Delete(platform); err != nil {
		ui.PrintError("Failed to remove credentials", err.Error())
		os.Exit(1)
	}
	ui.PrintSuccess("Credentials removed: " + platform)
}

// applyTelegramCredentials fills api_id/api_hash from the credential
// store when the config left them empty, then validates
func applyTelegramCredentials(cfg *config.Config) error {
	if cfg.Telegram.APIID == 0 || cfg.Telegram.APIHash == "" {
		if manager, err := credentialManager(); err == nil {
			fillTelegram(cfg, manager)
		}
	}
	if err := cfg.ValidateTelegram(); err != nil {
		return fmt.Errorf("%w\nrun 'chatdump auth telegram' to store credentials", err)
	}
	return nil
}

func fillTelegram(cfg *config.Config, manager *credentials.Manager) {
	cred, err := manager.Retrieve(credentials.Telegram)
	if err != nil {
		return
	}
	if cfg.Telegram.APIID == 0 {
		cfg.Telegram.APIID = cred.APIID
	}
	if cfg.Telegram.APIHash == "" {
		cfg.Telegram.APIHash = cred.APIHash
	}
}

// discordHeaders reads the configured auth file, else the stored headers
func discordHeaders(cfg *config.Config) (map[string]string, error) {
	if cfg.Discord.AuthFile != "" {
		return discord.LoadHeaderFile(cfg.Discord.AuthFile)
	}

	manager, err := credentialManager()
	if err != nil {
		return nil, err
	}
	return storedDiscordHeaders(manager)
}

func storedDiscordHeaders(manager *credentials.Manager) (map[string]string, error) {
	cred, err := manager.Retrieve(credentials.Discord)
	if err != nil {
		if errors.Is(err, credentials.ErrCredentialsNotFound) {
			return nil, errors.New("no Discord headers: pass --auth-file or run 'chatdump auth discord --file <snippet>'")
		}
		return nil, err
	}
	return cred.Headers, nil
}
