package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"chatdump/internal/crawl"
	"chatdump/pkg/config"
	"chatdump/pkg/discord"
	"chatdump/pkg/input"
	"chatdump/pkg/logger"
	"chatdump/pkg/models"
	"chatdump/pkg/telegram"
	"chatdump/pkg/ui"
)

var (
	// data command flags
	targetsFile string
	limit       int
	datePoint   string
	reverse     bool
	channelsOut string
	sessionPath string
	authFile    string
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Resolve peers and dump message history",
}

var telegramCmd = &cobra.Command{
	Use:   "telegram",
	Short: "Telegram commands (MTProto user session)",
}

var discordCmd = &cobra.Command{
	Use:   "discord",
	Short: "Discord commands (browser session headers)",
}

var resolveUsersCmd = &cobra.Command{
	Use:   "resolve-users",
	Short: "Resolve a list of usernames into peers",
	Long: `Resolve every username in a text file (one per line) and write
telegram_resolved_peers_{n}_{timestamp}.json. Any failure aborts the batch
and nothing is written.`,
	Example: `  chatdump data telegram resolve-users -u usernames.txt`,
	Args:    cobra.NoArgs,
	RunE:    runResolveUsers,
}

var telegramDumpCmd = &cobra.Command{
	Use:   "dump-messages",
	Short: "Dump the history of resolved peers",
	Long: `Dump the newest messages of every peer listed in a resolved-peers file,
walking back until the date point or the limit. One file is written per peer:
telegram_{username}[_{limit}]_{timestamp}.json.`,
	Example: `  chatdump data telegram dump-messages -u telegram_resolved_peers_2_2024-05-01T12_00_00Z.json -d 2024-01-01T00:00:00Z
  chatdump data telegram dump-messages -u resolved.json -l 500 -d 0`,
	Args: cobra.NoArgs,
	RunE: runTelegramDump,
}

var discordDumpCmd = &cobra.Command{
	Use:   "dump-messages",
	Short: "Dump the history of channels",
	Long: `Dump the newest messages of every channel id in a text file (one per
line), walking back until the date point or the limit. All channels are
written to discord_dumped_peers_{n}_{timestamp}.json.`,
	Example: `  chatdump data discord dump-messages -t channels.txt -d 2024-01-01T00:00:00Z -l 1000`,
	Args:    cobra.NoArgs,
	RunE:    runDiscordDump,
}

var listChannelsCmd = &cobra.Command{
	Use:   "list-channels",
	Short: "List DM and guild channels the account can read",
	Args:  cobra.NoArgs,
	RunE:  runListChannels,
}

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(telegramCmd, discordCmd)
	telegramCmd.AddCommand(resolveUsersCmd, telegramDumpCmd)
	discordCmd.AddCommand(discordDumpCmd, listChannelsCmd)

	telegramCmd.PersistentFlags().StringVar(&sessionPath, "session", "", "Telegram session file (default $XDG_DATA_HOME/chatdump/telegram.session)")
	discordCmd.PersistentFlags().StringVar(&authFile, "auth-file", "", "PowerShell request snippet with Discord session headers")

	resolveUsersCmd.Flags().StringVarP(&targetsFile, "usernames", "u", "", "text file with one username per line")
	_ = resolveUsersCmd.MarkFlagRequired("usernames")

	telegramDumpCmd.Flags().StringVarP(&targetsFile, "usernames", "u", "", "resolved peers JSON file")
	_ = telegramDumpCmd.MarkFlagRequired("usernames")
	addDumpFlags(telegramDumpCmd)

	discordDumpCmd.Flags().StringVarP(&targetsFile, "targets", "t", "", "text file with one channel id per line")
	_ = discordDumpCmd.MarkFlagRequired("targets")
	addDumpFlags(discordDumpCmd)

	listChannelsCmd.Flags().StringVarP(&channelsOut, "save", "s", "", "also write the channel ids to this text file")
}

func addDumpFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum messages per peer (default: no limit)")
	cmd.Flags().StringVarP(&datePoint, "date-point", "d", "", "stop at the first message at or before this time (unix seconds or RFC 3339)")
	cmd.Flags().BoolVarP(&reverse, "reverse", "r", false, "walk forward from the date point (not supported)")
	_ = cmd.MarkFlagRequired("date-point")
}

// crawlOptions validates the shared dump flags before any remote call.
// limitSet tells an explicit --limit 0 apart from the default.
func crawlOptions(limitSet bool) (crawl.Options, error) {
	if err := input.ValidateLimit(limit, limitSet); err != nil {
		return crawl.Options{}, err
	}
	boundary, err := input.ParseDatePoint(datePoint)
	if err != nil {
		return crawl.Options{}, err
	}
	opts := crawl.Options{Limit: limit, Boundary: boundary, Direction: models.Backward}
	if reverse {
		opts.Direction = models.Forward
	}
	return opts, opts.Validate()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func telegramOptions(cfg *config.Config) telegram.Options {
	return telegram.Options{
		APIID:       cfg.Telegram.APIID,
		APIHash:     cfg.Telegram.APIHash,
		SessionPath: cfg.Telegram.SessionPath,
		Phone:       cfg.Telegram.Phone,
	}
}

func runResolveUsers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyTelegramCredentials(cfg); err != nil {
		return err
	}

	if err := input.CheckFile(targetsFile, "txt"); err != nil {
		return err
	}
	usernames, err := input.ReadTargets(targetsFile)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	b, err := newBatch(cfg, telegram.Platform, cancel)
	if err != nil {
		return err
	}
	ui.PrintInfo("Resolving", fmt.Sprintf("%d usernames", len(usernames)))

	var path string
	err = telegram.Open(ctx, telegramOptions(cfg), func(ctx context.Context, src *telegram.Source) error {
		b.start()
		var runErr error
		path, runErr = resolveUsers(ctx, b, src, usernames)
		b.finish(runErr, len(usernames), 0)
		return runErr
	})
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Resolved %d usernames", len(usernames)))
	ui.PrintInfo("Output", path)
	return nil
}

func runTelegramDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := crawlOptions(cmd.Flags().Changed("limit"))
	if err != nil {
		return err
	}
	if err := applyTelegramCredentials(cfg); err != nil {
		return err
	}

	if err := input.CheckFile(targetsFile, "json"); err != nil {
		return err
	}
	peers, err := input.ReadResolvedPeers(targetsFile)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	b, err := newBatch(cfg, telegram.Platform, cancel)
	if err != nil {
		return err
	}
	ui.PrintInfo("Dumping", input.Describe(len(peers), opts.Limit, opts.Boundary))

	var paths []string
	var messages int
	err = telegram.Open(ctx, telegramOptions(cfg), func(ctx context.Context, src *telegram.Source) error {
		b.start()
		var runErr error
		paths, messages, runErr = dumpPerPeer(ctx, b, src, peers, opts)
		b.finish(runErr, len(peers), messages)
		return runErr
	})
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Dumped %s messages from %d peers", humanize.Comma(int64(messages)), len(peers)))
	for _, p := range paths {
		ui.PrintInfo("Output", p)
	}
	return nil
}

func runDiscordDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := crawlOptions(cmd.Flags().Changed("limit"))
	if err != nil {
		return err
	}

	if err := input.CheckFile(targetsFile, "txt"); err != nil {
		return err
	}
	ids, err := input.ReadTargets(targetsFile)
	if err != nil {
		return err
	}
	if err := input.ValidateSnowflakes(ids); err != nil {
		return err
	}

	client, err := newDiscordClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	b, err := newBatch(cfg, discord.Platform, cancel)
	if err != nil {
		return err
	}
	ui.PrintInfo("Dumping", input.Describe(len(ids), opts.Limit, opts.Boundary))

	b.start()
	path, messages, err := dumpAggregate(ctx, b, discord.NewSource(client), ids, opts)
	b.finish(err, len(ids), messages)
	if err != nil {
		return err
	}

	ui.PrintSuccess(fmt.Sprintf("Dumped %s messages from %d channels", humanize.Comma(int64(messages)), len(ids)))
	ui.PrintInfo("Output", path)
	return nil
}

func runListChannels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return err
	}

	client, err := newDiscordClient(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	channels, err := client.ListChannels(ctx)
	if err != nil {
		return err
	}

	ids := make([]string, 0, len(channels))
	for _, ch := range channels {
		ids = append(ids, ch.ID)
		where := "DM"
		if ch.Guild != "" {
			where = ch.Guild
		}
		fmt.Printf("%s\t%s\t%s\n", ch.ID, ui.Cyan(where), ch.Name)
	}

	if channelsOut != "" {
		if err := os.WriteFile(channelsOut, []byte(strings.Join(ids, "\n")+"\n"), 0o644); err != nil {
			return fmt.Errorf("failed to write channel list: %w", err)
		}
		ui.PrintSuccess(fmt.Sprintf("Saved %d channel ids to %s", len(ids), channelsOut))
	}
	return nil
}

func newDiscordClient(cfg *config.Config) (*discord.Client, error) {
	headers, err := discordHeaders(cfg)
	if err != nil {
		return nil, err
	}
	return discord.NewClient(discord.Options{
		BaseURL: cfg.Discord.BaseURL,
		Timeout: cfg.Discord.Timeout,
		Proxy:   cfg.Discord.Proxy,
		Headers: headers,
		Logger:  logger.GetLogger(),
	})
}
