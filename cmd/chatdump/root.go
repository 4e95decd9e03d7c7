package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"chatdump/pkg/config"
	"chatdump/pkg/ui"
)

var (
	// Version information
	version   = "0.3.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	logFile     string
	outputDir   string
	uiMode      string
	metricsFile string
	notify      bool
	quiet       bool
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatdump",
	Short: "Export chat history from Telegram and Discord",
	Long: `chatdump exports message history from Telegram and Discord into JSON files.

Features:
  - Telegram username resolution and history dumps over MTProto
  - Discord channel dumps using your browser session
  - At most 3 concurrent history fetches per batch
  - Flood waits and 429s are waited out, never fatal
  - Live progress, optional dashboard and desktop notifications
  - Prometheus metrics written to a textfile after each batch`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./chatdump.yaml or $XDG_CONFIG_HOME/chatdump/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write JSON logs to this file")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "directory for output artifacts (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&uiMode, "ui", "", "progress display: plain, tui or none")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after each batch")
	rootCmd.PersistentFlags().BoolVar(&notify, "notify", false, "send a desktop notification when a batch ends")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	rootCmd.SetVersionTemplate(`chatdump {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig merges the global flags the user actually set over the
// file, .env and environment layers
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := make(map[string]interface{})
	set := func(name string, value interface{}) {
		if cmd.Flags().Changed(name) {
			flags[name] = value
		}
	}
	set("output", outputDir)
	set("log-level", logLevel)
	set("log-file", logFile)
	set("ui", uiMode)
	set("metrics-file", metricsFile)
	set("notify", notify)
	set("session", sessionPath)
	set("auth-file", authFile)

	switch {
	case verbose:
		flags["log-level"] = "debug"
	case quiet:
		flags["log-level"] = "error"
	}

	return config.Load(configFile, flags)
}
