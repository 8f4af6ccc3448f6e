// Package cmd implements the vpngate CLI commands.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/driftlock/vpngate/internal/gateway"
)

var cfgFile string

// Populated by the root persistent pre-run before any subcommand runs.
var (
	gwCfg  gateway.Config
	logger *slog.Logger
)

// Build info set from main.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetVersionInfo sets the version info from build-time ldflags.
func SetVersionInfo(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
}

var rootCmd = &cobra.Command{
	Use:   "vpngate",
	Short: "vpngate is the privileged helper for the VPN frontend",
	Long: "vpngate performs the root-only operations the unprivileged VPN frontend\n" +
		"cannot: installing and removing the kill-switch firewall policy, and\n" +
		"launching and stopping the OpenVPN client. Every caller-supplied\n" +
		"parameter is validated against a fixed allowlist before any privileged\n" +
		"action is taken.",
	SilenceUsage: true,
	// PersistentPreRunE is assigned in init to avoid an initialization
	// cycle (setup refers back to rootCmd).
	// No Run function — prints help by default.
}

// setup loads the configuration, builds the logger, and enforces the root
// privilege precondition. Only "version" (and help output) is allowed
// without privilege: everything else mutates root-only system state.
func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := gateway.Load(cfgFile)
	if err != nil {
		return err
	}
	gwCfg = cfg
	logger = setupLogger(cfg.LogLevel)

	switch cmd.Name() {
	case "version", "help", "completion", rootCmd.Name():
		return nil
	}
	return gateway.CheckPrivilege()
}

// setupLogger builds the process-wide text logger at the given level.
func setupLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

func init() {
	rootCmd.PersistentPreRunE = setup
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", gateway.DefaultConfigFile, "config file path")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("vpngate: %w", err)
	}
	return nil
}
