package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftlock/vpngate/internal/launcher"
	"github.com/driftlock/vpngate/internal/validate"
)

var openvpnCmd = &cobra.Command{
	Use:   "openvpn",
	Short: "Launch and stop the OpenVPN client",
}

var openvpnStartCmd = &cobra.Command{
	Use:   "start FLAG...",
	Short: "Validate the flags and replace this process with OpenVPN",
	Long: "Validate the supplied OpenVPN flags against the fixed allowlist and,\n" +
		"on success, replace the vpngate process image with the OpenVPN client.\n" +
		"This command does not return on success.",
	// The arguments are OpenVPN flags, not vpngate flags; they must reach
	// the grammar engine untouched.
	DisableFlagParsing: true,
	RunE:               runOpenvpnStart,
}

var openvpnStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the gateway-launched OpenVPN client",
	Args:  cobra.NoArgs,
	RunE:  runOpenvpnStop,
}

func init() {
	openvpnCmd.AddCommand(openvpnStartCmd)
	openvpnCmd.AddCommand(openvpnStopCmd)
	rootCmd.AddCommand(openvpnCmd)
}

func runOpenvpnStart(cmd *cobra.Command, args []string) error {
	grammar := validate.NewEngine(validate.DefaultAllowlist(), logger)
	flags, err := grammar.ValidateFlags(args)
	if err != nil {
		return fmt.Errorf("openvpn start: %w", err)
	}

	// On success Start does not return: the process image is now OpenVPN.
	if err := launcher.New(gwCfg.OpenVPN, logger).Start(flags); err != nil {
		return fmt.Errorf("openvpn start: %w", err)
	}
	return nil
}

func runOpenvpnStop(cmd *cobra.Command, _ []string) error {
	if err := launcher.NewTerminator(gwCfg.OpenVPN, logger).Stop(); err != nil {
		return fmt.Errorf("openvpn stop: %w", err)
	}
	return nil
}
