package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftlock/vpngate/internal/dnsreg"
	"github.com/driftlock/vpngate/internal/firewall"
	"github.com/driftlock/vpngate/internal/lifecycle"
	"github.com/driftlock/vpngate/internal/validate"
)

// errPolicyDown is the non-zero-exit signal for "firewall isup".
var errPolicyDown = errors.New("firewall policy is not installed")

var firewallCmd = &cobra.Command{
	Use:   "firewall",
	Short: "Manage the kill-switch firewall policy",
}

var firewallStartCmd = &cobra.Command{
	Use:   "start [restart] GATEWAY...",
	Short: "Install the egress policy for the given VPN gateways",
	Long: "Install the default-deny egress policy, allowing only provider DNS,\n" +
		"the local subnet, and the listed VPN gateway addresses, then register\n" +
		"the provider nameserver. With a leading \"restart\" argument a failed\n" +
		"activation is not rolled back, so a retrying caller keeps its\n" +
		"existing connectivity.",
	Args: cobra.MinimumNArgs(1),
	RunE: runFirewallStart,
}

var firewallStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Remove the egress policy and restore the resolver",
	Args:  cobra.NoArgs,
	RunE:  runFirewallStop,
}

var firewallIsupCmd = &cobra.Command{
	Use:   "isup",
	Short: "Report whether the egress policy is installed",
	Args:  cobra.NoArgs,
	RunE:  runFirewallIsup,
}

func init() {
	firewallCmd.AddCommand(firewallStartCmd)
	firewallCmd.AddCommand(firewallStopCmd)
	firewallCmd.AddCommand(firewallIsupCmd)
	rootCmd.AddCommand(firewallCmd)
}

// parseStartArgs splits the firewall start arguments into the optional
// restart token and the gateway address list, validating every address
// before anything privileged happens.
func parseStartArgs(args []string) (restart bool, gateways []string, err error) {
	if len(args) > 0 && args[0] == "restart" {
		restart = true
		args = args[1:]
	}
	if len(args) == 0 {
		return false, nil, errors.New("no gateway addresses supplied")
	}
	for _, gw := range args {
		if !validate.Address.Valid(gw) {
			return false, nil, fmt.Errorf("invalid gateway address %q", gw)
		}
	}
	return restart, args, nil
}

// newOrchestrator wires the real firewall engine and DNS registrar.
func newOrchestrator() (*lifecycle.Orchestrator, error) {
	engine, err := firewall.NewSystemEngine(gwCfg.Firewall, logger)
	if err != nil {
		return nil, err
	}
	registrar := dnsreg.NewRegistrar(gwCfg.DNS, logger)
	nameserver := gwCfg.Firewall.Nameserver
	if nameserver == "" {
		nameserver = firewall.DefaultNameserver
	}
	return lifecycle.New(engine, registrar, nameserver, logger), nil
}

func runFirewallStart(cmd *cobra.Command, args []string) error {
	restart, gateways, err := parseStartArgs(args)
	if err != nil {
		return fmt.Errorf("firewall start: %w", err)
	}

	orch, err := newOrchestrator()
	if err != nil {
		return fmt.Errorf("firewall start: %w", err)
	}
	if err := orch.Start(gateways, restart); err != nil {
		return fmt.Errorf("firewall start: %w", err)
	}
	return nil
}

func runFirewallStop(cmd *cobra.Command, _ []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return fmt.Errorf("firewall stop: %w", err)
	}
	if err := orch.Stop(); err != nil {
		return fmt.Errorf("firewall stop: %w", err)
	}
	return nil
}

func runFirewallIsup(cmd *cobra.Command, _ []string) error {
	orch, err := newOrchestrator()
	if err != nil {
		return fmt.Errorf("firewall isup: %w", err)
	}
	installed, err := orch.Installed()
	if err != nil {
		return fmt.Errorf("firewall isup: %w", err)
	}
	if !installed {
		fmt.Fprintln(cmd.OutOrStdout(), "firewall is down")
		return errPolicyDown
	}
	fmt.Fprintln(cmd.OutOrStdout(), "firewall is up")
	return nil
}
