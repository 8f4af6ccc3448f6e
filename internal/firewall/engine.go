package firewall

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/driftlock/vpngate/internal/validate"
)

// ErrNoGateways is returned by InstallPolicy when the caller supplies no
// gateway addresses. An egress policy with no reachable VPN gateway would
// cut the host off, so this fails before any mutation.
var ErrNoGateways = errors.New("firewall: no gateway addresses supplied")

// loopbackResolvers are the local resolver addresses DNS traffic may always
// reach, alongside the provider nameserver.
var loopbackResolvers = [...]string{"127.0.0.1", "127.0.1.1"}

// Multicast allowances for local service and hostname discovery.
var (
	mdnsRule = []string{"-d", "224.0.0.251", "-p", "udp", "--dport", "5353", "-j", "ACCEPT"}
	slpRule  = []string{"-d", "239.255.255.253", "-p", "udp", "--dport", "427", "-j", "ACCEPT"}
)

// Engine converges both address families' packet filters to the fixed
// egress policy. All operations are idempotent: each mutation is preceded by
// an existence probe with the same selector, so repeating an operation never
// duplicates rules or errors on already-converged state.
type Engine struct {
	v4     PacketFilter
	v6     PacketFilter
	net    NetInfo
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates an Engine over per-family packet filters and a NetInfo.
func NewEngine(v4, v6 PacketFilter, netinfo NetInfo, cfg Config, logger *slog.Logger) *Engine {
	cfg.ApplyDefaults()
	return &Engine{
		v4:     v4,
		v6:     v6,
		net:    netinfo,
		cfg:    cfg,
		logger: logger.With("component", "firewall"),
	}
}

// InstallPolicy installs the egress policy for the given VPN gateway
// addresses. Rule order is policy-critical under first-match evaluation:
// DNS, local-subnet, and gateway allowances must precede the catch-all
// rejects, so rules are appended in exactly that precedence order.
func (e *Engine) InstallPolicy(gateways []string) error {
	if len(gateways) == 0 {
		return ErrNoGateways
	}
	for _, gw := range gateways {
		if !validate.Address.Valid(gw) {
			return fmt.Errorf("firewall: invalid gateway address %q", gw)
		}
	}

	device, err := e.net.DefaultDevice()
	if err != nil {
		return err
	}

	for _, f := range []Family{IPv4, IPv6} {
		if err := e.ensureChain(f); err != nil {
			return err
		}
		if err := e.ensureInsert(f, outputChain, 1, "-j", e.cfg.ChainName); err != nil {
			return err
		}
	}

	// DNS: allow udp/53 to the provider nameserver and local resolvers,
	// then reject every other DNS destination in both families.
	for _, dst := range append([]string{e.cfg.Nameserver}, loopbackResolvers[:]...) {
		if err := e.ensureAppend(IPv4, e.cfg.ChainName,
			"-d", dst, "-p", "udp", "--dport", "53", "-j", "ACCEPT"); err != nil {
			return err
		}
	}
	for _, f := range []Family{IPv4, IPv6} {
		for _, proto := range []string{"udp", "tcp"} {
			if err := e.ensureAppend(f, e.cfg.ChainName,
				"-p", proto, "--dport", "53", "-j", "REJECT"); err != nil {
				return err
			}
		}
	}

	// Local subnet, where the device has an address of the family.
	for _, f := range []Family{IPv4, IPv6} {
		subnet, ok, err := e.net.LocalSubnet(f, device)
		if err != nil {
			return err
		}
		if !ok {
			e.logger.Debug("no local address, skipping subnet allowance",
				"family", f.String(), "device", device)
			continue
		}
		if err := e.ensureAppend(f, e.cfg.ChainName, "-d", subnet, "-j", "ACCEPT"); err != nil {
			return err
		}
	}
	for _, rule := range [][]string{mdnsRule, slpRule} {
		if err := e.ensureAppend(IPv4, e.cfg.ChainName, rule...); err != nil {
			return err
		}
	}

	for _, gw := range gateways {
		if err := e.ensureAppend(IPv4, e.cfg.ChainName, "-d", gw, "-j", "ACCEPT"); err != nil {
			return err
		}
	}

	if e.cfg.Debug {
		for _, f := range []Family{IPv4, IPv6} {
			if err := e.ensureAppend(f, e.cfg.ChainName,
				"-j", "LOG", "--log-prefix", "vpngate rejected: "); err != nil {
				return err
			}
		}
	}

	// Catch-alls. IPv6 has no tunnel route at all, so TCP and UDP are
	// rejected outright; IPv4 is rejected on the default device only,
	// leaving tunnel and loopback devices untouched.
	for _, proto := range []string{"tcp", "udp"} {
		if err := e.ensureAppend(IPv6, e.cfg.ChainName, "-p", proto, "-j", "REJECT"); err != nil {
			return err
		}
	}
	if err := e.ensureAppend(IPv4, e.cfg.ChainName, "-o", device, "-j", "REJECT"); err != nil {
		return err
	}

	e.logger.Info("egress policy installed",
		"chain", e.cfg.ChainName, "device", device, "gateways", len(gateways))
	return nil
}

// TeardownPolicy removes the policy from both families: unlink the dedicated
// chain from OUTPUT, then flush and delete it. Deterministic regardless of
// what the chain contains; absent chains and links are simply skipped.
func (e *Engine) TeardownPolicy() error {
	for _, f := range []Family{IPv4, IPv6} {
		if err := e.ensureDelete(f, outputChain, "-j", e.cfg.ChainName); err != nil {
			return err
		}

		exists, err := e.pf(f).ChainExists(filterTable, e.cfg.ChainName)
		if err != nil {
			return fmt.Errorf("firewall: %s: probe chain %s: %w", f, e.cfg.ChainName, err)
		}
		if !exists {
			continue
		}
		if err := e.pf(f).ClearChain(filterTable, e.cfg.ChainName); err != nil {
			return &ToolError{Family: f, Op: "flush chain " + e.cfg.ChainName, Err: err}
		}
		if err := e.pf(f).DeleteChain(filterTable, e.cfg.ChainName); err != nil {
			return &ToolError{Family: f, Op: "delete chain " + e.cfg.ChainName, Err: err}
		}
	}

	e.logger.Info("egress policy removed", "chain", e.cfg.ChainName)
	return nil
}

// PolicyInstalled reports whether the policy is in place, probing the
// dedicated IPv4 chain. This is the health-check signal for "firewall isup".
func (e *Engine) PolicyInstalled() (bool, error) {
	exists, err := e.v4.ChainExists(filterTable, e.cfg.ChainName)
	if err != nil {
		return false, fmt.Errorf("firewall: %s: probe chain %s: %w", IPv4, e.cfg.ChainName, err)
	}
	return exists, nil
}

func (e *Engine) pf(f Family) PacketFilter {
	if f == IPv6 {
		return e.v6
	}
	return e.v4
}

// ensureChain creates the family's dedicated chain if absent.
func (e *Engine) ensureChain(f Family) error {
	exists, err := e.pf(f).ChainExists(filterTable, e.cfg.ChainName)
	if err != nil {
		return fmt.Errorf("firewall: %s: probe chain %s: %w", f, e.cfg.ChainName, err)
	}
	if exists {
		return nil
	}
	if err := e.pf(f).NewChain(filterTable, e.cfg.ChainName); err != nil {
		return &ToolError{Family: f, Op: "create chain " + e.cfg.ChainName, Err: err}
	}
	return nil
}

// ensureInsert inserts the rule at pos unless an identical rule is present.
func (e *Engine) ensureInsert(f Family, chain string, pos int, rulespec ...string) error {
	exists, err := e.pf(f).Exists(filterTable, chain, rulespec...)
	if err != nil {
		return fmt.Errorf("firewall: %s: probe rule in %s: %w", f, chain, err)
	}
	if exists {
		return nil
	}
	if err := e.pf(f).Insert(filterTable, chain, pos, rulespec...); err != nil {
		return &ToolError{Family: f, Op: "insert rule into " + chain, Err: err}
	}
	return nil
}

// ensureAppend appends the rule unless an identical rule is present.
func (e *Engine) ensureAppend(f Family, chain string, rulespec ...string) error {
	exists, err := e.pf(f).Exists(filterTable, chain, rulespec...)
	if err != nil {
		return fmt.Errorf("firewall: %s: probe rule in %s: %w", f, chain, err)
	}
	if exists {
		return nil
	}
	if err := e.pf(f).Append(filterTable, chain, rulespec...); err != nil {
		return &ToolError{Family: f, Op: "append rule to " + chain, Err: err}
	}
	return nil
}

// ensureDelete removes the rule only if it is present.
func (e *Engine) ensureDelete(f Family, chain string, rulespec ...string) error {
	exists, err := e.pf(f).Exists(filterTable, chain, rulespec...)
	if err != nil {
		return fmt.Errorf("firewall: %s: probe rule in %s: %w", f, chain, err)
	}
	if !exists {
		return nil
	}
	if err := e.pf(f).Delete(filterTable, chain, rulespec...); err != nil {
		return &ToolError{Family: f, Op: "delete rule from " + chain, Err: err}
	}
	return nil
}
