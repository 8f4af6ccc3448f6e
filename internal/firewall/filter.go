// Package firewall converges the kernel packet-filter state of both address
// families to a single fixed egress policy: default-deny with allowances for
// provider DNS, the local subnet, and the caller-supplied VPN gateways.
// Every mutation is preceded by an equivalent existence probe, so installing
// or tearing down the policy is safe to repeat from any prior state.
package firewall

import "fmt"

// filterTable is the only packet-filter table this engine touches.
const filterTable = "filter"

// outputChain is the built-in chain the dedicated chain is linked from.
const outputChain = "OUTPUT"

// Family selects an address family.
type Family int

const (
	// IPv4 selects the IPv4 packet filter.
	IPv4 Family = iota
	// IPv6 selects the IPv6 packet filter.
	IPv6
)

// String returns the family name used in diagnostics.
func (f Family) String() string {
	if f == IPv6 {
		return "ipv6"
	}
	return "ipv4"
}

// PacketFilter abstracts one address family's packet-filter tool. The method
// set matches the iptables/ip6tables command surface: existence probes are
// non-mutating, everything else mutates kernel state. It is satisfied
// directly by *iptables.IPTables from coreos/go-iptables and by the test
// double in this package.
type PacketFilter interface {
	// ChainExists reports whether the chain exists in the table.
	ChainExists(table, chain string) (bool, error)
	// NewChain creates the chain. Errors if it already exists.
	NewChain(table, chain string) error
	// ClearChain flushes all rules from the chain, creating it if absent.
	ClearChain(table, chain string) error
	// DeleteChain deletes the chain, which must be empty.
	DeleteChain(table, chain string) error
	// Exists reports whether an identical rule is present in the chain.
	Exists(table, chain string, rulespec ...string) (bool, error)
	// Insert inserts the rule at position pos (1-based).
	Insert(table, chain string, pos int, rulespec ...string) error
	// Append appends the rule to the end of the chain.
	Append(table, chain string, rulespec ...string) error
	// Delete removes the first rule matching the rulespec.
	Delete(table, chain string, rulespec ...string) error
}

// ToolError wraps a failed mutating invocation of the underlying
// packet-filter tool. Probe failures are reported as plain wrapped errors;
// a ToolError always means kernel state may differ from the intended policy,
// and the containing operation aborts rather than retries.
type ToolError struct {
	Family Family
	Op     string
	Err    error
}

// Error returns the formatted error string.
func (e *ToolError) Error() string {
	return fmt.Sprintf("firewall: %s: %s: %v", e.Family, e.Op, e.Err)
}

// Unwrap returns the underlying tool error.
func (e *ToolError) Unwrap() error { return e.Err }
