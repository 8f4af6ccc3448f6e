package firewall

// Default configuration values for the firewall engine.
const (
	// DefaultChainName is the dedicated chain vpngate owns in the filter
	// table of both address families.
	DefaultChainName = "vpngate"

	// DefaultNameserver is the VPN provider's DNS resolver. It is the only
	// non-loopback destination DNS traffic may reach while the policy is up.
	DefaultNameserver = "10.42.0.1"
)

// Config configures the firewall rule engine.
type Config struct {
	// ChainName is the name of the dedicated chain in both families.
	// Default: "vpngate"
	ChainName string `yaml:"chain_name"`

	// Nameserver is the provider DNS resolver allowed through the policy.
	// Default: "10.42.0.1"
	Nameserver string `yaml:"nameserver"`

	// Debug adds a LOG rule ahead of the catch-all rejects so rejected
	// traffic shows up in the kernel log. Set from the gateway debug mode,
	// not from this file.
	Debug bool `yaml:"-"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.ChainName == "" {
		c.ChainName = DefaultChainName
	}
	if c.Nameserver == "" {
		c.Nameserver = DefaultNameserver
	}
}
