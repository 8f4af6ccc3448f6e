package dnsreg

// Default configuration values for the DNS registrar.
const (
	// DefaultTool is the resolver-update collaborator binary.
	DefaultTool = "/usr/local/sbin/vpngate-resolvconf"

	// DefaultMarkerFile records the pid of the in-flight resolver update.
	DefaultMarkerFile = "/run/vpngate/resolvconf.pid"
)

// Config configures the DNS registrar.
type Config struct {
	// Tool is the resolver-update binary dispatched in the background.
	// Default: /usr/local/sbin/vpngate-resolvconf
	Tool string `yaml:"tool"`

	// MarkerFile is the advisory exclusivity marker.
	// Default: /run/vpngate/resolvconf.pid
	MarkerFile string `yaml:"marker_file"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Tool == "" {
		c.Tool = DefaultTool
	}
	if c.MarkerFile == "" {
		c.MarkerFile = DefaultMarkerFile
	}
}
