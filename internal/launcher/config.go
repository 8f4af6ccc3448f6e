package launcher

// Default configuration values for the OpenVPN launcher.
var defaultBinaryPaths = []string{"/usr/sbin/openvpn", "/usr/local/sbin/openvpn"}

const (
	// DefaultUser is the unprivileged user OpenVPN drops to.
	DefaultUser = "nobody"

	// DefaultGroup is the unprivileged group OpenVPN drops to.
	DefaultGroup = "nogroup"
)

// Config configures the OpenVPN launcher and terminator.
type Config struct {
	// BinaryPaths are the candidate install locations of the OpenVPN
	// binary, tried in order. Default: /usr/sbin/openvpn,
	// /usr/local/sbin/openvpn
	BinaryPaths []string `yaml:"binary_paths"`

	// User is the unprivileged user OpenVPN drops to after setup.
	// Default: "nobody"
	User string `yaml:"user"`

	// Group is the unprivileged group OpenVPN drops to after setup.
	// Default: "nogroup"
	Group string `yaml:"group"`

	// Test prints the assembled command line instead of replacing the
	// process image. Set from the gateway test mode, not from this file.
	Test bool `yaml:"-"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.BinaryPaths) == 0 {
		c.BinaryPaths = append([]string(nil), defaultBinaryPaths...)
	}
	if c.User == "" {
		c.User = DefaultUser
	}
	if c.Group == "" {
		c.Group = DefaultGroup
	}
}
