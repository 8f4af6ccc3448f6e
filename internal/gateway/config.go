// Package gateway holds the immutable runtime configuration for the vpngate
// privilege helper. The configuration is constructed once at startup from an
// optional YAML file plus environment overrides and passed by value to every
// component; nothing in the program mutates it afterwards.
package gateway

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/driftlock/vpngate/internal/dnsreg"
	"github.com/driftlock/vpngate/internal/firewall"
	"github.com/driftlock/vpngate/internal/launcher"
)

const (
	// DefaultConfigFile is the default configuration file path.
	DefaultConfigFile = "/etc/vpngate/config.yaml"

	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"
)

// ErrNotRoot is returned when a privileged command is invoked without
// root-equivalent privilege.
var ErrNotRoot = errors.New("gateway: this command requires root privileges")

// Config is the top-level configuration for the vpngate helper.
type Config struct {
	// LogLevel is the log level: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// Debug enables verbose tracing and adds a LOG rule for rejected
	// traffic to the installed firewall policy. Overridden by VPNGATE_DEBUG.
	Debug bool `yaml:"debug"`

	// Test skips real side effects where a component supports it
	// (the OpenVPN launcher prints the argv instead of replacing the
	// process image). Overridden by VPNGATE_TEST.
	Test bool `yaml:"test"`

	Firewall firewall.Config `yaml:"firewall"`
	OpenVPN  launcher.Config `yaml:"openvpn"`
	DNS      dnsreg.Config   `yaml:"dns"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	c.Firewall.ApplyDefaults()
	c.OpenVPN.ApplyDefaults()
	c.DNS.ApplyDefaults()
}

// applyEnv applies the VPNGATE_DEBUG and VPNGATE_TEST environment switches.
func (c *Config) applyEnv() {
	if envBool("VPNGATE_DEBUG") {
		c.Debug = true
		c.LogLevel = "debug"
	}
	if envBool("VPNGATE_TEST") {
		c.Test = true
	}
	c.Firewall.Debug = c.Debug
	c.OpenVPN.Test = c.Test
}

func envBool(key string) bool {
	v := os.Getenv(key)
	return v == "1" || v == "true" || v == "yes"
}

// Load reads the configuration file at path, applies defaults and environment
// overrides, and returns the resulting Config. A missing file is not an
// error: the defaults describe a complete working setup.
func Load(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("gateway: parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return Config{}, fmt.Errorf("gateway: read config %s: %w", path, err)
	}

	cfg.ApplyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// CheckPrivilege returns ErrNotRoot unless the effective user is root.
// Every vpngate command except "version" calls this before doing anything
// else, so an unprivileged caller fails before any validation or side effect.
func CheckPrivilege() error {
	if os.Geteuid() != 0 {
		return ErrNotRoot
	}
	return nil
}
